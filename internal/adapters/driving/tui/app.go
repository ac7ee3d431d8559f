package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// Layout constants.
const (
	defaultWidth  = 80
	defaultHeight = 24

	// chromeLines is every line drawn outside the report viewport.
	chromeLines = 16
	minReport   = 4
)

// Request is the contract handed to the pipeline.
type Request struct {
	Title    string
	Content  string
	Metadata map[string]any
}

// App shows the live progress of one pipeline run and then its report.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	req    Request
	ctx    context.Context
	cancel context.CancelFunc

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	spinner   spinner.Model
	report    viewport.Model
	statusBar *status.Bar

	// events carries stage changes from the run goroutine. It is closed
	// when the run returns.
	events  chan messages.StageChanged
	runDone chan struct{}

	stage    domain.Stage
	done     map[domain.Stage]bool
	finished bool
	result   *domain.ProcessingResult
	err      error

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a progress view for req.
func NewApp(ports *Ports, req Request) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:     ports,
		req:       req,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Subtitle)),
		report:    viewport.New(defaultWidth, minReport),
		statusBar: status.NewBar(s, km),
		events:    make(chan messages.StageChanged, len(domain.Stages())),
		done:      make(map[domain.Stage]bool, len(domain.Stages())),
		width:     defaultWidth,
		height:    defaultHeight,
	}, nil
}

// WithContext sets the parent context of the run.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model. It starts the run.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("contract-agent - "+a.req.Title),
		a.spinner.Tick,
		a.start(),
		a.waitForStage(),
	)
}

// start launches the pipeline. The returned command blocks until the run ends.
func (a *App) start() tea.Cmd {
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.runDone = make(chan struct{})

	events := a.events
	runDone := a.runDone
	pipeline := a.ports.Pipeline
	req := a.req

	return func() tea.Msg {
		defer close(runDone)
		defer close(events)

		result, err := pipeline.ProcessDocumentWithProgress(ctx, req.Title, req.Content, req.Metadata,
			func(stage domain.Stage, detail string) {
				select {
				case events <- messages.StageChanged{Stage: stage, Detail: detail}:
				case <-ctx.Done():
				}
			})
		return messages.RunCompleted{Result: result, Err: err}
	}
}

// waitForStage delivers the next stage change, or nothing once the run ended.
func (a *App) waitForStage() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.setDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			a.stop()
			return a, tea.Quit
		}
		if a.finished {
			var cmd tea.Cmd
			a.report, cmd = a.report.Update(msg)
			return a, cmd
		}
		return a, nil

	case spinner.TickMsg:
		if a.finished {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.StageChanged:
		a.advance(msg)
		return a, a.waitForStage()

	case messages.RunCompleted:
		a.complete(msg)
		return a, nil
	}

	return a, nil
}

// advance records a stage change. Changes that arrive after completion are ignored.
func (a *App) advance(msg messages.StageChanged) {
	if a.finished {
		return
	}
	if a.stage != "" {
		a.done[a.stage] = true
	}
	a.stage = msg.Stage
	if msg.Stage == domain.StageComplete {
		a.done[msg.Stage] = true
	}
	a.statusBar.Set(status.StateRunning, msg.Detail)
}

func (a *App) complete(msg messages.RunCompleted) {
	a.finished = true
	a.result = msg.Result
	a.err = msg.Err

	if !msg.Succeeded() {
		if a.err == nil {
			a.err = ErrInterrupted
		}
		a.statusBar.Set(status.StateFailed, a.err.Error())
		return
	}

	for _, s := range domain.Stages() {
		a.done[s] = true
	}
	a.stage = domain.StageComplete
	a.statusBar.Set(status.StateDone, fmt.Sprintf("Document %d analysed", a.result.DocumentID))
	a.report.SetContent(a.renderReport())
	a.report.GotoTop()
}

// stop cancels the run if it is still going.
func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Wait blocks until the run goroutine has returned. The pipeline records
// the failed status of a cancelled run before returning.
func (a *App) Wait() {
	if a.runDone != nil {
		<-a.runDone
	}
}

// Result returns the outcome of the run.
func (a *App) Result() (*domain.ProcessingResult, error) {
	if !a.finished {
		return nil, ErrInterrupted
	}
	return a.result, a.err
}

func (a *App) setDimensions(width, height int) {
	a.width = width
	a.height = height
	a.report.Width = max(20, width-4)
	a.report.Height = max(minReport, height-chromeLines)
	a.statusBar.SetWidth(width)
	if a.finished && a.result != nil {
		a.report.SetContent(a.renderReport())
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Contract Analysis: " + a.req.Title))
	b.WriteString("\n\n")

	for _, s := range domain.Stages() {
		b.WriteString(a.renderStage(s))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if a.finished && a.result != nil {
		b.WriteString(a.renderHeadline())
		b.WriteString("\n")
		b.WriteString(a.styles.Border.Render(a.report.View()))
		b.WriteString("\n")
	}

	b.WriteString(a.statusBar.View())
	return b.String()
}

func (a *App) renderStage(s domain.Stage) string {
	switch {
	case a.done[s]:
		return "  " + a.styles.Success.Render("✓") + " " + a.styles.Normal.Render(s.Label())
	case s == a.stage && a.finished:
		return "  " + a.styles.Error.Render("✗") + " " + a.styles.Normal.Render(s.Label())
	case s == a.stage:
		return "  " + a.spinner.View() + " " + a.styles.Subtitle.Render(s.Label())
	default:
		return "  " + a.styles.Muted.Render("· "+s.Label())
	}
}

func (a *App) renderHeadline() string {
	analysis := a.result.Analysis
	headline := fmt.Sprintf("%s %s   %s",
		a.styles.Normal.Render("Risk level:"),
		a.styles.Risk(analysis.RiskLevel).Render(string(analysis.RiskLevel)),
		a.styles.Muted.Render(fmt.Sprintf("%d similar clauses", a.result.SimilarClauses)),
	)
	if analysis.Fallback {
		headline += "\n" + a.styles.Warning.Render("The language model was unavailable; showing a fallback analysis.")
	}
	return headline
}

// renderReport formats the analysis and narrative report for the viewport.
func (a *App) renderReport() string {
	analysis := a.result.Analysis
	wrap := lipgloss.NewStyle().Width(a.report.Width)

	var b strings.Builder
	section := func(heading string, items []string) {
		b.WriteString(a.styles.Subtitle.Render(heading))
		b.WriteString("\n")
		if len(items) == 0 {
			b.WriteString(a.styles.Muted.Render("  none"))
			b.WriteString("\n")
		}
		for _, item := range items {
			b.WriteString(wrap.Render("  - " + item))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(a.styles.Subtitle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(analysis.Summary))
	b.WriteString("\n\n")
	section("Risks", analysis.Risks)
	section("Compliance", analysis.Compliance)
	section("Recommendations", analysis.Recommendations)
	b.WriteString(a.styles.Subtitle.Render("Report"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(a.result.Report))
	return b.String()
}
