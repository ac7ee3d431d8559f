package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/watch"
)

var (
	watchDebounce time.Duration
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyse contracts as they are saved to a folder",
	Long: `Watch a folder and analyse every contract written to it. Text,
Markdown, HTML and Word (.docx) files are accepted. A file is analysed
once it has not changed for the debounce period.

Press Ctrl+C to stop.`,
	Example: `  contract-agent watch ./inbox
  contract-agent watch ./inbox --process-existing --debounce 5s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is analysed")
	watchCmd.Flags().BoolVar(&watchExisting, "process-existing", false, "analyse contracts already in the folder first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requirePipeline(cmd)
	if err != nil {
		return err
	}

	w, err := watch.New(svc.Pipeline, args[0], watchDebounce)
	if err != nil {
		return err
	}
	w.WithNormaliser(normaliser)
	defer func() { _ = w.Close() }()

	ctx := cmd.Context()
	s := styles.DefaultStyles()

	if watchExisting {
		events, err := w.Scan(ctx)
		for _, ev := range events {
			printWatchEvent(cmd, s, ev)
		}
		if err != nil {
			return ignoreCancel(err)
		}
	}

	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s for contracts (Ctrl+C to stop)\n", w.Dir())

	for ev := range events {
		printWatchEvent(cmd, s, ev)
	}
	return ignoreCancel(ctx.Err())
}

func printWatchEvent(cmd *cobra.Command, s *styles.Styles, ev watch.Event) {
	if ev.Err != nil {
		cmd.Printf("%s %s: %v\n", s.Error.Render("failed"), ev.Title, ev.Err)
		return
	}
	risk := ev.Result.Analysis.RiskLevel
	cmd.Printf("%s %s (document %d, risk %s)\n",
		s.Success.Render("analysed"), ev.Title, ev.Result.DocumentID, s.Risk(risk).Render(string(risk)))
}

// ignoreCancel treats an interrupted run as a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
