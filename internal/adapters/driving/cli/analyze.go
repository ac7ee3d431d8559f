package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui"
	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

var (
	analyzeTitle string
	analyzeJSON  bool
	analyzePlain bool
	analyzeMeta  []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse a contract",
	Long: `Store a contract and run the full analysis pipeline on it: embedding,
related-contract search, risk analysis, executive report and notification.

The contract is read from the given file, or from stdin when the file is
omitted or "-". Reading from stdin requires --title.

On a terminal, progress is shown live. Use --plain or --json for scripts.`,
	Example: `  contract-agent analyze msa.txt
  cat nda.md | contract-agent analyze --title "Mutual NDA" --json
  contract-agent analyze lease.txt --meta client=acme --meta region=eu`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "contract title (defaults to the file name)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzePlain, "plain", false, "disable the live progress view")
	analyzeCmd.Flags().StringArrayVar(&analyzeMeta, "meta", nil, "metadata as key=value (repeatable)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	title, content, err := readContract(cmd, args, analyzeTitle)
	if err != nil {
		return err
	}
	metadata, err := parseMetadata(analyzeMeta)
	if err != nil {
		return err
	}
	metadata["source"] = "cli"

	svc, err := requirePipeline(cmd)
	if err != nil {
		return err
	}

	if !analyzeJSON && !analyzePlain && isTerminal(cmd.OutOrStdout()) {
		return runAnalyzeTUI(cmd, svc, tui.Request{Title: title, Content: content, Metadata: metadata})
	}

	result, err := svc.Pipeline.ProcessDocument(cmd.Context(), title, content, metadata)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return writeJSON(cmd, result)
	}
	printResult(cmd, title, result)
	return nil
}

// runAnalyzeTUI runs the pipeline behind the live progress view. Log lines
// are held back until the view exits so they do not break the layout.
func runAnalyzeTUI(cmd *cobra.Command, svc *Services, req tui.Request) error {
	app, err := tui.NewApp(&tui.Ports{Pipeline: svc.Pipeline}, req)
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer func() {
		logger.SetOutput(os.Stderr)
		_, _ = io.Copy(cmd.ErrOrStderr(), &logs)
	}()

	program := tea.NewProgram(app, tea.WithOutput(cmd.OutOrStdout()), tea.WithInput(cmd.InOrStdin()))
	_, runErr := program.Run()
	app.Wait()
	if runErr != nil {
		return fmt.Errorf("progress view: %w", runErr)
	}

	if _, err := app.Result(); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}

// readContract returns the title and text of the contract named by args.
func readContract(cmd *cobra.Command, args []string, title string) (string, string, error) {
	var content string
	if len(args) == 0 || args[0] == "-" {
		if strings.TrimSpace(title) == "" {
			return "", "", fmt.Errorf("%w: --title is required when reading from stdin", domain.ErrInvalidInput)
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	} else {
		declared, text, err := loadContractFile(cmd.Context(), args[0])
		if err != nil {
			return "", "", err
		}
		content = text
		if strings.TrimSpace(title) == "" {
			title = declared
		}
	}

	if strings.TrimSpace(content) == "" {
		return "", "", fmt.Errorf("%w: contract is empty", domain.ErrInvalidInput)
	}
	return title, content, nil
}

// loadContractFile reads a contract file and extracts its text. The title
// is the one declared in the document, or else the file name.
func loadContractFile(ctx context.Context, path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading contract: %w", err)
	}

	title := titleFromPath(path)
	if normaliser == nil {
		return title, string(data), nil
	}

	result, err := normaliser.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: normaliser.DetectMIMEType(path),
		Content:  data,
	})
	if err != nil {
		return "", "", fmt.Errorf("extracting text from %s: %w", filepath.Base(path), err)
	}
	if result.Title != "" {
		title = result.Title
	}
	logger.Debug("extracted %s text from %s", result.Format, path)
	return title, result.Content, nil
}

// titleFromPath derives a contract title from a file name.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseMetadata turns key=value pairs into a metadata map.
func parseMetadata(pairs []string) (map[string]any, error) {
	meta := make(map[string]any, len(pairs)+1)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: metadata %q must be key=value", domain.ErrInvalidInput, pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResult(cmd *cobra.Command, title string, result *domain.ProcessingResult) {
	s := styles.DefaultStyles()
	analysis := result.Analysis

	cmd.Printf("%s\n", s.Title.Render("Contract Analysis: "+title))
	cmd.Printf("Document: %d (run %s)\n", result.DocumentID, result.RunID)
	cmd.Printf("Risk level: %s\n", s.Risk(analysis.RiskLevel).Render(string(analysis.RiskLevel)))
	if analysis.Fallback {
		cmd.Println(s.Warning.Render("The language model was unavailable; this is a fallback analysis."))
	}
	cmd.Printf("Similar clauses: %d\n", result.SimilarClauses)
	cmd.Println()

	cmd.Println("Summary:")
	cmd.Printf("  %s\n\n", analysis.Summary)
	printList(cmd, "Risks", analysis.Risks)
	printList(cmd, "Compliance", analysis.Compliance)
	printList(cmd, "Recommendations", analysis.Recommendations)

	cmd.Println("Report:")
	cmd.Println(result.Report)
	cmd.Println()

	cmd.Println("Workflow:")
	for i, step := range result.Workflow {
		cmd.Printf("  %d. %s\n", i+1, step)
	}
}

func printList(cmd *cobra.Command, heading string, items []string) {
	cmd.Printf("%s:\n", heading)
	if len(items) == 0 {
		cmd.Println("  (none)")
	}
	for _, item := range items {
		cmd.Printf("  - %s\n", item)
	}
	cmd.Println()
}
