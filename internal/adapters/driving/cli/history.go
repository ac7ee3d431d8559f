package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/contract-agent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

var (
	historyLimit string
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analyses",
	Long: `List stored contracts, most recent first, with the latest risk level
of each. Contracts that were never analysed are listed without one.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyLimit, "limit", "n", strconv.Itoa(domain.DefaultHistoryLimit),
		fmt.Sprintf("maximum number of rows (1-%d)", domain.MaxHistoryLimit))
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output history as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	svc, err := requirePipeline(cmd)
	if err != nil {
		return err
	}

	limit := domain.ParseLimit(historyLimit, domain.DefaultHistoryLimit, domain.MaxHistoryLimit)
	entries, err := svc.Pipeline.ListHistory(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if historyJSON {
		return writeJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("No contracts analysed yet.")
		return nil
	}

	s := styles.DefaultStyles()
	cmd.Printf("%-6s %-40s %-11s %-7s %s\n", "ID", "TITLE", "STATUS", "RISK", "CREATED")
	for _, e := range entries {
		risk := "-"
		if e.Analysis != nil {
			risk = string(e.Analysis.RiskLevel)
		}
		cmd.Printf("%-6d %-40s %-11s %s %s\n",
			e.DocumentID,
			truncate(e.Title, 40),
			orDash(string(e.Status)),
			s.Risk(domain.RiskLevel(risk)).Width(7).Render(risk),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
