package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

var (
	relatedLimit    string
	relatedMinScore float64
	relatedJSON     bool
)

var relatedCmd = &cobra.Command{
	Use:   "related [query]",
	Short: "Find stored contracts related to some text",
	Long: `Search stored contracts for ones related to the query. Semantic
similarity is tried first; keyword and substring matching are used when
the embedding service or vector data is unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	relatedCmd.Flags().StringVarP(&relatedLimit, "limit", "n", strconv.Itoa(domain.DefaultRelatedLimit),
		fmt.Sprintf("maximum number of results (1-%d)", domain.MaxRelatedLimit))
	relatedCmd.Flags().Float64Var(&relatedMinScore, "min-score", domain.DefaultMinScore, "relevance floor between 0 and 1")
	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	query := args[0]
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	svc, err := requirePipeline(cmd)
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return fmt.Errorf("retrieval not configured")
	}

	limit := domain.ParseLimit(relatedLimit, domain.DefaultRelatedLimit, domain.MaxRelatedLimit)
	results, err := svc.Retrieval.FindRelated(cmd.Context(), query, limit, relatedMinScore)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if relatedJSON {
		return writeJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No related contracts found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, r.Title, r.SimilarityScore, r.Tier)
		cmd.Printf("      Document %d, stored %s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02"))
		cmd.Printf("      %s\n", truncate(strings.Join(strings.Fields(r.Content), " "), 120))
		cmd.Println()
	}
	return nil
}
