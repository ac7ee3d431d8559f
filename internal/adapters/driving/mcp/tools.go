package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
)

// AnalyzeInput is the input schema for the analyze_contract tool.
type AnalyzeInput struct {
	Title    string            `json:"title" jsonschema:"contract title"`
	Content  string            `json:"content" jsonschema:"full contract text"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"optional key-value metadata stored with the contract"`
}

// AnalyzeOutput is the output schema for the analyze_contract tool.
type AnalyzeOutput struct {
	DocumentID      int64    `json:"document_id"`
	RunID           string   `json:"run_id"`
	RiskLevel       string   `json:"risk_level"`
	Risks           []string `json:"risks"`
	Compliance      []string `json:"compliance"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
	Fallback        bool     `json:"fallback"`
	Report          string   `json:"report"`
	SimilarClauses  int      `json:"similar_clauses"`
	Workflow        []string `json:"workflow"`
}

// HistoryInput is the input schema for the analysis_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of rows (default 10, max 100)"`
}

// HistoryOutput is the output schema for the analysis_history tool.
type HistoryOutput struct {
	Entries []HistoryEntryOutput `json:"entries"`
	Count   int                  `json:"count"`
}

// HistoryEntryOutput is one analysis history row.
type HistoryEntryOutput struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	RiskLevel  string `json:"risk_level,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Report     string `json:"report,omitempty"`
}

// RelatedInput is the input schema for the find_related tool.
type RelatedInput struct {
	Query    string   `json:"query" jsonschema:"text to find related contracts for"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 5, max 50)"`
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"relevance floor between 0 and 1 (default 0.8)"`
}

// RelatedOutput is the output schema for the find_related tool.
type RelatedOutput struct {
	Results []RelatedResultOutput `json:"results"`
	Count   int                   `json:"count"`
}

// RelatedResultOutput represents a single related contract.
type RelatedResultOutput struct {
	DocumentID int64   `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Tier       string  `json:"tier,omitempty"`
	Excerpt    string  `json:"excerpt"`
	CreatedAt  string  `json:"created_at"`
}

// excerptRunes bounds the contract text returned per related result.
const excerptRunes = 300

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_contract",
		Description: "Analyze a contract for risks, compliance issues and recommendations, and store the result",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analysis_history",
		Description: "List recent contract analyses, most recent first",
	}, s.handleHistory)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "find_related",
			Description: "Find stored contracts related to the given text",
		}, s.handleRelated)
	}
}

// handleAnalyze runs the full pipeline for one contract.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	metadata := make(map[string]any, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	metadata["source"] = "mcp"

	result, err := s.ports.Pipeline.ProcessDocument(ctx, input.Title, input.Content, metadata)
	if err != nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("analyze contract: %w", err)
	}

	return nil, AnalyzeOutput{
		DocumentID:      result.DocumentID,
		RunID:           result.RunID,
		RiskLevel:       string(result.Analysis.RiskLevel),
		Risks:           result.Analysis.Risks,
		Compliance:      result.Analysis.Compliance,
		Recommendations: result.Analysis.Recommendations,
		Summary:         result.Analysis.Summary,
		Fallback:        result.Analysis.Fallback,
		Report:          result.Report,
		SimilarClauses:  result.SimilarClauses,
		Workflow:        result.Workflow,
	}, nil
}

// handleHistory lists recent analyses.
func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	entries, err := s.ports.Pipeline.ListHistory(ctx, input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("list history: %w", err)
	}

	output := HistoryOutput{
		Entries: make([]HistoryEntryOutput, len(entries)),
		Count:   len(entries),
	}
	for i, e := range entries {
		out := HistoryEntryOutput{
			DocumentID: e.DocumentID,
			Title:      e.Title,
			Status:     string(e.Status),
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
			Report:     e.Report,
		}
		if e.Analysis != nil {
			out.RiskLevel = string(e.Analysis.RiskLevel)
			out.Summary = e.Analysis.Summary
		}
		output.Entries[i] = out
	}
	return nil, output, nil
}

// handleRelated searches related contracts.
func (s *Server) handleRelated(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelatedInput,
) (*mcp.CallToolResult, RelatedOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RelatedOutput{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	minScore := domain.DefaultMinScore
	if input.MinScore != nil {
		minScore = *input.MinScore
	}

	results, err := s.ports.Retrieval.FindRelated(ctx, input.Query, input.Limit, minScore)
	if err != nil {
		return nil, RelatedOutput{}, fmt.Errorf("find related: %w", err)
	}

	output := RelatedOutput{
		Results: make([]RelatedResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = RelatedResultOutput{
			DocumentID: r.ID,
			Title:      r.Title,
			Score:      r.SimilarityScore,
			Tier:       r.Tier,
			Excerpt:    excerpt(r.Content, excerptRunes),
			CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return nil, output, nil
}

func excerpt(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
