package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

// Sampling options for the two generation stages.
var (
	analysisOptions = driven.GenerateOptions{MaxTokens: 800, Temperature: 0.3, JSON: true}
	reportOptions   = driven.GenerateOptions{MaxTokens: 400, Temperature: 0.2}
)

// similarClausePreviewRunes bounds how much of each related contract is quoted.
const similarClausePreviewRunes = 500

// defaultAnalysisPrompt is used when no PromptStore is configured.
const defaultAnalysisPrompt = `You are a legal contract analysis expert. Analyze the provided contract and identify potential risks, compliance issues, and recommendations.

Contract to analyze:
%s
%s
Please provide a comprehensive analysis in the following JSON format:
{
  "riskLevel": "High|Medium|Low",
  "risks": ["list of identified risks"],
  "compliance": ["compliance issues found"],
  "recommendations": ["recommendations for improvement"],
  "summary": "brief executive summary"
}

Respond only with valid JSON:`

// defaultReportPrompt is used when no PromptStore is configured.
const defaultReportPrompt = `Generate a professional risk assessment report based on the following contract analysis:

Contract: %s
Risk Level: %s
Risks: %s
Compliance Issues: %s
Recommendations: %s

Create a concise executive summary suitable for stakeholders (2-3 paragraphs):`

// DefaultPrompts returns the built-in templates keyed by prompt name.
// Prompt stores seed user-editable files from it.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptContractAnalysis: defaultAnalysisPrompt,
		driven.PromptRiskReport:       defaultReportPrompt,
	}
}

// textGenerator is satisfied by Gateway.
type textGenerator interface {
	Generate(ctx context.Context, prompt string, opts driven.GenerateOptions, timeout time.Duration) (string, error)
}

// AnalysisService produces the structured risk analysis and the narrative
// report for a contract. Both stages always return usable content: any
// generation or parse failure yields a deterministic fallback.
type AnalysisService struct {
	llm             textGenerator
	prompts         driven.PromptStore
	analysisTimeout time.Duration
	reportTimeout   time.Duration
}

// NewAnalysisService creates an analysis service. prompts may be nil.
func NewAnalysisService(
	llm textGenerator, prompts driven.PromptStore, analysisTimeout, reportTimeout time.Duration,
) *AnalysisService {
	defaults := domain.DefaultPipelineSettings()
	if analysisTimeout <= 0 {
		analysisTimeout = defaults.AnalysisTimeout
	}
	if reportTimeout <= 0 {
		reportTimeout = defaults.ReportTimeout
	}
	return &AnalysisService{
		llm:             llm,
		prompts:         prompts,
		analysisTimeout: analysisTimeout,
		reportTimeout:   reportTimeout,
	}
}

// Analyze asks the model for a JSON risk analysis of content.
// Timeouts, generation errors and unparseable output all return
// FallbackAnalysis; the returned error reports why, for tracing only.
func (s *AnalysisService) Analyze(
	ctx context.Context, content string, related []domain.SimilarClause,
) (domain.Analysis, error) {
	prompt := fmt.Sprintf(s.template(driven.PromptContractAnalysis, defaultAnalysisPrompt),
		content, similarClausesSection(related))

	text, err := s.llm.Generate(ctx, prompt, analysisOptions, s.analysisTimeout)
	if err != nil {
		return FallbackAnalysis(), err
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		return FallbackAnalysis(), err
	}
	return analysis, nil
}

// GenerateReport asks the model for a stakeholder summary of analysis.
// Any failure, including an empty response, returns FallbackReport.
func (s *AnalysisService) GenerateReport(
	ctx context.Context, analysis domain.Analysis, title string,
) (string, error) {
	prompt := fmt.Sprintf(s.template(driven.PromptRiskReport, defaultReportPrompt),
		title,
		analysis.RiskLevel,
		joinOr(analysis.Risks, "None identified"),
		joinOr(analysis.Compliance, "None identified"),
		joinOr(analysis.Recommendations, "None provided"),
	)

	text, err := s.llm.Generate(ctx, prompt, reportOptions, s.reportTimeout)
	if err != nil {
		return FallbackReport(analysis, title), err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReport(analysis, title), fmt.Errorf("%w: empty report", domain.ErrGenerationFailed)
	}
	return text, nil
}

// template loads a prompt, falling back to the built-in text.
// A customised prompt must keep the same number of %s placeholders.
// Any other percent sign is taken literally.
func (s *AnalysisService) template(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Debug("Analysis: using built-in %s prompt: %v", name, err)
		return fallback
	}
	prompt, got := escapeLiteralPercents(prompt)
	if _, want := escapeLiteralPercents(fallback); got != want {
		logger.Warn("Prompt %s has %d placeholders, expected %d; using built-in prompt", name, got, want)
		return fallback
	}
	return prompt
}

// escapeLiteralPercents doubles every percent sign that does not start a %s
// verb or a %% escape, and counts the %s verbs.
func escapeLiteralPercents(prompt string) (string, int) {
	var b strings.Builder
	b.Grow(len(prompt))
	verbs := 0
	for i := 0; i < len(prompt); i++ {
		c := prompt[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(prompt) && (prompt[i+1] == 's' || prompt[i+1] == '%') {
			if prompt[i+1] == 's' {
				verbs++
			}
			b.WriteByte('%')
			b.WriteByte(prompt[i+1])
			i++
			continue
		}
		b.WriteString("%%")
	}
	return b.String(), verbs
}

// similarClausesSection quotes related contracts for the analysis prompt.
func similarClausesSection(related []domain.SimilarClause) string {
	if len(related) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nSimilar clauses from previous contracts:\n")
	for i, clause := range related {
		fmt.Fprintf(&b, "%d. %s...\n", i+1, runeSlice(clause.Content, 0, similarClausePreviewRunes))
	}
	return b.String()
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

// analysisPayload is the JSON shape requested from the model.
type analysisPayload struct {
	RiskLevel       string   `json:"riskLevel"`
	Risks           []string `json:"risks"`
	Compliance      []string `json:"compliance"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// ParseAnalysis extracts the first balanced JSON object from model output
// and decodes it as an Analysis. The risk level must be High, Medium or Low.
func ParseAnalysis(text string) (domain.Analysis, error) {
	span, ok := ExtractJSONObject(text)
	if !ok {
		return domain.Analysis{}, fmt.Errorf("%w: no JSON object in response", domain.ErrGenerationFailed)
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: decode analysis: %w", domain.ErrGenerationFailed, err)
	}

	level, ok := domain.ParseRiskLevel(payload.RiskLevel)
	if !ok {
		return domain.Analysis{}, fmt.Errorf("%w: invalid risk level %q",
			domain.ErrGenerationFailed, payload.RiskLevel)
	}

	return domain.Analysis{
		RiskLevel:       level,
		Risks:           nonNil(payload.Risks),
		Compliance:      nonNil(payload.Compliance),
		Recommendations: nonNil(payload.Recommendations),
		Summary:         strings.TrimSpace(payload.Summary),
	}, nil
}

// ExtractJSONObject returns the first balanced {...} span in text.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// FallbackAnalysis is returned when the model cannot produce an analysis.
func FallbackAnalysis() domain.Analysis {
	return domain.Analysis{
		RiskLevel:       domain.RiskMedium,
		Risks:           []string{"Automated analysis unavailable - LLM connection timeout"},
		Compliance:      []string{"Manual review required due to system limitations"},
		Recommendations: []string{"Review contract manually", "Check LLM service status"},
		Summary:         "Analysis completed with fallback due to LLM service timeout. Manual review recommended.",
		Fallback:        true,
	}
}

// FallbackReport formats analysis as a plain-text report without the model.
func FallbackReport(analysis domain.Analysis, title string) string {
	var b strings.Builder

	b.WriteString("RISK ASSESSMENT REPORT\n\n")
	fmt.Fprintf(&b, "Contract: %s\n", title)
	fmt.Fprintf(&b, "Risk Level: %s\n\n", analysis.RiskLevel)

	b.WriteString("EXECUTIVE SUMMARY:\n")
	b.WriteString(analysis.Summary)
	b.WriteString("\n\n")

	writeBullets(&b, "IDENTIFIED RISKS:", analysis.Risks, "No specific risks identified")
	writeBullets(&b, "COMPLIANCE ISSUES:", analysis.Compliance, "No compliance issues found")
	writeBullets(&b, "RECOMMENDATIONS:", analysis.Recommendations, "No specific recommendations")

	b.WriteString("Note: This report was generated with fallback formatting due to AI service limitations. ")
	b.WriteString("Manual review recommended for critical contracts.")
	return b.String()
}

func writeBullets(b *strings.Builder, heading string, items []string, empty string) {
	b.WriteString(heading)
	b.WriteString("\n")
	if len(items) == 0 {
		items = []string{empty}
	}
	for _, item := range items {
		fmt.Fprintf(b, "• %s\n", item)
	}
	b.WriteString("\n")
}
