package domain

import "strings"

// RiskLevel grades the overall risk of a contract.
type RiskLevel string

// Risk levels.
const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// IsValid returns true if the risk level is recognised.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow:
		return true
	default:
		return false
	}
}

// ParseRiskLevel normalises a model-supplied risk level.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh, true
	case "medium":
		return RiskMedium, true
	case "low":
		return RiskLow, true
	default:
		return "", false
	}
}

// String returns the string representation.
func (r RiskLevel) String() string {
	return string(r)
}

// Analysis is the structured output of generative analysis for one Document.
type Analysis struct {
	RiskLevel       RiskLevel `json:"riskLevel"`
	Risks           []string  `json:"risks"`
	Compliance      []string  `json:"compliance"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`

	// Fallback is true when the analysis was substituted after the
	// language model timed out or returned unusable output.
	Fallback bool `json:"fallback,omitempty"`
}

// ProcessingResult is the envelope returned by a successful pipeline run.
type ProcessingResult struct {
	Success        bool            `json:"success"`
	DocumentID     int64           `json:"documentId"`
	RunID          string          `json:"runId"`
	Analysis       Analysis        `json:"analysis"`
	Report         string          `json:"report"`
	SimilarClauses int             `json:"similarClauses"`
	Related        []SimilarClause `json:"related,omitempty"`

	// Workflow lists a human-readable description of each completed stage.
	// It is for observability only.
	Workflow []string `json:"workflow"`
}
