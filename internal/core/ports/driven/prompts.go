package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptContractAnalysis asks for the JSON risk analysis.
	// The template expects %s (contract text) then %s (similar clauses section).
	PromptContractAnalysis = "contract_analysis"

	// PromptRiskReport asks for the stakeholder report.
	// The template expects, in order, %s placeholders for title, risk level,
	// risks, compliance issues and recommendations.
	PromptRiskReport = "risk_report"
)
