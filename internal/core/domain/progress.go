package domain

// Stage identifies a pipeline step for progress reporting.
type Stage string

// Pipeline stages in execution order.
const (
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageAnalyze  Stage = "analyze"
	StageReport   Stage = "report"
	StageStore    Stage = "store"
	StageNotify   Stage = "notify"
	StageComplete Stage = "complete"
)

// Stages lists every Stage in execution order.
func Stages() []Stage {
	return []Stage{StageEmbed, StageRetrieve, StageAnalyze, StageReport, StageStore, StageNotify, StageComplete}
}

// Label returns a short human-readable name for the stage.
func (s Stage) Label() string {
	switch s {
	case StageEmbed:
		return "Embedding"
	case StageRetrieve:
		return "Related contracts"
	case StageAnalyze:
		return "Analysis"
	case StageReport:
		return "Risk report"
	case StageStore:
		return "Storing"
	case StageNotify:
		return "Notification"
	case StageComplete:
		return "Complete"
	default:
		return unknownDescription
	}
}

// ProgressFunc observes stage transitions of a single pipeline run.
// It is called synchronously from the run's goroutine.
type ProgressFunc func(stage Stage, detail string)
