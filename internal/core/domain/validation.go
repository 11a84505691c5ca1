package domain

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityFixable  Severity = "fixable"
	SeverityWarning  Severity = "warning"
)

type RuleCategory string

const (
	CategoryCitations  RuleCategory = "citations"
	CategoryFormatting RuleCategory = "formatting"
	CategoryStructure  RuleCategory = "structure"
	CategoryContent    RuleCategory = "content"
	CategoryQuality    RuleCategory = "quality"
)

type RecommendedAction string

const (
	ActionPass       RecommendedAction = "pass"
	ActionReformat   RecommendedAction = "reformat"
	ActionRegenerate RecommendedAction = "regenerate"
	ActionFallback   RecommendedAction = "fallback"
)

// ValidationResult is one validator's verdict over a generated answer.
type ValidationResult struct {
	RuleID   string       `json:"rule_id"`
	Category RuleCategory `json:"category"`
	Severity Severity     `json:"severity"`
	Passed   bool         `json:"passed"`
	Message  string       `json:"message,omitempty"`
	Fixable  bool         `json:"fixable"`
}

// ValidationReport aggregates all rule verdicts. It is owned by the
// validation call and discarded after the caller acts on it.
type ValidationReport struct {
	QualityScore      int                `json:"quality_score"`
	Errors            []ValidationResult `json:"errors,omitempty"`
	Fixable           []ValidationResult `json:"fixable,omitempty"`
	Warnings          []ValidationResult `json:"warnings,omitempty"`
	RecommendedAction RecommendedAction  `json:"recommended_action"`
}

func (r *ValidationReport) HasCritical() bool {
	return len(r.Errors) > 0
}

// AnswerContext carries the metadata validators check a generated answer
// against: which documents were actually in the prompt, what the user asked
// for, and how the answer should be shaped.
type AnswerContext struct {
	Query       string
	Intent      Intent
	Profile     ResponseProfile
	DocumentIDs []string
	Titles      []string
	Chunks      []TaggedChunk
}
