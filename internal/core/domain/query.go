package domain

// QueryComplexity is derived by the classifier and never stored.
type QueryComplexity string

const (
	ComplexitySimple  QueryComplexity = "simple"
	ComplexityComplex QueryComplexity = "complex"
	ComplexityUnknown QueryComplexity = "unknown"
)

// Intent is the coarse domain label assigned alongside complexity.
type Intent string

const (
	IntentDocumentQA Intent = "document_qa"
	IntentSummary    Intent = "summary"
	IntentComparison Intent = "comparison"
	IntentNavigation Intent = "navigation"
	IntentChitChat   Intent = "chit_chat"
	IntentUnknown    Intent = "unknown"
)

type Classification struct {
	Complexity QueryComplexity `json:"complexity"`
	Intent     Intent          `json:"intent"`
	Language   string          `json:"language,omitempty"`
}

// Query is immutable once received.
type Query struct {
	Text        string   `json:"text"`
	Language    string   `json:"language,omitempty"`
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type QuestionType string

const (
	QuestionFactual      QuestionType = "factual"
	QuestionComparison   QuestionType = "comparison"
	QuestionDefinition   QuestionType = "definition"
	QuestionProcedural   QuestionType = "procedural"
	QuestionNavigational QuestionType = "navigational"
)

// SubQuestion is one decomposition unit of a complex query. DependsOn
// references sibling sub-question ids whose retrieval context must be
// available first. Never mutated after the planner creates it.
type SubQuestion struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"type"`
	DependsOn []string     `json:"depends_on,omitempty"`
}

type ResponseProfile string

const (
	ProfileList         ResponseProfile = "list"
	ProfileComparison   ResponseProfile = "comparison"
	ProfileDeepAnalysis ResponseProfile = "deep_analysis"
)

// QueryPlan owns its sub-questions and is scoped to one query's lifetime.
// ExecutionOrder is a topological ordering over DependsOn.
type QueryPlan struct {
	SubQuestions   []SubQuestion   `json:"sub_questions"`
	ExecutionOrder []string        `json:"execution_order"`
	Profile        ResponseProfile `json:"profile"`
	Language       string          `json:"language,omitempty"`
}

func (p *QueryPlan) SubQuestionByID(id string) (SubQuestion, bool) {
	for _, sq := range p.SubQuestions {
		if sq.ID == id {
			return sq, true
		}
	}
	return SubQuestion{}, false
}
