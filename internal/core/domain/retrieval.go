package domain

// FusionWeights multiply each signal's reciprocal-rank contribution before
// the per-chunk sum.
type FusionWeights struct {
	Lexical float64 `json:"lexical"`
	Vector  float64 `json:"vector"`
	Title   float64 `json:"title"`
}

// SignalClass is the detected query type driving weight selection.
type SignalClass string

const (
	SignalEntity       SignalClass = "entity"
	SignalNavigational SignalClass = "navigational"
	SignalSemantic     SignalClass = "semantic"
	SignalHybrid       SignalClass = "hybrid"
)

// RetrievedChunk is the raw output of one retrieval call.
type RetrievedChunk struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	ChunkType     string  `json:"chunk_type,omitempty"`
	MicroSummary  string  `json:"micro_summary,omitempty"`
	Location      string  `json:"location,omitempty"`
}

// TaggedChunk ties a retrieved chunk to the sub-question that produced it.
// FinalScore is what the aggregator sorts and deduplicates on.
type TaggedChunk struct {
	RetrievedChunk
	SourceSubQuestionID string  `json:"source_sub_question_id"`
	RerankScore         float64 `json:"rerank_score,omitempty"`
	FinalScore          float64 `json:"final_score"`
}

// SearchFilter scopes a vector or lexical search to a user's corpus and
// optionally to a single routed document.
type SearchFilter struct {
	UserID        string
	DocumentID    string
	DocumentIDs   []string
	MinSimilarity float64
}

type Source struct {
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	Content       string `json:"content"`
}

type AnswerMetadata struct {
	SubQuestionsCount int              `json:"sub_questions_count"`
	ChunksRetrieved   int              `json:"chunks_retrieved"`
	UniqueDocuments   int              `json:"unique_documents"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	QualityScore      int              `json:"quality_score"`
	Action            string           `json:"action,omitempty"`
	LatenciesMS       map[string]int64 `json:"latencies_ms,omitempty"`
}

type QueryRequest struct {
	Query       string   `json:"query"`
	UserID      string   `json:"user_id"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type QueryResponse struct {
	Answer   string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata AnswerMetadata `json:"metadata"`
}
