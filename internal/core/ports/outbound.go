package ports

import (
	"context"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// Embedder builds vectors for query text. Deterministic for identical
// input within a session.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore performs dense and lexical search over a user's chunk index.
type VectorStore interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
	SearchLexical(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)
}

// RerankResult is one scored entry from the reranking service, ordered by
// relevance descending.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Reranker is the second-pass relevance scorer. Failure must be treated as
// "keep fusion order" by the caller, never as a request failure.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

// GenerateOptions tunes one generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// AnswerGenerator is the generative model contract. Stream delivers chunks
// as produced; validation always runs on the final complete text.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions, deliver func(chunk string) error) (string, error)
}

// DocumentStore is the read-only metadata lookup used for citation
// formatting and document routing.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Document, error)
}

// AuditEvent is published after every validated answer for offline quality
// analysis.
type AuditEvent struct {
	RequestID    string                  `json:"request_id"`
	UserID       string                  `json:"user_id"`
	Intent       domain.Intent           `json:"intent"`
	QualityScore int                     `json:"quality_score"`
	Action       domain.RecommendedAction `json:"action"`
	RuleFailures []string                `json:"rule_failures,omitempty"`
}

// AuditQueue publishes and consumes validation audit events.
type AuditQueue interface {
	PublishAudit(ctx context.Context, event AuditEvent) error
	SubscribeAudits(ctx context.Context, handler func(context.Context, AuditEvent) error) error
	Close()
}
