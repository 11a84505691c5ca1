package ports

import (
	"context"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// QueryAnswerer is the inbound contract for the retrieval-and-validation
// pipeline.
type QueryAnswerer interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	AnswerStream(ctx context.Context, req domain.QueryRequest, deliver func(chunk string) error) (*domain.QueryResponse, error)
}

// DocumentReader is the inbound read model for document metadata.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Document, error)
}
