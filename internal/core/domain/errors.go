package domain

import (
	"errors"
	"fmt"
)

var (
	// Terminal user-facing states, never retried automatically.
	ErrNoDocuments         = errors.New("no documents uploaded")
	ErrNoRelevantDocuments = errors.New("no relevant documents")

	// Retryable layer failures; the caller decides retry count.
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrGenerationFailed = errors.New("generation failed")

	// Surfaced distinctly so the client can show a countdown.
	ErrRateLimited = errors.New("rate limited")

	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Suggestion returns an actionable hint for terminal retrieval states.
func Suggestion(err error) string {
	switch {
	case IsKind(err, ErrNoDocuments):
		return "upload at least one document before asking questions"
	case IsKind(err, ErrNoRelevantDocuments):
		return "try rephrasing the question or naming the document it concerns"
	case IsKind(err, ErrRateLimited):
		return "wait a minute before retrying"
	default:
		return ""
	}
}
