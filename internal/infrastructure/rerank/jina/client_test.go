package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/askdocs/askdocs/internal/infrastructure/resilience"
)

func TestRerankSendsRequestAndDecodesResults(t *testing.T) {
	var captured map[string]any
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/rerank" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.92},{"index":0,"relevance_score":0.41}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "jina-reranker-v2", "secret-key", nil)
	results, err := client.Rerank(context.Background(), "vacation policy", []string{"doc one", "doc two"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if captured["model"] != "jina-reranker-v2" {
		t.Fatalf("expected model in request, got %v", captured["model"])
	}
	if captured["query"] != "vacation policy" {
		t.Fatalf("expected query in request, got %v", captured["query"])
	}
	docs, ok := captured["documents"].([]any)
	if !ok || len(docs) != 2 {
		t.Fatalf("expected 2 documents in request, got %v", captured["documents"])
	}
	if captured["top_n"] != float64(2) {
		t.Fatalf("expected top_n 2, got %v", captured["top_n"])
	}
	if authHeader != "Bearer secret-key" {
		t.Fatalf("expected bearer auth header, got %q", authHeader)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 || results[0].RelevanceScore != 0.92 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Index != 0 || results[1].RelevanceScore != 0.41 {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestRerankOmitsAuthHeaderWithoutKey(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "jina-reranker-v2", "", nil)
	if _, err := client.Rerank(context.Background(), "q", []string{"doc"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if authHeader != "" {
		t.Fatalf("expected no auth header, got %q", authHeader)
	}
}

func TestRerankSkipsCallForEmptyInput(t *testing.T) {
	client := New("http://127.0.0.1:1", "jina-reranker-v2", "", nil)
	results, err := client.Rerank(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("expected nil error for empty input, got %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for empty input, got %v", results)
	}
}

func TestRerankRejectsOutOfRangeIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"index":5,"relevance_score":0.9}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "jina-reranker-v2", "", nil)
	if _, err := client.Rerank(context.Background(), "q", []string{"only doc"}); err == nil {
		t.Fatalf("expected out of range error, got nil")
	}
}

func TestRerankRetriesServerErrorThroughExecutor(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.7}]}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     1 * time.Millisecond,
		RetryMultiplier:     1,
		BreakerEnabled:      false,
	})

	client := New(server.URL, "jina-reranker-v2", "", executor)
	results, err := client.Rerank(context.Background(), "q", []string{"doc"})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if len(results) != 1 || results[0].RelevanceScore != 0.7 {
		t.Fatalf("unexpected results after retry: %+v", results)
	}
}

func TestClassifyRerankError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    resilience.ErrorClassification
		wantErr bool
	}{
		{
			name: "throttled retries without opening circuit",
			err:  &statusError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests"},
			want: resilience.ErrorClassification{Retryable: true, RecordFailure: false},
		},
		{
			name: "server error retries and records failure",
			err:  &statusError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"},
			want: resilience.ErrorClassification{Retryable: true, RecordFailure: true},
		},
		{
			name: "client error neither retries nor records",
			err:  &statusError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"},
			want: resilience.ErrorClassification{},
		},
		{
			name: "canceled context is ignored",
			err:  context.Canceled,
			want: resilience.ErrorClassification{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyRerankError(tc.err)
			if got.Retryable != tc.want.Retryable || got.RecordFailure != tc.want.RecordFailure {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestStatusErrorMessageIncludesBody(t *testing.T) {
	err := &statusError{StatusCode: 503, Status: "503 Service Unavailable", Body: "upstream overloaded"}
	if got := err.Error(); got != "rerank status: 503 Service Unavailable: upstream overloaded" {
		t.Fatalf("unexpected error message %q", got)
	}
}
