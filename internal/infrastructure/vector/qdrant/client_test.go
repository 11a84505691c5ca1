package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/askdocs/askdocs/internal/core/domain"
)

func qdrantStub(t *testing.T, capture *map[string]any, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/document_chunks/points/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

const pointsResponse = `{"result":{"points":[
	{"score":0.91,"payload":{"chunk_id":"c1","doc_id":"doc-1","title":"Employee Handbook","text":"vacation days","chunk_type":"paragraph","micro_summary":"vacation policy","location":"page 4"}},
	{"score":0.42,"payload":{"chunk_id":"c2","doc_id":"doc-2","title":"Budget","text":"numbers"}}
]}}`

func TestSearchSendsDenseQueryAndDecodesPayload(t *testing.T) {
	var captured map[string]any
	server := qdrantStub(t, &captured, pointsResponse)
	defer server.Close()

	client := New(server.URL, "document_chunks")
	chunks, err := client.Search(context.Background(), []float32{0.1, 0.2}, 30, domain.SearchFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if captured["using"] != "dense" {
		t.Fatalf("expected dense named vector, got %v", captured["using"])
	}
	if captured["limit"] != float64(30) {
		t.Fatalf("expected limit 30, got %v", captured["limit"])
	}
	if captured["with_payload"] != true {
		t.Fatalf("expected with_payload, got %v", captured["with_payload"])
	}
	if _, hasThreshold := captured["score_threshold"]; hasThreshold {
		t.Fatalf("expected no score threshold without a minimum similarity")
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	first := chunks[0]
	if first.ChunkID != "c1" || first.DocumentID != "doc-1" || first.Score != 0.91 {
		t.Fatalf("unexpected first chunk %+v", first)
	}
	if first.DocumentTitle != "Employee Handbook" || first.Location != "page 4" || first.MicroSummary != "vacation policy" {
		t.Fatalf("expected payload metadata decoded, got %+v", first)
	}
}

func TestSearchAppliesFilterAndThreshold(t *testing.T) {
	var captured map[string]any
	server := qdrantStub(t, &captured, `{"result":{"points":[]}}`)
	defer server.Close()

	client := New(server.URL, "document_chunks")
	filter := domain.SearchFilter{UserID: "u1", DocumentID: "doc-7", MinSimilarity: 0.25}
	if _, err := client.Search(context.Background(), []float32{0.1}, 5, filter); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if captured["score_threshold"] != 0.25 {
		t.Fatalf("expected score threshold forwarded, got %v", captured["score_threshold"])
	}
	conditions, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("expected filter conditions, got %v", captured["filter"])
	}
	must, ok := conditions["must"].([]any)
	if !ok || len(must) != 2 {
		t.Fatalf("expected user and document conditions, got %v", conditions)
	}
}

func TestSearchLexicalSendsSparseVector(t *testing.T) {
	var captured map[string]any
	server := qdrantStub(t, &captured, `{"result":{"points":[]}}`)
	defer server.Close()

	client := New(server.URL, "document_chunks")
	if _, err := client.SearchLexical(context.Background(), "budget report", 10, domain.SearchFilter{UserID: "u1"}); err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}

	if captured["using"] != "lexical" {
		t.Fatalf("expected lexical named vector, got %v", captured["using"])
	}
	sparse, ok := captured["query"].(map[string]any)
	if !ok {
		t.Fatalf("expected sparse query object, got %v", captured["query"])
	}
	indices, ok := sparse["indices"].([]any)
	if !ok || len(indices) != 2 {
		t.Fatalf("expected 2 hashed terms, got %v", sparse["indices"])
	}
}

func TestSearchLexicalEmptyQueryShortCircuits(t *testing.T) {
	client := New("http://unreachable.invalid", "document_chunks")
	chunks, err := client.SearchLexical(context.Background(), "?!", 10, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("SearchLexical() error = %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected no results for an empty encoding, got %v", chunks)
	}
}

func TestSearchStatusErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "document_chunks")
	if _, err := client.Search(context.Background(), []float32{0.1}, 5, domain.SearchFilter{}); err == nil {
		t.Fatalf("expected status error")
	}
}
