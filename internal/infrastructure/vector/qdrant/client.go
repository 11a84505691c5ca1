package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// Client searches a collection holding one point per chunk with two named
// vectors: "dense" for embeddings and "lexical" for hashed sparse terms.
// The ingestion service owns the collection schema and writes the points.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"query":        queryVector,
		"using":        "dense",
		"limit":        limit,
		"with_payload": true,
	}
	if filter.MinSimilarity > 0 {
		reqBody["score_threshold"] = filter.MinSimilarity
	}
	if conditions := buildFilter(filter); conditions != nil {
		reqBody["filter"] = conditions
	}

	return c.queryPoints(ctx, reqBody, "dense search")
}

func (c *Client) SearchLexical(
	ctx context.Context,
	queryText string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	sparse := encodeSparseQuery(queryText)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query":        sparse,
		"using":        "lexical",
		"limit":        limit,
		"with_payload": true,
	}
	if conditions := buildFilter(filter); conditions != nil {
		reqBody["filter"] = conditions
	}

	return c.queryPoints(ctx, reqBody, "lexical search")
}

func (c *Client) queryPoints(ctx context.Context, reqBody map[string]any, operation string) ([]domain.RetrievedChunk, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
		}
		return nil, fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}

	out := make([]domain.RetrievedChunk, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		out = append(out, domain.RetrievedChunk{
			ChunkID:       getStringPayload(p.Payload, "chunk_id"),
			DocumentID:    getStringPayload(p.Payload, "doc_id"),
			DocumentTitle: getStringPayload(p.Payload, "title"),
			Text:          getStringPayload(p.Payload, "text"),
			ChunkType:     getStringPayload(p.Payload, "chunk_type"),
			MicroSummary:  getStringPayload(p.Payload, "micro_summary"),
			Location:      getStringPayload(p.Payload, "location"),
			Score:         p.Score,
		})
	}
	return out, nil
}

func buildFilter(filter domain.SearchFilter) map[string]any {
	must := make([]map[string]any, 0, 2)
	if filter.UserID != "" {
		must = append(must, map[string]any{
			"key":   "user_id",
			"match": map[string]any{"value": filter.UserID},
		})
	}
	switch {
	case filter.DocumentID != "":
		must = append(must, map[string]any{
			"key":   "doc_id",
			"match": map[string]any{"value": filter.DocumentID},
		})
	case len(filter.DocumentIDs) > 0:
		must = append(must, map[string]any{
			"key":   "doc_id",
			"match": map[string]any{"any": filter.DocumentIDs},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
