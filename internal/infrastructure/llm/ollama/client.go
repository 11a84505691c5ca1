package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/askdocs/askdocs/internal/core/ports"
	"github.com/askdocs/askdocs/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.execute(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapDomainError("embed query", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ports.GenerateOptions) (string, error) {
	request := g.client.generateRequest(systemPrompt, userPrompt, opts, false)

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.execute(ctx, "ollama.generate", func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/generate", request, &response, "generate")
	})
	if err != nil {
		return "", wrapDomainError("generate answer", err)
	}
	return strings.TrimSpace(response.Response), nil
}

// GenerateStream delivers model output incrementally and returns the full
// accumulated text. It is not retried: once chunks reached the caller a
// replay would duplicate them.
func (g *Generator) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, opts ports.GenerateOptions, deliver func(chunk string) error) (string, error) {
	request := g.client.generateRequest(systemPrompt, userPrompt, opts, true)

	full, err := g.client.postStream(ctx, "/api/generate", request, deliver)
	if err != nil {
		return "", wrapDomainError("generate answer stream", err)
	}
	return strings.TrimSpace(full), nil
}

func (c *Client) generateRequest(systemPrompt, userPrompt string, opts ports.GenerateOptions, stream bool) map[string]any {
	request := map[string]any{
		"model":  c.genModel,
		"prompt": userPrompt,
		"stream": stream,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}

	options := map[string]any{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		request["options"] = options
	}
	return request
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOllamaError)
}
