package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/auslawai/legal-assistant/internal/core/ports"
	"github.com/auslawai/legal-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

// WithExecutor wraps every Ollama call in retry and circuit-breaker policy.
func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func New(baseURL, genModel, embedModel string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

// Embedder converts query text to dense vectors via the Ollama embed API.
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
		return nil, err
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

// ReasoningClient serves the classifier, stage, and response-assembly calls.
type ReasoningClient struct {
	client *Client
}

func NewReasoningClient(client *Client) *ReasoningClient {
	return &ReasoningClient{client: client}
}

func (r *ReasoningClient) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	request := map[string]any{
		"model":  r.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	if opts.JSON {
		request["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	err := r.client.execute(ctx, "ollama.generate", func(ctx context.Context) error {
		return r.client.postJSON(ctx, "/api/generate", request, &response, "generate")
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
