package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

const defaultModel = "rerank-english-v3.0"

// Client scores fused candidates with the Cohere rerank API. Retrieval treats
// it as optional, so every failure here surfaces as a plain error and the
// caller keeps the fused ordering.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://api.cohere.com",
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank replaces each candidate's fused score with the cross-encoder
// relevance score. The returned slice keeps the input order; the caller
// re-sorts by the new scores.
func (c *Client) Rerank(ctx context.Context, query string, candidates []domain.FusedResult) ([]domain.FusedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = candidate.Chunk.Citation + "\n" + candidate.Chunk.Text
	}
	request := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      len(candidates),
	}

	var response rerankResponse
	if err := c.postJSON(ctx, "/v2/rerank", request, &response); err != nil {
		return nil, err
	}

	out := make([]domain.FusedResult, len(candidates))
	copy(out, candidates)
	seen := make(map[int]bool, len(response.Results))
	for _, result := range response.Results {
		if result.Index < 0 || result.Index >= len(out) || seen[result.Index] {
			return nil, fmt.Errorf("rerank result index %d out of range", result.Index)
		}
		seen[result.Index] = true
		out[result.Index].Score = result.RelevanceScore
	}
	if len(seen) != len(candidates) {
		return nil, fmt.Errorf("rerank returned %d scores for %d candidates", len(seen), len(candidates))
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cohere rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("cohere rerank status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}
