package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func candidateFixture() []domain.FusedResult {
	return []domain.FusedResult{
		{Chunk: domain.Chunk{ID: "c1", Citation: "Residential Tenancies Act 2010 (NSW) s 63", Text: "repairs duty"}, Score: 0.031},
		{Chunk: domain.Chunk{ID: "c2", Citation: "Residential Tenancies Act 2010 (NSW) s 64", Text: "urgent repairs"}, Score: 0.027},
	}
}

func TestRerankReplacesScoresByIndex(t *testing.T) {
	var captured rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/rerank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.91},{"index":0,"relevance_score":0.34}]}`))
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))
	out, err := client.Rerank(context.Background(), "landlord repairs", candidateFixture())
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}

	if captured.Model != defaultModel {
		t.Errorf("model = %q, want %q", captured.Model, defaultModel)
	}
	if captured.TopN != 2 || len(captured.Documents) != 2 {
		t.Errorf("top_n = %d, documents = %d", captured.TopN, len(captured.Documents))
	}
	if out[0].Chunk.ID != "c1" || out[1].Chunk.ID != "c2" {
		t.Fatalf("input order not preserved: %s, %s", out[0].Chunk.ID, out[1].Chunk.ID)
	}
	if out[0].Score != 0.34 || out[1].Score != 0.91 {
		t.Errorf("scores = %v, %v; want 0.34, 0.91", out[0].Score, out[1].Score)
	}
}

func TestRerankRejectsIncompleteResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.5}]}`))
	}))
	defer server.Close()

	client := New("test-key", WithBaseURL(server.URL))
	if _, err := client.Rerank(context.Background(), "q", candidateFixture()); err == nil {
		t.Fatalf("expected error for missing scores")
	}
}

func TestRerankSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New("bad-key", WithBaseURL(server.URL))
	if _, err := client.Rerank(context.Background(), "q", candidateFixture()); err == nil {
		t.Fatalf("expected error for http 401")
	}
}

func TestRerankEmptyInputSkipsCall(t *testing.T) {
	client := New("test-key", WithBaseURL("http://127.0.0.1:1"))
	out, err := client.Rerank(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil output for empty input")
	}
}
