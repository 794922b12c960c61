package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

type fakeSearchService struct {
	result *domain.SearchResult
	err    error

	lastQuery        string
	lastJurisdiction string
	lastK            int
}

func (f *fakeSearchService) Search(_ context.Context, query, jurisdiction string, k int) (*domain.SearchResult, error) {
	f.lastQuery = query
	f.lastJurisdiction = jurisdiction
	f.lastK = k
	return f.result, f.err
}

type fakeWorkflow struct {
	result *domain.TurnResult
	err    error

	lastTurn domain.Turn
}

func (f *fakeWorkflow) HandleTurn(_ context.Context, turn domain.Turn) (*domain.TurnResult, error) {
	f.lastTurn = turn
	return f.result, f.err
}

func TestSearchEndpointReturnsResult(t *testing.T) {
	search := &fakeSearchService{result: &domain.SearchResult{Confidence: domain.ConfidenceHigh}}
	router := NewRouter(search, &fakeWorkflow{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/search", "application/json",
		strings.NewReader(`{"query": "repair obligations", "jurisdiction": "nsw", "k": 3}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if search.lastJurisdiction != "NSW" {
		t.Errorf("jurisdiction = %q, want uppercased NSW", search.lastJurisdiction)
	}
	if search.lastK != 3 {
		t.Errorf("k = %d, want 3", search.lastK)
	}

	var result domain.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %q", result.Confidence)
	}
}

func TestSearchEndpointMapsUncoveredStateToFallbackOnly(t *testing.T) {
	search := &fakeSearchService{result: &domain.SearchResult{Confidence: domain.ConfidenceNone}}
	router := NewRouter(search, &fakeWorkflow{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/search", "application/json",
		strings.NewReader(`{"query": "notice period for eviction", "jurisdiction": "vic"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if search.lastJurisdiction != domain.JurisdictionUnsupported {
		t.Errorf("jurisdiction = %q, want %q", search.lastJurisdiction, domain.JurisdictionUnsupported)
	}
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	router := NewRouter(&fakeSearchService{}, &fakeWorkflow{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/search", "application/json", strings.NewReader(`{"query": " "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchEndpointMapsRetrievalUnavailable(t *testing.T) {
	search := &fakeSearchService{
		err: domain.WrapError(domain.ErrRetrievalUnavailable, "search", errors.New("all sources down")),
	}
	router := NewRouter(search, &fakeWorkflow{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/search", "application/json", strings.NewReader(`{"query": "q"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestTurnEndpointPassesNormalizedTurn(t *testing.T) {
	workflow := &fakeWorkflow{result: &domain.TurnResult{ConversationID: "conv-1", Text: "answer"}}
	router := NewRouter(&fakeSearchService{}, workflow)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	body := `{"query": "eviction notice", "context": "{\"conversation_id\": \"conv-1\", \"state\": \"qld\"}"}`
	resp, err := http.Post(server.URL+"/v1/turns", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if workflow.lastTurn.Context.State != "QLD" {
		t.Errorf("state = %q, want QLD", workflow.lastTurn.Context.State)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Errorf("expected request id header on response")
	}
}

func TestTurnEndpointRejectsNonPost(t *testing.T) {
	router := NewRouter(&fakeSearchService{}, &fakeWorkflow{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/turns")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
