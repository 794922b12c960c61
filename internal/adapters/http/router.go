package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

type Router struct {
	search   ports.LegalSearchService
	workflow ports.TurnWorkflow
}

func NewRouter(search ports.LegalSearchService, workflow ports.TurnWorkflow) *Router {
	return &Router{
		search:   search,
		workflow: workflow,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.searchLegal)
	mux.HandleFunc("/v1/turns", rt.handleTurn)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) searchLegal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query        string `json:"query"`
		Jurisdiction string `json:"jurisdiction"`
		K            int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	// Known but uncovered states run in fallback-only mode; anything else is
	// passed through for core validation.
	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	if domain.IsKnownState(jurisdiction) || jurisdiction == "" {
		jurisdiction = domain.ResolveJurisdiction(jurisdiction)
	}

	result, err := rt.search.Search(r.Context(), req.Query, jurisdiction, req.K)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	turn, err := decodeTurn(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.workflow.HandleTurn(r.Context(), turn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
