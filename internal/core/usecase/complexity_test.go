package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func TestRouteAttachedDocumentAlwaysComplex(t *testing.T) {
	model := &fakeModel{response: `{"path": "simple"}`}
	router := NewComplexityRouter(model)

	turn := turnWithQuery("what are my rights as a tenant")
	turn.Context.DocumentURL = "https://uploads.example/lease.pdf"

	if got := router.Route(context.Background(), turn, domain.NewCaseState()); got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
	if model.calls != 0 {
		t.Fatal("document heuristic must not consult the model")
	}
}

func TestRouteSecondaryIssuesForceComplex(t *testing.T) {
	state := domain.NewCaseState()
	state.Issues = &domain.IssueClassification{
		PrimaryIssue: domain.LegalIssue{Area: "tenancy"},
		SecondaryIssues: []domain.LegalIssue{
			{Area: "consumer"}, {Area: "employment"},
		},
	}
	router := NewComplexityRouter(&fakeModel{})
	if got := router.Route(context.Background(), turnWithQuery("please help me sort this out"), state); got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
}

func TestRouteHighScoreForcesComplex(t *testing.T) {
	state := domain.NewCaseState()
	state.Issues = &domain.IssueClassification{ComplexityScore: 0.7}
	router := NewComplexityRouter(&fakeModel{})
	if got := router.Route(context.Background(), turnWithQuery("a question about my lease terms"), state); got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
}

func TestRouteDisputeTermsRaiseComputedScore(t *testing.T) {
	model := &fakeModel{}
	router := NewComplexityRouter(model)
	query := "my landlord started a tribunal dispute and I may need a lawyer for the court date"
	if got := router.Route(context.Background(), turnWithQuery(query), domain.NewCaseState()); got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
	if model.calls != 0 {
		t.Fatal("computed score should decide without the model")
	}
}

func TestRouteMultipleJurisdictionsForceComplex(t *testing.T) {
	state := domain.NewCaseState()
	state.Issues = &domain.IssueClassification{MultipleJurisdictions: true, ComplexityScore: 0.1}
	router := NewComplexityRouter(&fakeModel{})
	if got := router.Route(context.Background(), turnWithQuery("which rules apply to my situation here"), state); got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
}

func TestRouteSimplePatternShortQuery(t *testing.T) {
	model := &fakeModel{}
	router := NewComplexityRouter(model)
	got := router.Route(context.Background(), turnWithQuery("What are my rights as a tenant in NSW?"), domain.NewCaseState())
	if got != domain.PathSimple {
		t.Fatalf("path = %v, want simple", got)
	}
	if model.calls != 0 {
		t.Fatal("simple pattern must not consult the model")
	}
}

func TestRouteUncertainFallsBackToModel(t *testing.T) {
	model := &fakeModel{response: `{"path": "complex", "reasoning": "contested facts"}`}
	router := NewComplexityRouter(model)
	got := router.Route(context.Background(), turnWithQuery("my neighbour built over the boundary line last spring"), domain.NewCaseState())
	if got != domain.PathComplex {
		t.Fatalf("path = %v, want complex", got)
	}
	if model.calls != 1 {
		t.Fatalf("model calls = %d, want 1", model.calls)
	}
	if !model.opts[0].Internal {
		t.Fatal("routing call must be internal")
	}
}

func TestRouteModelFailureDefaultsToSimple(t *testing.T) {
	cases := []*fakeModel{
		{err: errors.New("model down")},
		{response: "garbage"},
		{response: `{"path": "medium"}`},
	}
	for _, model := range cases {
		router := NewComplexityRouter(model)
		got := router.Route(context.Background(), turnWithQuery("my neighbour built over the boundary line last spring"), domain.NewCaseState())
		if got != domain.PathSimple {
			t.Fatalf("path = %v, want simple", got)
		}
	}
}
