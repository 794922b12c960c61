package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func noopStage(_ context.Context, _ *domain.CaseState, _ domain.Turn) error { return nil }

func failingStage(_ context.Context, _ *domain.CaseState, _ domain.Turn) error {
	return domain.WrapError(domain.ErrStageDegraded, "test stage", errors.New("model down"))
}

func TestNewPipelineRejectsUnsatisfiableRequirement(t *testing.T) {
	_, err := NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: noopStage},
		{
			Name:     domain.StageLegalElements,
			Requires: []domain.Stage{domain.StageJurisdiction},
			Run:      noopStage,
		},
	})
	if err == nil {
		t.Fatal("expected construction error for requirement on an absent stage")
	}
}

func TestNewPipelineRejectsDuplicateStage(t *testing.T) {
	_, err := NewPipeline([]StageSpec{
		{Name: domain.StageStrategy, Run: noopStage},
		{Name: domain.StageStrategy, Run: noopStage},
	})
	if err == nil {
		t.Fatal("expected construction error for duplicate stage")
	}
}

func TestPipelineRetriesOnceThenDegrades(t *testing.T) {
	calls := 0
	flaky := func(_ context.Context, _ *domain.CaseState, _ domain.Turn) error {
		calls++
		return errors.New("transient")
	}
	p, err := NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: flaky},
		{Name: domain.StageStrategy, Run: noopStage},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	state := domain.NewCaseState()
	if err := p.Run(context.Background(), state, turnWithQuery("test")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Fatalf("stage calls = %d, want 2 (one retry)", calls)
	}
	if state.Status(domain.StageIssueIdentification) != domain.StageStatusDegraded {
		t.Fatalf("issue stage status = %v, want degraded", state.Status(domain.StageIssueIdentification))
	}
	if state.Status(domain.StageStrategy) != domain.StageStatusComplete {
		t.Fatal("pipeline must continue past a degraded stage")
	}
}

// A degraded jurisdiction stage must propagate: legal elements depends on it
// and may not run as if its inputs existed.
func TestPipelineDegradationPropagates(t *testing.T) {
	elementsRan := false
	riskRan := false
	p, err := NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: noopStage},
		{Name: domain.StageJurisdiction, Run: failingStage},
		{Name: domain.StageFactStructuring, Run: noopStage},
		{
			Name:     domain.StageLegalElements,
			Requires: []domain.Stage{domain.StageJurisdiction, domain.StageFactStructuring},
			Run: func(_ context.Context, _ *domain.CaseState, _ domain.Turn) error {
				elementsRan = true
				return nil
			},
		},
		{
			Name:     domain.StageRiskAnalysis,
			Requires: []domain.Stage{domain.StageLegalElements},
			Run: func(_ context.Context, _ *domain.CaseState, _ domain.Turn) error {
				riskRan = true
				return nil
			},
		},
		{Name: domain.StageStrategy, Run: noopStage},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	state := domain.NewCaseState()
	if err := p.Run(context.Background(), state, turnWithQuery("test")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elementsRan || riskRan {
		t.Fatal("dependent stages must not run on degraded inputs")
	}
	if state.Status(domain.StageLegalElements) != domain.StageStatusDegraded {
		t.Fatalf("legal elements status = %v, want degraded", state.Status(domain.StageLegalElements))
	}
	if state.Status(domain.StageRiskAnalysis) != domain.StageStatusDegraded {
		t.Fatalf("risk status = %v, want degraded", state.Status(domain.StageRiskAnalysis))
	}
	if state.Status(domain.StageStrategy) != domain.StageStatusComplete {
		t.Fatal("independent stages must still run")
	}
	if !state.Degraded() {
		t.Fatal("case state must report degradation")
	}
}

func TestPipelineStopsOnCancelledContext(t *testing.T) {
	ran := false
	p, err := NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: func(_ context.Context, _ *domain.CaseState, _ domain.Turn) error {
			ran = true
			return nil
		}},
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, domain.NewCaseState(), turnWithQuery("test")); err == nil {
		t.Fatal("expected context error")
	}
	if ran {
		t.Fatal("no stage may run after cancellation")
	}
}

func TestComplexPipelineConstructionIsValid(t *testing.T) {
	stages := NewStageSet(&fakeModel{response: "{}"}, nil)
	if _, err := NewComplexPipeline(stages); err != nil {
		t.Fatalf("NewComplexPipeline: %v", err)
	}
	if _, err := NewSimplePipeline(stages); err != nil {
		t.Fatalf("NewSimplePipeline: %v", err)
	}
}
