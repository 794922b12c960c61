package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// StageFunc runs one analysis stage, reading prior stage output from the
// case state and writing its own.
type StageFunc func(ctx context.Context, state *domain.CaseState, turn domain.Turn) error

// StageSpec declares one stage and the upstream stages whose completed
// output it reads. Requirements are enforced at construction, so a
// mis-ordered pipeline fails at startup instead of mid-turn.
type StageSpec struct {
	Name     domain.Stage
	Requires []domain.Stage
	Run      StageFunc
}

// Pipeline executes stages strictly in order. A stage whose reasoning call
// fails after one retry is marked degraded and the pipeline continues; a
// stage whose required upstream output is missing or degraded marks itself
// degraded without running, never fabricating inputs.
type Pipeline struct {
	stages []StageSpec
}

func NewPipeline(stages []StageSpec) (*Pipeline, error) {
	seen := make(map[domain.Stage]struct{}, len(stages))
	for _, spec := range stages {
		if spec.Run == nil {
			return nil, fmt.Errorf("pipeline: stage %s has no run function", spec.Name)
		}
		if _, ok := seen[spec.Name]; ok {
			return nil, fmt.Errorf("pipeline: stage %s declared twice", spec.Name)
		}
		for _, required := range spec.Requires {
			if _, ok := seen[required]; !ok {
				return nil, fmt.Errorf("pipeline: stage %s requires %s, which does not run before it", spec.Name, required)
			}
		}
		seen[spec.Name] = struct{}{}
	}
	return &Pipeline{stages: stages}, nil
}

func (p *Pipeline) Run(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	for _, spec := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if missing, ok := p.requirementsMet(state, spec); !ok {
			slog.Warn("stage_degraded_upstream", "stage", spec.Name, "requires", missing)
			state.MarkDegraded(spec.Name)
			continue
		}

		err := spec.Run(ctx, state, turn)
		if err != nil && ctx.Err() == nil {
			slog.Warn("stage_retry", "stage", spec.Name, "error", err)
			err = spec.Run(ctx, state, turn)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("stage_degraded", "stage", spec.Name, "error", err)
			state.MarkDegraded(spec.Name)
			continue
		}
		state.MarkComplete(spec.Name)
	}
	return nil
}

func (p *Pipeline) requirementsMet(state *domain.CaseState, spec StageSpec) (domain.Stage, bool) {
	for _, required := range spec.Requires {
		if state.Status(required) != domain.StageStatusComplete {
			return required, false
		}
	}
	return "", true
}

// NewSimplePipeline covers quick informational turns: identify the issue,
// resolve jurisdiction, recommend a course of action.
func NewSimplePipeline(stages *StageSet) (*Pipeline, error) {
	return NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: stages.IdentifyIssues},
		{Name: domain.StageJurisdiction, Run: stages.ResolveJurisdiction},
		{Name: domain.StageStrategy, Run: stages.RecommendStrategy},
	})
}

// NewComplexPipeline runs the full eight-stage analysis ending in an
// escalation brief.
func NewComplexPipeline(stages *StageSet) (*Pipeline, error) {
	return NewPipeline([]StageSpec{
		{Name: domain.StageIssueIdentification, Run: stages.IdentifyIssues},
		{Name: domain.StageJurisdiction, Run: stages.ResolveJurisdiction},
		{Name: domain.StageFactStructuring, Run: stages.StructureFacts},
		{
			Name:     domain.StageLegalElements,
			Requires: []domain.Stage{domain.StageJurisdiction, domain.StageFactStructuring},
			Run:      stages.MapLegalElements,
		},
		{Name: domain.StageCasePrecedent, Run: stages.FindPrecedents},
		{
			Name:     domain.StageRiskAnalysis,
			Requires: []domain.Stage{domain.StageLegalElements},
			Run:      stages.AssessRisks,
		},
		{Name: domain.StageStrategy, Run: stages.RecommendStrategy},
		{
			Name: domain.StageEscalationBrief,
			Requires: []domain.Stage{
				domain.StageIssueIdentification,
				domain.StageJurisdiction,
				domain.StageFactStructuring,
				domain.StageLegalElements,
				domain.StageCasePrecedent,
				domain.StageRiskAnalysis,
				domain.StageStrategy,
			},
			Run: stages.ComposeBrief,
		},
	})
}
