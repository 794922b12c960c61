package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

const (
	stageRetrievalK      = 5
	stageMaxExcerptChars = 1500
)

// StageSet implements the eight analysis stages. Stages read prior output
// from the case state, call the reasoning model with a constrained JSON
// schema, and write their typed result back. Retrieval-backed stages treat
// search failure as loss of grounding, not stage failure.
type StageSet struct {
	model  ports.ReasoningModel
	search ports.LegalSearchService
}

func NewStageSet(model ports.ReasoningModel, search ports.LegalSearchService) *StageSet {
	return &StageSet{model: model, search: search}
}

// decodeStageJSON parses the model output for a stage. Failures degrade the
// stage rather than the turn.
func decodeStageJSON(stage domain.Stage, raw string, out any) error {
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), out); err != nil {
		return domain.WrapError(domain.ErrStageDegraded, string(stage), err)
	}
	return nil
}

func (s *StageSet) generate(ctx context.Context, stage domain.Stage, prompt string, out any) error {
	raw, err := s.model.Generate(ctx, prompt, ports.GenerateOptions{JSON: true, Internal: true})
	if err != nil {
		return domain.WrapError(domain.ErrStageDegraded, string(stage), err)
	}
	return decodeStageJSON(stage, raw, out)
}

// retrieve runs a hybrid search for stage grounding. Failures are logged
// and return no results; the stage proceeds ungrounded.
func (s *StageSet) retrieve(ctx context.Context, state *domain.CaseState, query, jurisdiction string) []domain.FusedResult {
	if s.search == nil {
		return nil
	}
	result, err := s.search.Search(ctx, query, jurisdiction, stageRetrievalK)
	if err != nil {
		slog.Warn("stage_retrieval_failed", "error", err)
		return nil
	}
	state.Retrieved = result.Results
	if result.UsedFallback {
		state.UsedFallback = true
	}
	return result.Results
}

func (s *StageSet) searchJurisdiction(state *domain.CaseState, turn domain.Turn) string {
	if state.Jurisdiction != nil && state.Jurisdiction.Primary != "" {
		if resolved := domain.ResolveJurisdiction(state.Jurisdiction.Primary); resolved != domain.JurisdictionUnsupported {
			return resolved
		}
		return domain.JurisdictionUnsupported
	}
	return domain.ResolveJurisdiction(turn.Context.State)
}

// IdentifyIssues classifies the legal issues in the turn and seeds the case
// state with retrieval grounding for later stages.
func (s *StageSet) IdentifyIssues(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	sources := s.retrieve(ctx, state, turn.Query, s.searchJurisdiction(state, turn))

	var b strings.Builder
	b.WriteString(issuePromptHeader)
	promptContext(&b, turn)
	promptSources(&b, sources, stageMaxExcerptChars)
	b.WriteString("\n" + issuePromptSchema)

	var issues domain.IssueClassification
	if err := s.generate(ctx, domain.StageIssueIdentification, b.String(), &issues); err != nil {
		return err
	}
	if issues.PrimaryIssue.Area == "" {
		return domain.WrapError(domain.ErrStageDegraded, string(domain.StageIssueIdentification),
			fmt.Errorf("no primary issue in model output"))
	}
	state.Issues = &issues
	return nil
}

// Legal areas governed primarily by federal law regardless of the user's
// state.
var federalPrimaryAreas = map[string]bool{
	"employment":  true,
	"family":      true,
	"immigration": true,
}

// ResolveJurisdiction determines the governing jurisdiction. The structural
// decision is deterministic from the user's state and the issue area; the
// model call only supplies reasoning and conflict notes, so its failure
// does not degrade the stage.
func (s *StageSet) ResolveJurisdiction(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	result := deterministicJurisdiction(state.Issues, turn.Context.State)

	var b strings.Builder
	b.WriteString(jurisdictionPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	fmt.Fprintf(&b, "Structural determination: primary %s, applicable %s.\n",
		result.Primary, strings.Join(result.Applicable, ", "))
	b.WriteString("\n" + jurisdictionPromptSchema)

	var enriched domain.JurisdictionResult
	if err := s.generate(ctx, domain.StageJurisdiction, b.String(), &enriched); err != nil {
		slog.Warn("jurisdiction_enrichment_failed", "error", err)
		state.Jurisdiction = result
		return nil
	}
	result.Reasoning = enriched.Reasoning
	result.Conflicts = enriched.Conflicts
	state.Jurisdiction = result
	return nil
}

func deterministicJurisdiction(issues *domain.IssueClassification, userState string) *domain.JurisdictionResult {
	code := strings.ToUpper(strings.TrimSpace(userState))
	result := &domain.JurisdictionResult{}

	area := ""
	if issues != nil {
		area = issues.PrimaryIssue.Area
	}
	switch {
	case federalPrimaryAreas[area]:
		result.Primary = domain.JurisdictionFederal
		if domain.IsKnownState(code) {
			result.Applicable = []string{domain.JurisdictionFederal, code}
		} else {
			result.Applicable = []string{domain.JurisdictionFederal}
		}
	case domain.IsKnownState(code):
		result.Primary = code
		result.Applicable = []string{code, domain.JurisdictionFederal}
	default:
		result.Primary = domain.JurisdictionFederal
		result.Applicable = []string{domain.JurisdictionFederal}
		result.FallbackToFederal = true
	}
	return result
}

// StructureFacts extracts the timeline, parties, key facts, and fact gaps.
func (s *StageSet) StructureFacts(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	var b strings.Builder
	b.WriteString(factsPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	b.WriteString("\n" + factsPromptSchema)

	var facts domain.FactStructure
	if err := s.generate(ctx, domain.StageFactStructuring, b.String(), &facts); err != nil {
		return err
	}
	state.Facts = &facts
	return nil
}

// MapLegalElements maps the matter onto the elements of the applicable law,
// grounded in a fresh legislation search for the resolved jurisdiction.
func (s *StageSet) MapLegalElements(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	query := turn.Query
	if state.Issues != nil {
		query = fmt.Sprintf("%s %s legal elements requirements",
			state.Issues.PrimaryIssue.Area, state.Issues.PrimaryIssue.SubCategory)
	}
	sources := s.retrieve(ctx, state, query, s.searchJurisdiction(state, turn))

	var b strings.Builder
	b.WriteString(elementsPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	promptFactSummary(&b, state.Facts)
	if state.Jurisdiction != nil {
		fmt.Fprintf(&b, "Jurisdiction: %s\n", state.Jurisdiction.Primary)
	}
	promptSources(&b, sources, stageMaxExcerptChars)
	b.WriteString("\n" + elementsPromptSchema)

	var elements domain.ElementsAnalysis
	if err := s.generate(ctx, domain.StageLegalElements, b.String(), &elements); err != nil {
		return err
	}
	state.Elements = &elements
	return nil
}

// FindPrecedents searches case law and extracts matching precedent.
func (s *StageSet) FindPrecedents(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	query := turn.Query + " case decision"
	if state.Issues != nil {
		query = fmt.Sprintf("%s %s tribunal court decision",
			state.Issues.PrimaryIssue.Area, state.Issues.PrimaryIssue.SubCategory)
	}
	sources := s.retrieve(ctx, state, query, s.searchJurisdiction(state, turn))

	var b strings.Builder
	b.WriteString(precedentPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	promptElementsSummary(&b, state.Elements)
	promptSources(&b, sources, stageMaxExcerptChars)
	b.WriteString("\n" + precedentPromptSchema)

	var precedents domain.PrecedentAnalysis
	if err := s.generate(ctx, domain.StageCasePrecedent, b.String(), &precedents); err != nil {
		return err
	}
	state.Precedents = &precedents
	return nil
}

// AssessRisks rates the matter's risks from the elements analysis.
func (s *StageSet) AssessRisks(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	var b strings.Builder
	b.WriteString(riskPromptHeader)
	promptContext(&b, turn)
	promptElementsSummary(&b, state.Elements)
	promptFactSummary(&b, state.Facts)
	b.WriteString("\n" + riskPromptSchema)

	var risk domain.RiskAssessment
	if err := s.generate(ctx, domain.StageRiskAnalysis, b.String(), &risk); err != nil {
		return err
	}
	state.Risk = &risk
	return nil
}

// RecommendStrategy produces the recommended course of action.
func (s *StageSet) RecommendStrategy(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	var b strings.Builder
	b.WriteString(strategyPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	promptElementsSummary(&b, state.Elements)
	if state.Risk != nil {
		fmt.Fprintf(&b, "Overall risk level: %s\n", state.Risk.OverallRiskLevel)
	}
	promptSources(&b, state.Retrieved, stageMaxExcerptChars)
	b.WriteString("\n" + strategyPromptSchema)

	var strategy domain.StrategyRecommendation
	if err := s.generate(ctx, domain.StageStrategy, b.String(), &strategy); err != nil {
		return err
	}
	state.Strategy = &strategy
	return nil
}

type briefNarrative struct {
	ExecutiveSummary string   `json:"executive_summary"`
	UrgencyLevel     string   `json:"urgency_level"`
	ClientSituation  string   `json:"client_situation"`
	OpenQuestions    []string `json:"open_questions"`
	NextSteps        []string `json:"suggested_next_steps"`
}

// ComposeBrief assembles the lawyer handoff brief from completed stage
// outputs plus model-written narrative sections.
func (s *StageSet) ComposeBrief(ctx context.Context, state *domain.CaseState, turn domain.Turn) error {
	var b strings.Builder
	b.WriteString(briefPromptHeader)
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	promptFactSummary(&b, state.Facts)
	promptElementsSummary(&b, state.Elements)
	if state.Risk != nil {
		fmt.Fprintf(&b, "Overall risk level: %s\n", state.Risk.OverallRiskLevel)
	}
	if state.Strategy != nil {
		fmt.Fprintf(&b, "Recommended strategy: %s\n", state.Strategy.Recommended.Name)
	}
	b.WriteString("\n" + briefPromptSchema)

	var narrative briefNarrative
	if err := s.generate(ctx, domain.StageEscalationBrief, b.String(), &narrative); err != nil {
		return err
	}

	brief := &domain.EscalationBrief{
		BriefID:          uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		ExecutiveSummary: narrative.ExecutiveSummary,
		UrgencyLevel:     narrative.UrgencyLevel,
		ClientSituation:  narrative.ClientSituation,
		Jurisdiction:     state.Jurisdiction,
		Facts:            state.Facts,
		LegalAnalysis:    state.Elements,
		Risk:             state.Risk,
		OpenQuestions:    narrative.OpenQuestions,
		NextSteps:        narrative.NextSteps,
	}
	if state.Issues != nil {
		brief.LegalIssues = append([]domain.LegalIssue{state.Issues.PrimaryIssue}, state.Issues.SecondaryIssues...)
	}
	if state.Precedents != nil {
		brief.Precedents = state.Precedents.MatchingCases
	}
	if state.Strategy != nil {
		brief.Strategy = &state.Strategy.Recommended
	}
	state.Brief = brief
	return nil
}
