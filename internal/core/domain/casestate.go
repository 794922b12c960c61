package domain

import "time"

type Stage string

const (
	StageIssueIdentification Stage = "issue_identification"
	StageJurisdiction        Stage = "jurisdiction"
	StageFactStructuring     Stage = "fact_structuring"
	StageLegalElements       Stage = "legal_elements"
	StageCasePrecedent       Stage = "case_precedent"
	StageRiskAnalysis        Stage = "risk_analysis"
	StageStrategy            Stage = "strategy"
	StageEscalationBrief     Stage = "escalation_brief"
)

type StageStatus string

const (
	StageStatusPending  StageStatus = "pending"
	StageStatusComplete StageStatus = "complete"
	// StageStatusDegraded marks a stage whose reasoning call failed after
	// retry, or whose required inputs were themselves degraded.
	StageStatusDegraded StageStatus = "degraded"
)

// LegalIssue is a single identified legal issue.
type LegalIssue struct {
	Area        string  `json:"area"`
	SubCategory string  `json:"sub_category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

type IssueClassification struct {
	PrimaryIssue          LegalIssue   `json:"primary_issue"`
	SecondaryIssues       []LegalIssue `json:"secondary_issues"`
	ComplexityScore       float64      `json:"complexity_score"`
	MultipleJurisdictions bool         `json:"involves_multiple_jurisdictions"`
	NeedsDocumentAnalysis bool         `json:"requires_document_analysis"`
}

type JurisdictionResult struct {
	Primary           string   `json:"primary_jurisdiction"`
	Applicable        []string `json:"applicable_jurisdictions"`
	Conflicts         []string `json:"jurisdiction_conflicts"`
	FallbackToFederal bool     `json:"fallback_to_federal"`
	Reasoning         string   `json:"reasoning"`
}

type TimelineEvent struct {
	Date         string `json:"date,omitempty"`
	Description  string `json:"description"`
	Significance string `json:"significance"` // critical|relevant|background
}

type Party struct {
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	IsUser bool   `json:"is_user"`
}

type FactStructure struct {
	Timeline         []TimelineEvent `json:"timeline"`
	Parties          []Party         `json:"parties"`
	KeyFacts         []string        `json:"key_facts"`
	FactGaps         []string        `json:"fact_gaps"`
	NarrativeSummary string          `json:"narrative_summary"`
}

// LegalElement is one element of the applicable law that must be satisfied.
type LegalElement struct {
	Name            string   `json:"element_name"`
	Description     string   `json:"description"`
	Satisfied       string   `json:"is_satisfied"` // yes|no|partial|unknown
	SupportingFacts []string `json:"supporting_facts"`
	MissingFacts    []string `json:"missing_facts"`
}

type ElementsAnalysis struct {
	ApplicableLaw     string         `json:"applicable_law"`
	Elements          []LegalElement `json:"elements"`
	ElementsSatisfied int            `json:"elements_satisfied"`
	ElementsTotal     int            `json:"elements_total"`
	Viability         string         `json:"viability_assessment"` // strong|moderate|weak|insufficient_info
	Reasoning         string         `json:"reasoning"`
}

type CasePrecedent struct {
	CaseName     string  `json:"case_name"`
	Citation     string  `json:"citation"`
	Year         int     `json:"year"`
	Jurisdiction string  `json:"jurisdiction"`
	Relevance    float64 `json:"relevance_score"`
	KeyHolding   string  `json:"key_holding"`
	HowItApplies string  `json:"how_it_applies"`
	Outcome      string  `json:"outcome_for_similar_party"` // favorable|unfavorable|mixed
}

type PrecedentAnalysis struct {
	MatchingCases         []CasePrecedent `json:"matching_cases"`
	PatternIdentified     string          `json:"pattern_identified,omitempty"`
	TypicalOutcome        string          `json:"typical_outcome,omitempty"`
	DistinguishingFactors []string        `json:"distinguishing_factors"`
}

type RiskFactor struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`   // high|medium|low
	Likelihood  string `json:"likelihood"` // likely|possible|unlikely
	Mitigation  string `json:"mitigation,omitempty"`
}

type RiskAssessment struct {
	OverallRiskLevel   string       `json:"overall_risk_level"` // high|medium|low
	Risks              []RiskFactor `json:"risks"`
	EvidenceWeaknesses []string     `json:"evidence_weaknesses"`
	TimeSensitivity    string       `json:"time_sensitivity,omitempty"`
}

type StrategyOption struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Pros              []string `json:"pros"`
	Cons              []string `json:"cons"`
	EstimatedCost     string   `json:"estimated_cost,omitempty"`
	EstimatedTimeline string   `json:"estimated_timeline,omitempty"`
	SuccessLikelihood string   `json:"success_likelihood"` // high|medium|low
}

type StrategyRecommendation struct {
	Recommended      StrategyOption   `json:"recommended_strategy"`
	Alternatives     []StrategyOption `json:"alternative_strategies"`
	ImmediateActions []string         `json:"immediate_actions"`
	DecisionFactors  []string         `json:"decision_factors"`
}

// EscalationBrief is the structured handoff package for lawyers, produced by
// the final complex-path stage and published for external collaborators.
type EscalationBrief struct {
	BriefID          string              `json:"brief_id"`
	GeneratedAt      time.Time           `json:"generated_at"`
	ExecutiveSummary string              `json:"executive_summary"`
	UrgencyLevel     string              `json:"urgency_level"` // urgent|standard|low_priority
	ClientSituation  string              `json:"client_situation"`
	LegalIssues      []LegalIssue        `json:"legal_issues"`
	Jurisdiction     *JurisdictionResult `json:"jurisdiction,omitempty"`
	Facts            *FactStructure      `json:"facts,omitempty"`
	LegalAnalysis    *ElementsAnalysis   `json:"legal_analysis,omitempty"`
	Precedents       []CasePrecedent     `json:"relevant_precedents,omitempty"`
	Risk             *RiskAssessment     `json:"risk_assessment,omitempty"`
	Strategy         *StrategyOption     `json:"recommended_strategy,omitempty"`
	OpenQuestions    []string            `json:"open_questions"`
	NextSteps        []string            `json:"suggested_next_steps"`
}

// CaseState accumulates stage outputs over one pipeline run. It is owned
// exclusively by the turn's pipeline goroutine and never shared across turns.
type CaseState struct {
	Statuses map[Stage]StageStatus

	Issues       *IssueClassification
	Jurisdiction *JurisdictionResult
	Facts        *FactStructure
	Elements     *ElementsAnalysis
	Precedents   *PrecedentAnalysis
	Risk         *RiskAssessment
	Strategy     *StrategyRecommendation
	Brief        *EscalationBrief

	// Retrieved holds the last hybrid search output so response assembly can
	// cite sources.
	Retrieved    []FusedResult
	UsedFallback bool
}

func NewCaseState() *CaseState {
	return &CaseState{Statuses: make(map[Stage]StageStatus)}
}

func (s *CaseState) Status(stage Stage) StageStatus {
	if status, ok := s.Statuses[stage]; ok {
		return status
	}
	return StageStatusPending
}

func (s *CaseState) MarkComplete(stage Stage) { s.Statuses[stage] = StageStatusComplete }
func (s *CaseState) MarkDegraded(stage Stage) { s.Statuses[stage] = StageStatusDegraded }

// Degraded reports whether any executed stage ended degraded.
func (s *CaseState) Degraded() bool {
	for _, status := range s.Statuses {
		if status == StageStatusDegraded {
			return true
		}
	}
	return false
}
