package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

const (
	maxSecondaryIssuesForSimple = 1
	complexScoreThreshold       = 0.4
	simpleScoreCeiling          = 0.3
	maxSimpleQueryChars         = 250
)

// Simple question templates, matched as lowercase substrings.
var simpleQueryPatterns = []string{
	"what are my rights",
	"what is the law",
	"how do i",
	"can my landlord",
	"can my employer",
	"what is the",
	"how much notice",
	"am i entitled",
	"is it legal",
	"do i have to",
	"what happens if",
	"how long do i have",
}

// Dispute-indicating terms feeding the computed complexity score.
var disputeIndicators = []string{
	"dispute",
	"sued",
	"court",
	"tribunal",
	"lawyer",
	"legal action",
	"they're claiming",
	"i'm being",
	"unfair dismissal",
	"domestic violence",
	"child custody",
	"property settlement",
	"multiple",
	"complicated",
	"complex",
}

var (
	datePattern   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?|january|february|march|april|may|june|july|august|september|october|november|december|last (week|month|year)|next (week|month))\b`)
	amountPattern = regexp.MustCompile(`\$\s?\d[\d,]*(\.\d+)?|\b\d+\s?(dollars|weeks rent|months rent)\b`)
	partyPattern  = regexp.MustCompile(`\b(landlord|tenant|employer|employee|agent|neighbour|neighbor|ex[- ](partner|husband|wife)|council|insurer|bank|contractor)\b`)
)

type complexityDecision struct {
	Path      string `json:"path"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ComplexityRouter decides per turn whether the short three-stage path is
// enough or the full pipeline must run. Fixed-order heuristics answer most
// turns; only the uncertain middle ground costs a model call.
type ComplexityRouter struct {
	model ports.ReasoningModel
}

func NewComplexityRouter(model ports.ReasoningModel) *ComplexityRouter {
	return &ComplexityRouter{model: model}
}

// Route picks the analysis path. Heuristics are evaluated in fixed order
// with first match winning; model errors default to the simple path.
func (r *ComplexityRouter) Route(ctx context.Context, turn domain.Turn, state *domain.CaseState) domain.AnalysisPath {
	query := strings.ToLower(strings.TrimSpace(turn.Query))
	classification := issueClassificationOf(state)

	if turn.Context.DocumentURL != "" {
		slog.Debug("complexity_route", "path", "complex", "reason", "document attached")
		return domain.PathComplex
	}
	if classification != nil {
		if len(classification.SecondaryIssues) > maxSecondaryIssuesForSimple {
			slog.Debug("complexity_route", "path", "complex", "reason", "secondary issues", "count", len(classification.SecondaryIssues))
			return domain.PathComplex
		}
		if classification.NeedsDocumentAnalysis {
			slog.Debug("complexity_route", "path", "complex", "reason", "document analysis recommended")
			return domain.PathComplex
		}
	}

	score := complexityScore(query, classification)
	if score > complexScoreThreshold {
		slog.Debug("complexity_route", "path", "complex", "reason", "score", "score", score)
		return domain.PathComplex
	}
	if classification != nil && classification.MultipleJurisdictions {
		slog.Debug("complexity_route", "path", "complex", "reason", "multiple jurisdictions")
		return domain.PathComplex
	}

	if len(query) < maxSimpleQueryChars && score <= simpleScoreCeiling && secondaryIssueCount(classification) == 0 {
		for _, pattern := range simpleQueryPatterns {
			if strings.Contains(query, pattern) {
				slog.Debug("complexity_route", "path", "simple", "pattern", pattern)
				return domain.PathSimple
			}
		}
	}

	return r.modelRoute(ctx, turn, classification, score)
}

func issueClassificationOf(state *domain.CaseState) *domain.IssueClassification {
	if state == nil {
		return nil
	}
	return state.Issues
}

func secondaryIssueCount(classification *domain.IssueClassification) int {
	if classification == nil {
		return 0
	}
	return len(classification.SecondaryIssues)
}

// complexityScore prefers an upstream classification score; without one it
// computes a weighted count of dispute terms, dates, amounts, and distinct
// named parties, clamped to [0, 1].
func complexityScore(loweredQuery string, classification *domain.IssueClassification) float64 {
	if classification != nil && classification.ComplexityScore > 0 {
		return classification.ComplexityScore
	}

	score := 0.0
	for _, indicator := range disputeIndicators {
		if strings.Contains(loweredQuery, indicator) {
			score += 0.15
		}
	}
	if len(datePattern.FindAllString(loweredQuery, 2)) > 1 {
		score += 0.1
	}
	if len(amountPattern.FindAllString(loweredQuery, 2)) > 1 {
		score += 0.1
	}
	parties := make(map[string]struct{})
	for _, match := range partyPattern.FindAllString(loweredQuery, -1) {
		parties[match] = struct{}{}
	}
	if len(parties) > 1 {
		score += 0.15
	}
	if score > 1 {
		score = 1
	}
	return score
}

// modelRoute is internal reasoning; its output never reaches any
// user-visible stream.
func (r *ComplexityRouter) modelRoute(ctx context.Context, turn domain.Turn, classification *domain.IssueClassification, score float64) domain.AnalysisPath {
	if r.model == nil {
		return domain.PathSimple
	}

	raw, err := r.model.Generate(ctx, buildComplexityPrompt(turn, classification, score), ports.GenerateOptions{JSON: true, Internal: true})
	if err != nil {
		slog.Warn("complexity_model_call_failed", "error", err)
		return domain.PathSimple
	}

	var decision complexityDecision
	if err := decodeConstrained("complexity route", raw, complexityDecisionSchema(), &decision); err != nil {
		slog.Warn("complexity_model_ambiguous", "error", err)
		return domain.PathSimple
	}
	if decision.Path == string(domain.PathComplex) {
		return domain.PathComplex
	}
	return domain.PathSimple
}

func buildComplexityPrompt(turn domain.Turn, classification *domain.IssueClassification, score float64) string {
	issueSummary := "Not classified"
	if classification != nil {
		issueSummary = fmt.Sprintf("Primary: %s - %s. Secondary issues: %d",
			classification.PrimaryIssue.Area,
			classification.PrimaryIssue.SubCategory,
			len(classification.SecondaryIssues))
	}
	hasDocument := "No"
	if turn.Context.DocumentURL != "" {
		hasDocument = "Yes"
	}

	var b strings.Builder
	b.WriteString(`You classify legal queries as either "simple" or "complex" for analysis depth.

SIMPLE: a single clear question, a general rights or information request,
one party relationship, a common well-documented issue, no documents, no
time-sensitive deadlines.

COMPLEX: multiple interrelated issues, disputes with contested facts,
multiple parties, documents requiring analysis, potential litigation or
formal processes, deadlines, or significant financial or personal
consequences.

`)
	fmt.Fprintf(&b, "Query: %s\n", turn.Query)
	fmt.Fprintf(&b, "Issue classification: %s\n", issueSummary)
	fmt.Fprintf(&b, "Has uploaded document: %s\n", hasDocument)
	fmt.Fprintf(&b, "Complexity score: %.2f\n", score)
	b.WriteString("\nRespond with JSON only: {\"path\": \"simple|complex\", \"reasoning\": \"brief\"}")
	return b.String()
}
