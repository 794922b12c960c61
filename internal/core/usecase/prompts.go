package usecase

import (
	"fmt"
	"strings"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

const issuePromptHeader = `You are an Australian legal issue classifier. Identify and categorize the
legal issues in the user's query.

Legal areas (choose one as primary): tenancy, employment, family, criminal,
contract, immigration, property, wills_estates, injury, debt, administrative,
consumer, other.

Use specific sub-categories, e.g. tenancy: bond_refund, rent_increase,
eviction_notice, repairs_maintenance, break_lease; employment:
unfair_dismissal, underpayment, redundancy, workplace_bullying.

Complexity score 0-1: 0.0-0.3 a single clear question; 0.4-0.6 some
ambiguity, multiple related issues, or time pressure; 0.7-1.0 interrelated
areas, conflicting parties, ongoing dispute, or document analysis needed.`

const issuePromptSchema = `Respond with JSON only:
{"primary_issue": {"area": "...", "sub_category": "...", "confidence": 0.0, "description": "..."},
 "secondary_issues": [], "complexity_score": 0.0,
 "involves_multiple_jurisdictions": false, "requires_document_analysis": false}`

const jurisdictionPromptHeader = `You are an Australian legal jurisdiction specialist.

Federal law applies Australia-wide for employment (Fair Work Act 2009),
family law (Family Law Act 1975), immigration, consumer guarantees
(Australian Consumer Law), corporations and taxation. State and territory
law governs tenancy (each state's Residential Tenancies Act), property and
conveyancing, state criminal offences, and wills and estates.`

const jurisdictionPromptSchema = `Respond with JSON only:
{"primary_jurisdiction": "NSW|VIC|QLD|SA|WA|TAS|NT|ACT|FEDERAL",
 "applicable_jurisdictions": [], "jurisdiction_conflicts": [],
 "fallback_to_federal": false, "reasoning": "..."}`

const factsPromptHeader = `You structure the facts of an Australian legal matter. Extract a timeline,
the parties involved, key facts, and fact gaps from the conversation. Mark
timeline significance as critical, relevant, or background. Do not invent
facts the user has not stated.`

const factsPromptSchema = `Respond with JSON only:
{"timeline": [{"date": "", "description": "...", "significance": "relevant"}],
 "parties": [{"role": "...", "name": "", "is_user": false}],
 "key_facts": [], "fact_gaps": [], "narrative_summary": "..."}`

const elementsPromptHeader = `You map an Australian legal matter to the elements of the applicable law.
For each element state whether the known facts satisfy it (yes, no, partial,
unknown), which facts support it, and which facts are missing. Ground the
applicable law in the provided source excerpts where possible.`

const elementsPromptSchema = `Respond with JSON only:
{"applicable_law": "...", "elements": [{"element_name": "...", "description": "...",
 "is_satisfied": "yes|no|partial|unknown", "supporting_facts": [], "missing_facts": []}],
 "elements_satisfied": 0, "elements_total": 0,
 "viability_assessment": "strong|moderate|weak|insufficient_info", "reasoning": "..."}`

const precedentPromptHeader = `You identify Australian case precedent relevant to the matter. Use the
provided source excerpts; cite cases with their medium-neutral citation
(e.g. [2019] NSWCATAP 123). Mark the outcome for a party in the user's
position as favorable, unfavorable, or mixed. Do not invent citations.`

const precedentPromptSchema = `Respond with JSON only:
{"matching_cases": [{"case_name": "...", "citation": "...", "year": 0,
 "jurisdiction": "...", "relevance_score": 0.0, "key_holding": "...",
 "how_it_applies": "...", "outcome_for_similar_party": "favorable|unfavorable|mixed"}],
 "pattern_identified": "", "typical_outcome": "", "distinguishing_factors": []}`

const riskPromptHeader = `You assess the risks of an Australian legal matter given the elements
analysis. Rate each risk's severity (high, medium, low) and likelihood
(likely, possible, unlikely), note evidence weaknesses, and flag any time
sensitivity.`

const riskPromptSchema = `Respond with JSON only:
{"overall_risk_level": "high|medium|low",
 "risks": [{"description": "...", "severity": "medium", "likelihood": "possible", "mitigation": ""}],
 "evidence_weaknesses": [], "time_sensitivity": ""}`

const strategyPromptHeader = `You recommend a practical course of action for an Australian legal matter.
Offer one recommended strategy plus alternatives, with pros, cons, cost and
timeline estimates where sensible, immediate actions the user can take, and
the factors that should drive their decision. Prefer low-cost dispute
resolution channels (tribunals, ombudsmen) where they fit.`

const strategyPromptSchema = `Respond with JSON only:
{"recommended_strategy": {"name": "...", "description": "...", "pros": [], "cons": [],
 "estimated_cost": "", "estimated_timeline": "", "success_likelihood": "high|medium|low"},
 "alternative_strategies": [], "immediate_actions": [], "decision_factors": []}`

const briefPromptHeader = `You prepare the narrative sections of a lawyer handoff brief for an
Australian legal matter. Write a concise executive summary and client
situation, pick an urgency level, and list the open questions a lawyer
should resolve and the suggested next steps.`

const briefPromptSchema = `Respond with JSON only:
{"executive_summary": "...", "urgency_level": "urgent|standard|low_priority",
 "client_situation": "...", "open_questions": [], "suggested_next_steps": []}`

// promptContext appends the shared query/history/state block every stage
// prompt carries.
func promptContext(b *strings.Builder, turn domain.Turn) {
	fmt.Fprintf(b, "\n\nQuery: %s\n", turn.Query)
	if turn.Context.State != "" {
		fmt.Fprintf(b, "User's Australian state/territory: %s\n", turn.Context.State)
	}
	if turn.Context.DocumentURL != "" {
		b.WriteString("User has uploaded a document.\n")
	}
	if len(turn.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range recentHistory(turn.History, 6) {
			fmt.Fprintf(b, "- %s: %s\n", msg.Role, msg.Content)
		}
	}
}

func recentHistory(history []domain.TurnMessage, n int) []domain.TurnMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// promptSources appends retrieved excerpts, truncated per chunk so a single
// long statute section cannot crowd out the rest of the prompt.
func promptSources(b *strings.Builder, results []domain.FusedResult, maxChunkChars int) {
	if len(results) == 0 {
		return
	}
	b.WriteString("\nSource excerpts:\n")
	for i, result := range results {
		text := result.Chunk.Text
		if result.ParentText != "" {
			text = result.ParentText
		}
		if len(text) > maxChunkChars {
			text = text[:maxChunkChars]
		}
		citation := result.Chunk.Citation
		if citation == "" {
			citation = result.Chunk.SourceURL
		}
		fmt.Fprintf(b, "[%d] %s\n%s\n", i+1, citation, text)
	}
}

func promptIssueSummary(b *strings.Builder, issues *domain.IssueClassification) {
	if issues == nil {
		return
	}
	fmt.Fprintf(b, "Identified issue: %s - %s (%s)\n",
		issues.PrimaryIssue.Area, issues.PrimaryIssue.SubCategory, issues.PrimaryIssue.Description)
	for _, issue := range issues.SecondaryIssues {
		fmt.Fprintf(b, "Secondary issue: %s - %s\n", issue.Area, issue.SubCategory)
	}
}

func promptFactSummary(b *strings.Builder, facts *domain.FactStructure) {
	if facts == nil {
		return
	}
	if facts.NarrativeSummary != "" {
		fmt.Fprintf(b, "Structured facts: %s\n", facts.NarrativeSummary)
	}
	for _, fact := range facts.KeyFacts {
		fmt.Fprintf(b, "Key fact: %s\n", fact)
	}
	for _, gap := range facts.FactGaps {
		fmt.Fprintf(b, "Fact gap: %s\n", gap)
	}
}

func promptElementsSummary(b *strings.Builder, elements *domain.ElementsAnalysis) {
	if elements == nil {
		return
	}
	fmt.Fprintf(b, "Applicable law: %s (viability %s, %d of %d elements satisfied)\n",
		elements.ApplicableLaw, elements.Viability, elements.ElementsSatisfied, elements.ElementsTotal)
	for _, element := range elements.Elements {
		fmt.Fprintf(b, "Element %s: %s\n", element.Name, element.Satisfied)
	}
}
