package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

//go:embed safetyterms.yaml
var safetyTermsYAML []byte

// Turns shorter than this that match no crisis pattern are treated as
// trivial follow-ups and never escalate to the model.
const safetyShortTurnChars = 20

type safetyTermFile struct {
	Crisis    map[string][]string `yaml:"crisis"`
	Uncertain []string            `yaml:"uncertain"`
}

type safetyAssessment struct {
	RequiresEscalation bool   `json:"requires_escalation"`
	Category           string `json:"category"`
	Reasoning          string `json:"reasoning,omitempty"`
}

// SafetyClassifier gates every turn before any legal analysis runs. The
// keyword stage answers the obvious cases locally; only uncertain turns
// reach the reasoning model, and unusable model output defaults to none.
type SafetyClassifier struct {
	model     ports.ReasoningModel
	crisis    []crisisPatternSet
	uncertain []*regexp.Regexp
}

type crisisPatternSet struct {
	category domain.SafetyCategory
	patterns []*regexp.Regexp
}

func NewSafetyClassifier(model ports.ReasoningModel) (*SafetyClassifier, error) {
	var file safetyTermFile
	if err := yaml.Unmarshal(safetyTermsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse safety terms: %w", err)
	}

	c := &SafetyClassifier{model: model}
	// Category iteration order follows domain.SafetyCategories so the same
	// input always resolves to the same category.
	for _, category := range domain.SafetyCategories {
		raw, ok := file.Crisis[string(category)]
		if !ok {
			continue
		}
		set := crisisPatternSet{category: category}
		for _, pattern := range raw {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile crisis pattern %q: %w", pattern, err)
			}
			set.patterns = append(set.patterns, re)
		}
		c.crisis = append(c.crisis, set)
	}
	for _, pattern := range file.Uncertain {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile uncertain pattern %q: %w", pattern, err)
		}
		c.uncertain = append(c.uncertain, re)
	}
	return c, nil
}

// Classify returns the safety category for one turn. It never fails the
// turn: model errors and ambiguous output are logged and resolve to none.
func (c *SafetyClassifier) Classify(ctx context.Context, turn domain.Turn) domain.SafetyCategory {
	text := strings.ToLower(strings.TrimSpace(turn.Query))
	if text == "" {
		return domain.SafetyNone
	}

	for _, set := range c.crisis {
		for _, re := range set.patterns {
			if re.MatchString(text) {
				slog.Warn("crisis_keywords_detected", "category", set.category)
				return set.category
			}
		}
	}

	if !c.mightBeRisky(text) {
		return domain.SafetyNone
	}
	if c.isTrivialFollowUp(text, turn) {
		return domain.SafetyNone
	}

	return c.modelCheck(ctx, turn)
}

func (c *SafetyClassifier) mightBeRisky(loweredText string) bool {
	for _, re := range c.uncertain {
		if re.MatchString(loweredText) {
			return true
		}
	}
	return false
}

// isTrivialFollowUp suppresses the model call for short turns and for turns
// that restate the previous user message.
func (c *SafetyClassifier) isTrivialFollowUp(loweredText string, turn domain.Turn) bool {
	if len(loweredText) < safetyShortTurnChars {
		return true
	}
	previous := strings.ToLower(strings.TrimSpace(turn.PreviousUserMessage()))
	return previous != "" && previous == loweredText
}

func (c *SafetyClassifier) modelCheck(ctx context.Context, turn domain.Turn) domain.SafetyCategory {
	if c.model == nil {
		return domain.SafetyNone
	}

	prompt := buildSafetyPrompt(turn)
	raw, err := c.model.Generate(ctx, prompt, ports.GenerateOptions{JSON: true, Internal: true})
	if err != nil {
		slog.Warn("safety_model_call_failed", "error", err)
		return domain.SafetyNone
	}

	var assessment safetyAssessment
	if err := decodeConstrained("safety classify", raw, safetyAssessmentSchema(), &assessment); err != nil {
		slog.Warn("safety_model_ambiguous", "error", err)
		return domain.SafetyNone
	}
	if !assessment.RequiresEscalation {
		return domain.SafetyNone
	}
	category, ok := domain.ParseSafetyCategory(assessment.Category)
	if !ok || category == domain.SafetyNone {
		slog.Warn("safety_model_ambiguous", "category", assessment.Category)
		return domain.SafetyNone
	}
	return category
}

func buildSafetyPrompt(turn domain.Turn) string {
	var b strings.Builder
	b.WriteString("Assess whether this legal query indicates a crisis requiring immediate professional support.\n\n")
	fmt.Fprintf(&b, "Query: %s\n", turn.Query)
	if turn.Context.State != "" {
		fmt.Fprintf(&b, "User location: %s\n", turn.Context.State)
	}
	b.WriteString(`
Crisis categories that require escalation:
- self_harm: mentions of self-harm, suicide, wanting to die
- family_violence: domestic violence, abuse, threats, protection orders
- child_welfare: child protection, abuse, removal of children
- criminal: arrests, criminal charges, police custody
- urgent_deadline: a court date or legal deadline within days

Only set requires_escalation=true on clear indication of immediate risk.
General legal questions about these topics (e.g. "what is a DVO?") do NOT
require escalation.

Respond with JSON only:
{"requires_escalation": bool, "category": "self_harm|family_violence|child_welfare|criminal|urgent_deadline|none", "reasoning": "brief"}`)
	return b.String()
}
