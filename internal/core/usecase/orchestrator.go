package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

const legalDisclaimer = "This is general legal information, not legal advice. " +
	"For advice about your specific situation, speak with a qualified lawyer or your state's Legal Aid service."

const degradedServiceMessage = "I'm sorry, the legal research service is currently unavailable, " +
	"so I can't give you a reliable answer right now. Please try again shortly, or contact your state's " +
	"Legal Aid service if your matter is urgent."

var staticQuickReplies = []string{"Tell me more", "What are my options?"}

// WorkflowConfig tunes the turn orchestrator. Passed in at construction;
// there is no process-wide mode flag.
type WorkflowConfig struct {
	MinQuickReplies int
	MaxQuickReplies int
	PublishTimeout  time.Duration
}

func (c WorkflowConfig) normalize() WorkflowConfig {
	out := c
	if out.MinQuickReplies <= 0 {
		out.MinQuickReplies = 2
	}
	if out.MaxQuickReplies <= 0 {
		out.MaxQuickReplies = 4
	}
	if out.PublishTimeout <= 0 {
		out.PublishTimeout = 5 * time.Second
	}
	return out
}

// WorkflowMetrics receives turn outcomes for observability. Optional.
type WorkflowMetrics interface {
	ObserveTurn(path domain.AnalysisPath, safety domain.SafetyCategory, degraded bool, duration time.Duration)
}

// Orchestrator handles one conversational turn end to end: safety gate,
// complexity routing, stage pipeline, response assembly, and brief
// publication. Turns are independent; the orchestrator holds no per-turn
// state.
type Orchestrator struct {
	safety    *SafetyClassifier
	router    *ComplexityRouter
	model     ports.ReasoningModel
	publisher ports.BriefPublisher
	crisis    *CrisisDirectory
	simple    *Pipeline
	complex   *Pipeline
	metrics   WorkflowMetrics
	cfg       WorkflowConfig
}

func NewOrchestrator(
	safety *SafetyClassifier,
	router *ComplexityRouter,
	stages *StageSet,
	model ports.ReasoningModel,
	publisher ports.BriefPublisher,
	crisis *CrisisDirectory,
	metrics WorkflowMetrics,
	cfg WorkflowConfig,
) (*Orchestrator, error) {
	simple, err := NewSimplePipeline(stages)
	if err != nil {
		return nil, err
	}
	complexPipeline, err := NewComplexPipeline(stages)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		safety:    safety,
		router:    router,
		model:     model,
		publisher: publisher,
		crisis:    crisis,
		simple:    simple,
		complex:   complexPipeline,
		metrics:   metrics,
		cfg:       cfg.normalize(),
	}, nil
}

// HandleTurn processes one turn. A non-none safety category short-circuits
// to the crisis template and the pipeline never starts.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn domain.Turn) (*domain.TurnResult, error) {
	start := time.Now()
	if err := turn.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle turn", err)
	}

	category := o.safety.Classify(ctx, turn)
	if category != domain.SafetyNone {
		result := o.crisisResult(turn, category)
		o.observe(result, start)
		return result, nil
	}

	state := domain.NewCaseState()
	path := o.router.Route(ctx, turn, state)

	pipeline := o.simple
	if path == domain.PathComplex {
		pipeline = o.complex
	}
	if err := pipeline.Run(ctx, state, turn); err != nil {
		return nil, err
	}

	result := &domain.TurnResult{
		ConversationID: turn.Context.ConversationID,
		Safety:         domain.SafetyNone,
		Path:           path,
		Degraded:       state.Degraded(),
		UsedFallback:   state.UsedFallback,
	}
	result.Text = o.assembleResponse(ctx, turn, state, path)
	result.QuickReplies = o.quickReplies(ctx, turn, result.Text)

	if path == domain.PathComplex && state.Brief != nil {
		o.publishBrief(ctx, state.Brief)
		result.Brief = state.Brief
	}

	o.observe(result, start)
	return result, nil
}

func (o *Orchestrator) observe(result *domain.TurnResult, start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveTurn(result.Path, result.Safety, result.Degraded, time.Since(start))
	}
}

// Category-specific openings for the crisis template.
var crisisOpenings = map[domain.SafetyCategory]string{
	domain.SafetyCriminal: "I understand you may be facing criminal charges or police involvement. " +
		"This is a serious matter that requires professional legal representation.",
	domain.SafetyFamilyViolence: "I'm concerned about your safety. If you're experiencing family violence, " +
		"please know that help is available and you don't have to face this alone.",
	domain.SafetyUrgentDeadline: "I can see you're dealing with an urgent legal deadline. " +
		"Time-sensitive legal matters require immediate professional attention.",
	domain.SafetyChildWelfare: "Matters involving children's safety and welfare are extremely serious. " +
		"It's important to get professional support right away.",
	domain.SafetySelfHarm: "I'm really concerned about what you've shared. Your wellbeing matters, " +
		"and there are people who can help you through this difficult time.",
}

func (o *Orchestrator) crisisResult(turn domain.Turn, category domain.SafetyCategory) *domain.TurnResult {
	opening, ok := crisisOpenings[category]
	if !ok {
		opening = "I want to make sure you get the right support for your situation."
	}

	var b strings.Builder
	b.WriteString(opening)
	b.WriteString("\n\n**I strongly recommend contacting these services for immediate help:**\n")
	for _, resource := range o.crisis.ResourcesFor(category, strings.ToUpper(strings.TrimSpace(turn.Context.State))) {
		fmt.Fprintf(&b, "\n**%s**", resource.Name)
		if resource.Phone != "" {
			fmt.Fprintf(&b, " - %s", resource.Phone)
		}
		if resource.Description != "" {
			fmt.Fprintf(&b, "\n  _%s_", resource.Description)
		}
		if resource.URL != "" {
			fmt.Fprintf(&b, "\n  %s", resource.URL)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n---\n\nThese services are free and confidential. They can provide the urgent, " +
		"professional support that I, as an AI assistant, cannot offer.\n\n" +
		"If you have other legal questions that aren't urgent safety matters, " +
		"I'm still here to help with general legal information.")

	return &domain.TurnResult{
		ConversationID: turn.Context.ConversationID,
		Text:           b.String(),
		QuickReplies:   []string{"I have a different question", "What are my legal options?"},
		Safety:         category,
	}
}

// assembleResponse writes the user-visible answer. This is the only model
// call in the turn allowed to stream to the user.
func (o *Orchestrator) assembleResponse(ctx context.Context, turn domain.Turn, state *domain.CaseState, path domain.AnalysisPath) string {
	var b strings.Builder
	if path == domain.PathComplex {
		b.WriteString("You are an Australian legal information assistant. Write a thorough, plain-English " +
			"answer for the user covering the applicable law, how it applies to their facts, the risks, " +
			"and the recommended next steps. Cite the numbered source excerpts where they support a point.")
	} else {
		b.WriteString("You are an Australian legal information assistant. Write a clear, concise " +
			"plain-English answer to the user's question. Cite the numbered source excerpts where they " +
			"support a point.")
	}
	promptContext(&b, turn)
	promptIssueSummary(&b, state.Issues)
	if state.Jurisdiction != nil {
		fmt.Fprintf(&b, "Jurisdiction: %s\n", state.Jurisdiction.Primary)
	}
	promptElementsSummary(&b, state.Elements)
	if state.Risk != nil {
		fmt.Fprintf(&b, "Overall risk level: %s\n", state.Risk.OverallRiskLevel)
	}
	if state.Strategy != nil {
		fmt.Fprintf(&b, "Recommended strategy: %s - %s\n",
			state.Strategy.Recommended.Name, state.Strategy.Recommended.Description)
		for _, action := range state.Strategy.ImmediateActions {
			fmt.Fprintf(&b, "Immediate action: %s\n", action)
		}
	}
	promptSources(&b, state.Retrieved, stageMaxExcerptChars)
	if len(state.Retrieved) == 0 {
		b.WriteString("\nNo source material could be retrieved. Tell the user you cannot cite " +
			"authoritative sources for this answer and recommend verifying with official sources.\n")
	}
	if state.Degraded() {
		b.WriteString("\nParts of the analysis were unavailable. Acknowledge the gaps honestly; do not " +
			"present the answer as complete.\n")
	}

	text, err := o.model.Generate(ctx, b.String(), ports.GenerateOptions{})
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Error("response_assembly_failed", "error", err)
		return degradedServiceMessage
	}
	return text + "\n\n---\n_" + legalDisclaimer + "_"
}

type quickReplyAnalysis struct {
	QuickReplies []string `json:"quick_replies"`
	SuggestBrief bool     `json:"suggest_brief"`
}

// quickReplies suggests 2-4 short follow-ups. Model failure falls back to
// static suggestions.
func (o *Orchestrator) quickReplies(ctx context.Context, turn domain.Turn, response string) []string {
	var b strings.Builder
	b.WriteString("Suggest 2-4 quick reply options the user might naturally say next. " +
		"Keep each 2-6 words, conversational, and diverse.\n\nConversation:\n")
	for _, msg := range recentHistory(turn.History, 6) {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&b, "user: %s\n\nAssistant's response:\n%s\n", turn.Query, response)
	b.WriteString("\nRespond with JSON only: {\"quick_replies\": [\"...\"], \"suggest_brief\": false}")

	raw, err := o.model.Generate(ctx, b.String(), ports.GenerateOptions{JSON: true, Internal: true})
	if err != nil {
		slog.Warn("quick_reply_generation_failed", "error", err)
		return staticQuickReplies
	}
	var analysis quickReplyAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &analysis); err != nil {
		slog.Warn("quick_reply_generation_failed", "error", err)
		return staticQuickReplies
	}
	return o.clampQuickReplies(analysis.QuickReplies)
}

func (o *Orchestrator) clampQuickReplies(replies []string) []string {
	cleaned := make([]string, 0, len(replies))
	for _, reply := range replies {
		reply = strings.TrimSpace(reply)
		if reply != "" {
			cleaned = append(cleaned, reply)
		}
	}
	if len(cleaned) > o.cfg.MaxQuickReplies {
		cleaned = cleaned[:o.cfg.MaxQuickReplies]
	}
	for i := 0; len(cleaned) < o.cfg.MinQuickReplies; i++ {
		cleaned = append(cleaned, staticQuickReplies[i%len(staticQuickReplies)])
	}
	return cleaned
}

// publishBrief is best effort; a broker outage must not fail the turn.
func (o *Orchestrator) publishBrief(ctx context.Context, brief *domain.EscalationBrief) {
	if o.publisher == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(ctx, o.cfg.PublishTimeout)
	defer cancel()
	if err := o.publisher.PublishBrief(publishCtx, brief); err != nil {
		slog.Error("brief_publish_failed", "brief_id", brief.BriefID, "error", err)
	}
}
