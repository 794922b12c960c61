package domain

import (
	"errors"
	"strings"
)

var errEmptyQuery = errors.New("query is empty")

// TurnContext carries the validated, normalized conversational context for a
// single turn. The HTTP boundary is responsible for unwrapping any transport
// quirks before core logic sees it.
type TurnContext struct {
	ConversationID string
	State          string // Australian state/territory code, may be empty
	DocumentURL    string // non-empty when the user attached a document
}

type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one user turn entering the workflow.
type Turn struct {
	Context TurnContext
	Query   string
	History []TurnMessage
}

func (t Turn) Validate() error {
	if strings.TrimSpace(t.Query) == "" {
		return WrapError(ErrInvalidInput, "validate turn", errEmptyQuery)
	}
	return nil
}

// PreviousUserMessage returns the content of the most recent prior user
// message, or "" when the turn opens the conversation.
func (t Turn) PreviousUserMessage() string {
	for i := len(t.History) - 1; i >= 0; i-- {
		if strings.EqualFold(t.History[i].Role, "user") {
			return t.History[i].Content
		}
	}
	return ""
}

type AnalysisPath string

const (
	PathSimple  AnalysisPath = "simple"
	PathComplex AnalysisPath = "complex"
)

// TurnResult is the orchestrator's assembled output for one turn.
type TurnResult struct {
	ConversationID string           `json:"conversation_id"`
	Text           string           `json:"text"`
	QuickReplies   []string         `json:"quick_replies"`
	Safety         SafetyCategory   `json:"safety_category"`
	Path           AnalysisPath     `json:"path,omitempty"`
	Brief          *EscalationBrief `json:"escalation_brief,omitempty"`
	Degraded       bool             `json:"degraded"`
	UsedFallback   bool             `json:"used_fallback"`
}
