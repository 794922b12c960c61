package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// Some UI clients serialize the context object, then serialize the resulting
// string again, so the payload arrives as a JSON string containing JSON.
// Unwrapping is bounded and happens only here; core logic always receives a
// clean TurnContext.
const maxContextUnwrapDepth = 3

type turnRequest struct {
	Query   string               `json:"query"`
	Context json.RawMessage      `json:"context"`
	History []domain.TurnMessage `json:"history"`
}

type turnContextWire struct {
	ConversationID string `json:"conversation_id"`
	State          string `json:"state"`
	DocumentURL    string `json:"document_url"`
}

func decodeTurn(body io.Reader) (domain.Turn, error) {
	var req turnRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return domain.Turn{}, domain.WrapError(domain.ErrInvalidInput, "decode turn", err)
	}

	turnContext, err := normalizeTurnContext(req.Context)
	if err != nil {
		return domain.Turn{}, err
	}

	turn := domain.Turn{
		Context: turnContext,
		Query:   strings.TrimSpace(req.Query),
		History: req.History,
	}
	if err := turn.Validate(); err != nil {
		return domain.Turn{}, err
	}
	return turn, nil
}

func normalizeTurnContext(raw json.RawMessage) (domain.TurnContext, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return domain.TurnContext{}, nil
	}

	for depth := 0; depth < maxContextUnwrapDepth; depth++ {
		var wrapped string
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			break
		}
		wrapped = strings.TrimSpace(wrapped)
		if wrapped == "" {
			return domain.TurnContext{}, nil
		}
		raw = json.RawMessage(wrapped)
	}

	if isJSONString(raw) {
		return domain.TurnContext{}, domain.WrapError(domain.ErrInvalidInput, "decode turn context",
			fmt.Errorf("context nested more than %d levels deep", maxContextUnwrapDepth))
	}
	var wire turnContextWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.TurnContext{}, domain.WrapError(domain.ErrInvalidInput, "decode turn context", err)
	}

	return domain.TurnContext{
		ConversationID: strings.TrimSpace(wire.ConversationID),
		State:          strings.ToUpper(strings.TrimSpace(wire.State)),
		DocumentURL:    strings.TrimSpace(wire.DocumentURL),
	}, nil
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, `"`)
}
