package httpadapter

import (
	"strings"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func TestDecodeTurnPlainContextObject(t *testing.T) {
	body := `{
		"query": "my landlord will not fix the heater",
		"context": {"conversation_id": "conv-1", "state": "nsw"},
		"history": [{"role": "user", "content": "hello"}]
	}`

	turn, err := decodeTurn(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeTurn() error = %v", err)
	}
	if turn.Context.ConversationID != "conv-1" {
		t.Errorf("conversation_id = %q", turn.Context.ConversationID)
	}
	if turn.Context.State != "NSW" {
		t.Errorf("state = %q, want normalized NSW", turn.Context.State)
	}
	if len(turn.History) != 1 || turn.History[0].Content != "hello" {
		t.Errorf("history = %+v", turn.History)
	}
}

func TestDecodeTurnUnwrapsDoubleSerializedContext(t *testing.T) {
	body := `{
		"query": "bond not returned",
		"context": "{\"conversation_id\": \"conv-2\", \"state\": \"QLD\", \"document_url\": \"https://example.com/lease.pdf\"}"
	}`

	turn, err := decodeTurn(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeTurn() error = %v", err)
	}
	if turn.Context.ConversationID != "conv-2" {
		t.Errorf("conversation_id = %q", turn.Context.ConversationID)
	}
	if turn.Context.State != "QLD" {
		t.Errorf("state = %q", turn.Context.State)
	}
	if turn.Context.DocumentURL != "https://example.com/lease.pdf" {
		t.Errorf("document_url = %q", turn.Context.DocumentURL)
	}
}

func TestDecodeTurnUnwrapsTwiceSerializedContext(t *testing.T) {
	body := `{
		"query": "bond not returned",
		"context": "\"{\\\"state\\\": \\\"VIC\\\"}\""
	}`

	turn, err := decodeTurn(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decodeTurn() error = %v", err)
	}
	if turn.Context.State != "VIC" {
		t.Errorf("state = %q, want VIC", turn.Context.State)
	}
}

func TestDecodeTurnMissingContext(t *testing.T) {
	turn, err := decodeTurn(strings.NewReader(`{"query": "what is a bond"}`))
	if err != nil {
		t.Fatalf("decodeTurn() error = %v", err)
	}
	if turn.Context != (domain.TurnContext{}) {
		t.Errorf("expected zero context, got %+v", turn.Context)
	}
}

func TestDecodeTurnEmptyQueryRejected(t *testing.T) {
	_, err := decodeTurn(strings.NewReader(`{"query": "   "}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDecodeTurnMalformedContextRejected(t *testing.T) {
	_, err := decodeTurn(strings.NewReader(`{"query": "q", "context": "not json at all"}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
