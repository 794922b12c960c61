package ports

import (
	"context"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// LegalSearchService is the inbound contract for hybrid legal retrieval,
// consumed by any tool needing authoritative source text.
type LegalSearchService interface {
	Search(ctx context.Context, query, jurisdiction string, k int) (*domain.SearchResult, error)
}

// TurnWorkflow is the inbound contract for processing one conversational turn
// through safety gating, complexity routing, and the stage pipeline.
type TurnWorkflow interface {
	HandleTurn(ctx context.Context, turn domain.Turn) (*domain.TurnResult, error)
}
