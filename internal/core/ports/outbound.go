package ports

import (
	"context"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// Embedder converts query text to a fixed-width dense vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LexicalIndex runs full-text search over the local corpus.
type LexicalIndex interface {
	SearchLexical(ctx context.Context, query, jurisdiction string, limit int) ([]domain.ScoredHit, error)
}

// VectorIndex runs nearest-neighbour search over chunk embeddings.
type VectorIndex interface {
	SearchVector(ctx context.Context, queryVector []float32, jurisdiction string, limit int) ([]domain.ScoredHit, error)
}

// ParentStore resolves parent chunk text for child hits.
type ParentStore interface {
	GetParentText(ctx context.Context, parentID string) (string, error)
}

// Reranker scores fused candidates with a remote cross-encoder. Optional;
// retrieval degrades gracefully when it is absent or failing.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.FusedResult) ([]domain.FusedResult, error)
}

// RemoteLegalSearcher searches an external legal database, used when local
// confidence is insufficient or the jurisdiction has no corpus coverage.
type RemoteLegalSearcher interface {
	SearchRemote(ctx context.Context, query, state string, limit int) ([]domain.ScoredHit, error)
}

// GenerateOptions constrains a reasoning call. Internal calls must never be
// surfaced in any user-visible stream.
type GenerateOptions struct {
	JSON     bool
	Internal bool
}

// ReasoningModel is the external language-model collaborator used by the
// safety/complexity classifiers, the pipeline stages, and response assembly.
type ReasoningModel interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// BriefPublisher hands completed escalation briefs to external collaborators
// (lawyer matching, persistence).
type BriefPublisher interface {
	PublishBrief(ctx context.Context, brief *domain.EscalationBrief) error
}
