package domain

import (
	"errors"
	"fmt"
)

type ChunkKind string

const (
	ChunkKindParent ChunkKind = "parent"
	ChunkKindChild  ChunkKind = "child"
)

// Ingestion-time chunking parameters. Documents below SmallDocumentChars are
// stored as parent chunks only.
const (
	ParentChunkTokens  = 2000
	ChildChunkTokens   = 500
	ChildChunkOverlap  = 50
	SmallDocumentChars = 10000
)

// Chunk is a retrievable unit of source legislation. Child chunks give
// retrieval precision; their parent carries the surrounding context.
// Chunks are created at ingestion time and are immutable here.
type Chunk struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id,omitempty"`
	Jurisdiction string    `json:"jurisdiction"`
	Citation     string    `json:"citation"`
	SourceURL    string    `json:"source_url,omitempty"`
	Text         string    `json:"text"`
	TokenCount   int       `json:"token_count"`
	Kind         ChunkKind `json:"kind"`
}

func (c Chunk) Validate() error {
	if c.ID == "" {
		return WrapError(ErrInvalidInput, "validate chunk", errors.New("chunk id is empty"))
	}
	switch c.Kind {
	case ChunkKindParent:
		if c.ParentID != "" {
			return WrapError(ErrInvalidInput, "validate chunk", fmt.Errorf("parent chunk %s has parent_id %s", c.ID, c.ParentID))
		}
	case ChunkKindChild:
		if c.ParentID == "" {
			return WrapError(ErrInvalidInput, "validate chunk", fmt.Errorf("child chunk %s has no parent_id", c.ID))
		}
	default:
		return WrapError(ErrInvalidInput, "validate chunk", fmt.Errorf("unknown chunk kind %q", c.Kind))
	}
	return nil
}

type HitSource string

const (
	HitSourceLexical HitSource = "lexical"
	HitSourceVector  HitSource = "vector"
	HitSourceRemote  HitSource = "remote"
)

// ScoredHit is one ranked hit from a single search source. Raw scores are
// source-specific and must not be compared across sources.
type ScoredHit struct {
	Chunk  Chunk
	Source HitSource
	Score  float64
	Rank   int
}

type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceNone   ConfidenceTier = "none"
)

type Provenance string

const (
	ProvenanceLocal  Provenance = "local"
	ProvenanceRemote Provenance = "remote"
)

// FusedResult is one entry of the merged result list. Score is the RRF fused
// score, overwritten by the reranker relevance score when reranking ran.
type FusedResult struct {
	Chunk        Chunk          `json:"chunk"`
	Score        float64        `json:"score"`
	VectorScore  float64        `json:"vector_score,omitempty"`
	LexicalScore float64        `json:"lexical_score,omitempty"`
	Reranked     bool           `json:"reranked"`
	Confidence   ConfidenceTier `json:"confidence"`
	Provenance   Provenance     `json:"provenance"`
	ParentText   string         `json:"parent_text,omitempty"`
}

// SearchResult is the outcome of one hybrid search. Confidence reflects the
// best local result; remote fallback hits never raise it.
type SearchResult struct {
	Results      []FusedResult  `json:"results"`
	Confidence   ConfidenceTier `json:"confidence"`
	UsedFallback bool           `json:"used_fallback"`
}
