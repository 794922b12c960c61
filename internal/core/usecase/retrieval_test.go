package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeLexical struct {
	hits []domain.ScoredHit
	err  error
}

func (f *fakeLexical) SearchLexical(_ context.Context, _, _ string, _ int) ([]domain.ScoredHit, error) {
	return f.hits, f.err
}

type fakeVector struct {
	hits  []domain.ScoredHit
	err   error
	calls int
}

func (f *fakeVector) SearchVector(_ context.Context, _ []float32, _ string, _ int) ([]domain.ScoredHit, error) {
	f.calls++
	return f.hits, f.err
}

type fakeParents struct {
	texts map[string]string
	calls int
}

func (f *fakeParents) GetParentText(_ context.Context, parentID string) (string, error) {
	f.calls++
	text, ok := f.texts[parentID]
	if !ok {
		return "", errors.New("parent not found")
	}
	return text, nil
}

type fakeReranker struct {
	scores map[string]float64
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []domain.FusedResult) ([]domain.FusedResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.FusedResult, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score = f.scores[out[i].Chunk.ID]
	}
	return out, nil
}

type fakeRemote struct {
	hits  []domain.ScoredHit
	err   error
	calls int
}

func (f *fakeRemote) SearchRemote(_ context.Context, _, _ string, _ int) ([]domain.ScoredHit, error) {
	f.calls++
	return f.hits, f.err
}

func fastConfig() RetrievalConfig {
	return RetrievalConfig{
		EmbedBackoffBase: time.Millisecond,
		AdapterTimeout:   time.Second,
	}
}

func TestSearchHappyPathHighConfidenceNoFallback(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", ParentID: "p1", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.8, Rank: 1},
	}}
	vector := &fakeVector{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", ParentID: "p1", Kind: domain.ChunkKindChild}, Source: domain.HitSourceVector, Score: 0.9, Rank: 1},
		{Chunk: domain.Chunk{ID: "c2", ParentID: "p2", Kind: domain.ChunkKindChild}, Source: domain.HitSourceVector, Score: 0.7, Rank: 2},
	}}
	parents := &fakeParents{texts: map[string]string{"p1": "parent one text", "p2": "parent two text"}}
	reranker := &fakeReranker{scores: map[string]float64{"c1": 0.92, "c2": 0.45}}
	remote := &fakeRemote{}

	r := NewHybridRetriever(&fakeEmbedder{vector: []float32{0.1}}, lexical, vector, parents, reranker, remote, nil, fastConfig())

	result, err := r.Search(context.Background(), "tenant bond return", domain.JurisdictionNSW, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.UsedFallback {
		t.Fatal("expected no fallback on high confidence")
	}
	if remote.calls != 0 {
		t.Fatalf("remote searcher called %d times", remote.calls)
	}
	if result.Confidence != domain.ConfidenceHigh {
		t.Fatalf("confidence = %v, want high", result.Confidence)
	}
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	if !result.Results[0].Reranked {
		t.Fatal("expected top result marked reranked")
	}
	if result.Results[0].ParentText != "parent one text" {
		t.Fatalf("parent text = %q", result.Results[0].ParentText)
	}
}

func TestSearchTailPastRerankWindowKeepsFusedScale(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", ParentID: "p1", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.8, Rank: 1},
		{Chunk: domain.Chunk{ID: "c2", ParentID: "p2", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.7, Rank: 2},
		{Chunk: domain.Chunk{ID: "c3", ParentID: "p3", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.6, Rank: 3},
	}}
	parents := &fakeParents{texts: map[string]string{"p1": "one", "p2": "two", "p3": "three"}}
	reranker := &fakeReranker{scores: map[string]float64{"c1": 0.9, "c2": 0.7}}

	cfg := fastConfig()
	cfg.RerankTopN = 2
	r := NewHybridRetriever(&fakeEmbedder{vector: []float32{0.1}}, lexical, &fakeVector{}, parents, reranker, nil, nil, cfg)

	result, err := r.Search(context.Background(), "sublease consent", domain.JurisdictionNSW, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(result.Results))
	}
	if !result.Results[0].Reranked || result.Results[0].Confidence != domain.ConfidenceHigh {
		t.Fatalf("head = {reranked: %v, confidence: %v}, want reranked high",
			result.Results[0].Reranked, result.Results[0].Confidence)
	}
	// Rank 3 of a single list fuses to 1/63 with K=60, a low-tier fused
	// score but well below every reranked cut point.
	tail := result.Results[2]
	if tail.Reranked {
		t.Fatal("tail result past the rerank window marked reranked")
	}
	if tail.Confidence != domain.ConfidenceLow {
		t.Fatalf("tail confidence = %v, want low on the fused scale", tail.Confidence)
	}
}

func TestSearchParentResolutionCachesPerParent(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", ParentID: "p1", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.8, Rank: 1},
		{Chunk: domain.Chunk{ID: "c2", ParentID: "p1", Kind: domain.ChunkKindChild}, Source: domain.HitSourceLexical, Score: 0.6, Rank: 2},
	}}
	parents := &fakeParents{texts: map[string]string{"p1": "shared parent"}}
	reranker := &fakeReranker{scores: map[string]float64{"c1": 0.9, "c2": 0.7}}

	r := NewHybridRetriever(&fakeEmbedder{err: errors.New("embedder down")}, lexical, &fakeVector{}, parents, reranker, nil, nil, fastConfig())
	result, err := r.Search(context.Background(), "strata bylaws", domain.JurisdictionNSW, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Parent dedup keeps one child per parent, so a single lookup happens.
	if len(result.Results) != 1 {
		t.Fatalf("got %d results after parent dedup, want 1", len(result.Results))
	}
	if parents.calls != 1 {
		t.Fatalf("parent store called %d times, want 1", parents.calls)
	}
}

func TestSearchEmbedFailureDegradesToLexicalOnly(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedder down")}
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", Kind: domain.ChunkKindParent}, Source: domain.HitSourceLexical, Score: 0.8, Rank: 1},
	}}
	vector := &fakeVector{}

	r := NewHybridRetriever(embedder, lexical, vector, nil, nil, nil, nil, fastConfig())
	result, err := r.Search(context.Background(), "unfair dismissal", domain.JurisdictionFederal, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("embedder attempts = %d, want 3", embedder.calls)
	}
	if vector.calls != 0 {
		t.Fatal("vector index must not be queried without a query vector")
	}
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
}

func TestSearchLowConfidenceTriggersRemoteFallback(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", Kind: domain.ChunkKindParent}, Source: domain.HitSourceLexical, Score: 0.3, Rank: 3},
	}}
	reranker := &fakeReranker{scores: map[string]float64{"c1": 0.30}}
	remote := &fakeRemote{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "r1", Kind: domain.ChunkKindParent, SourceURL: "https://www.austlii.edu.au/x"}, Source: domain.HitSourceRemote, Score: 0.5, Rank: 1},
	}}

	r := NewHybridRetriever(&fakeEmbedder{err: errors.New("down")}, lexical, &fakeVector{}, nil, reranker, remote, nil, fastConfig())
	result, err := r.Search(context.Background(), "obscure easement dispute", domain.JurisdictionQLD, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.UsedFallback {
		t.Fatal("expected fallback on low confidence")
	}
	if result.Confidence != domain.ConfidenceLow {
		t.Fatalf("confidence = %v, want low", result.Confidence)
	}
	last := result.Results[len(result.Results)-1]
	if last.Provenance != domain.ProvenanceRemote {
		t.Fatalf("expected remote results appended after local, got provenance %v", last.Provenance)
	}
	if last.Confidence != domain.ConfidenceNone {
		t.Fatalf("remote result confidence = %v, want none", last.Confidence)
	}
}

func TestSearchEmptyRemoteResultStillMarksFallbackUsed(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", Kind: domain.ChunkKindParent}, Source: domain.HitSourceLexical, Score: 0.3, Rank: 3},
	}}
	reranker := &fakeReranker{scores: map[string]float64{"c1": 0.30}}
	remote := &fakeRemote{}

	r := NewHybridRetriever(&fakeEmbedder{err: errors.New("down")}, lexical, &fakeVector{}, nil, reranker, remote, nil, fastConfig())
	result, err := r.Search(context.Background(), "obscure easement dispute", domain.JurisdictionQLD, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if remote.calls != 1 {
		t.Fatalf("remote searcher called %d times, want 1", remote.calls)
	}
	// A fallback that answered with no hits was still consulted.
	if !result.UsedFallback {
		t.Fatal("expected UsedFallback after a reachable remote search")
	}
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want the local hit only", len(result.Results))
	}
}

func TestSearchUnsupportedJurisdictionIsFallbackOnly(t *testing.T) {
	lexical := &fakeLexical{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "c1", Kind: domain.ChunkKindParent}, Source: domain.HitSourceLexical, Score: 0.9, Rank: 1},
	}}
	remote := &fakeRemote{hits: []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "r1", Kind: domain.ChunkKindParent}, Source: domain.HitSourceRemote, Score: 0.5, Rank: 1},
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1}}

	r := NewHybridRetriever(embedder, lexical, &fakeVector{}, nil, nil, remote, nil, fastConfig())
	result, err := r.Search(context.Background(), "eviction notice", domain.JurisdictionUnsupported, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.UsedFallback {
		t.Fatal("expected fallback-only result")
	}
	if embedder.calls != 0 {
		t.Fatal("local pipeline must be skipped for unsupported jurisdictions")
	}
	if len(result.Results) != 1 || result.Results[0].Chunk.ID != "r1" {
		t.Fatalf("unexpected results: %+v", result.Results)
	}
}

func TestSearchAllSourcesDown(t *testing.T) {
	r := NewHybridRetriever(
		&fakeEmbedder{err: errors.New("embed down")},
		&fakeLexical{err: errors.New("postgres down")},
		&fakeVector{err: errors.New("qdrant down")},
		nil, nil,
		&fakeRemote{err: errors.New("remote down")},
		nil, fastConfig(),
	)
	_, err := r.Search(context.Background(), "any query", domain.JurisdictionNSW, 5)
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected retrieval-unavailable, got %v", err)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	r := NewHybridRetriever(&fakeEmbedder{}, &fakeLexical{}, &fakeVector{}, nil, nil, nil, nil, fastConfig())
	if _, err := r.Search(context.Background(), "", domain.JurisdictionNSW, 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty query: got %v", err)
	}
	if _, err := r.Search(context.Background(), "q", domain.JurisdictionNSW, 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("zero k: got %v", err)
	}
	if _, err := r.Search(context.Background(), "q", "MARS", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown jurisdiction: got %v", err)
	}
}
