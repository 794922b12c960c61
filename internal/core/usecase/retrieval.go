package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/core/ports"
)

// RetrievalConfig tunes the hybrid retrieval coordinator. Zero values take
// the defaults below.
type RetrievalConfig struct {
	RRFK             int
	FusedScoreFloor  float64
	RerankTopN       int
	AdapterTimeout   time.Duration
	EmbedMaxAttempts int
	EmbedBackoffBase time.Duration
	RemoteLimit      int
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.RRFK <= 0 {
		out.RRFK = DefaultRRFK
	}
	if out.FusedScoreFloor <= 0 {
		out.FusedScoreFloor = DefaultFusedScoreFloor
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = 25
	}
	if out.AdapterTimeout <= 0 {
		out.AdapterTimeout = 3 * time.Second
	}
	if out.EmbedMaxAttempts <= 0 {
		out.EmbedMaxAttempts = 3
	}
	if out.EmbedBackoffBase <= 0 {
		out.EmbedBackoffBase = time.Second
	}
	if out.RemoteLimit <= 0 {
		out.RemoteLimit = 5
	}
	return out
}

// RetrievalMetrics receives retrieval outcomes for observability. Optional.
type RetrievalMetrics interface {
	ObserveSearch(tier domain.ConfidenceTier, usedFallback bool, duration time.Duration)
}

// HybridRetriever coordinates lexical and vector search, RRF fusion,
// optional reranking, confidence classification, and remote fallback.
type HybridRetriever struct {
	embedder   ports.Embedder
	lexical    ports.LexicalIndex
	vector     ports.VectorIndex
	parents    ports.ParentStore
	reranker   ports.Reranker            // nil when not configured
	remote     ports.RemoteLegalSearcher // nil when not configured
	classifier *ConfidenceClassifier
	metrics    RetrievalMetrics
	cfg        RetrievalConfig
}

func NewHybridRetriever(
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	parents ports.ParentStore,
	reranker ports.Reranker,
	remote ports.RemoteLegalSearcher,
	metrics RetrievalMetrics,
	cfg RetrievalConfig,
) *HybridRetriever {
	return &HybridRetriever{
		embedder:   embedder,
		lexical:    lexical,
		vector:     vector,
		parents:    parents,
		reranker:   reranker,
		remote:     remote,
		classifier: NewConfidenceClassifier(),
		metrics:    metrics,
		cfg:        cfg.normalize(),
	}
}

// Search runs one hybrid search. jurisdiction must be a supported corpus code
// or domain.JurisdictionUnsupported, which switches to fallback-only mode.
func (r *HybridRetriever) Search(ctx context.Context, query, jurisdiction string, k int) (*domain.SearchResult, error) {
	start := time.Now()
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("k must be positive, got %d", k))
	}
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty"))
	}
	if jurisdiction != domain.JurisdictionUnsupported && domain.ResolveJurisdiction(jurisdiction) == domain.JurisdictionUnsupported {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unknown jurisdiction %q", jurisdiction))
	}

	result, err := r.search(ctx, query, jurisdiction, k)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ObserveSearch(result.Confidence, result.UsedFallback, time.Since(start))
	}
	return result, nil
}

func (r *HybridRetriever) search(ctx context.Context, query, jurisdiction string, k int) (*domain.SearchResult, error) {
	if jurisdiction == domain.JurisdictionUnsupported {
		return r.fallbackOnly(ctx, query, k)
	}

	queryVector := r.embedWithRetry(ctx, query)

	lexHits, vecHits, localErr := r.searchLocal(ctx, query, queryVector, jurisdiction, localCandidateLimit(k))

	fused := FuseHits([][]domain.ScoredHit{lexHits, vecHits}, r.cfg.RRFK)
	fused = applyScoreFloor(fused, r.cfg.FusedScoreFloor)

	r.rerank(ctx, query, fused)
	fused = dedupeByParent(fused)

	// Results past the rerank window keep raw fused scores and are bucketed
	// on the fused scale.
	for i := range fused {
		scale := ScaleFused
		if fused[i].Reranked {
			scale = ScaleReranked
		}
		fused[i].Confidence = r.classifier.Classify(fused[i].Score, scale)
	}

	tier := domain.ConfidenceNone
	if len(fused) > 0 {
		tier = fused[0].Confidence
	}

	usedFallback := false
	if tier == domain.ConfidenceNone || tier == domain.ConfidenceLow {
		remote, err := r.searchRemote(ctx, query, jurisdiction)
		if err == nil {
			// The flag records that the fallback was consulted, an empty
			// remote result set included.
			usedFallback = true
			fused = append(fused, remote...)
		} else {
			slog.Warn("remote_fallback_failed", "error", err)
			if len(fused) == 0 && localErr != nil {
				return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "search", localErr)
			}
		}
	}
	if len(fused) == 0 && localErr != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "search", localErr)
	}

	if len(fused) > k {
		fused = fused[:k]
	}
	r.resolveParents(ctx, fused)

	return &domain.SearchResult{
		Results:      fused,
		Confidence:   tier,
		UsedFallback: usedFallback,
	}, nil
}

// fallbackOnly serves jurisdictions without local corpus coverage.
func (r *HybridRetriever) fallbackOnly(ctx context.Context, query string, k int) (*domain.SearchResult, error) {
	remote, err := r.searchRemote(ctx, query, "")
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "fallback-only search", err)
	}
	if len(remote) > k {
		remote = remote[:k]
	}
	return &domain.SearchResult{
		Results:      remote,
		Confidence:   domain.ConfidenceNone,
		UsedFallback: true,
	}, nil
}

// embedWithRetry returns nil on exhaustion; the caller proceeds lexical-only.
func (r *HybridRetriever) embedWithRetry(ctx context.Context, query string) []float32 {
	backoff := r.cfg.EmbedBackoffBase
	for attempt := 1; attempt <= r.cfg.EmbedMaxAttempts; attempt++ {
		vector, err := r.embedder.EmbedQuery(ctx, query)
		if err == nil && len(vector) > 0 {
			return vector
		}
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("embed_query_failed", "attempt", attempt, "max_attempts", r.cfg.EmbedMaxAttempts, "error", err)
		if attempt == r.cfg.EmbedMaxAttempts {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil
}

// searchLocal runs lexical and vector search concurrently, each bounded by
// the adapter timeout. A slow or failing adapter is dropped rather than
// blocking the turn; localErr is non-nil only when no source produced hits.
func (r *HybridRetriever) searchLocal(
	ctx context.Context,
	query string,
	queryVector []float32,
	jurisdiction string,
	limit int,
) (lexical, vector []domain.ScoredHit, localErr error) {
	type adapterResult struct {
		hits []domain.ScoredHit
		err  error
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.AdapterTimeout)
	defer cancel()

	lexCh := make(chan adapterResult, 1)
	go func() {
		hits, err := r.lexical.SearchLexical(searchCtx, query, jurisdiction, limit)
		lexCh <- adapterResult{hits: hits, err: err}
	}()

	vecCh := make(chan adapterResult, 1)
	if len(queryVector) > 0 {
		go func() {
			hits, err := r.vector.SearchVector(searchCtx, queryVector, jurisdiction, limit)
			vecCh <- adapterResult{hits: hits, err: err}
		}()
	} else {
		vecCh <- adapterResult{}
	}

	lexRes := <-lexCh
	vecRes := <-vecCh

	if lexRes.err != nil {
		slog.Warn("lexical_search_failed", "error", lexRes.err)
	}
	if vecRes.err != nil {
		slog.Warn("vector_search_failed", "error", vecRes.err)
	}
	if lexRes.err != nil && (vecRes.err != nil || len(queryVector) == 0) {
		localErr = domain.WrapError(domain.ErrAdapterUnavailable, "local search",
			errors.Join(lexRes.err, vecRes.err))
	}
	return lexRes.hits, vecRes.hits, localErr
}

// rerank rescores the top candidates in place and marks each one Reranked.
// Reranker failure degrades to fused order.
func (r *HybridRetriever) rerank(ctx context.Context, query string, fused []domain.FusedResult) {
	if r.reranker == nil || len(fused) == 0 {
		return
	}
	topN := r.cfg.RerankTopN
	if topN > len(fused) {
		topN = len(fused)
	}

	head, err := r.reranker.Rerank(ctx, query, fused[:topN])
	if err != nil || len(head) != topN {
		slog.Warn("rerank_failed", "error", err)
		return
	}
	for i := range head {
		head[i].Reranked = true
	}
	sort.SliceStable(head, func(i, j int) bool { return head[i].Score > head[j].Score })
	// The reranked head stays above the fused-score tail.
	copy(fused[:topN], head)
}

func (r *HybridRetriever) searchRemote(ctx context.Context, query, jurisdiction string) ([]domain.FusedResult, error) {
	if r.remote == nil {
		return nil, domain.WrapError(domain.ErrAdapterUnavailable, "remote fallback", errors.New("no fallback adapter configured"))
	}
	hits, err := r.remote.SearchRemote(ctx, query, jurisdiction, r.cfg.RemoteLimit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FusedResult, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.FusedResult{
			Chunk:      hit.Chunk,
			Score:      hit.Score,
			Confidence: domain.ConfidenceNone,
			Provenance: domain.ProvenanceRemote,
		})
	}
	return out, nil
}

// resolveParents attaches parent chunk text to child hits, one lookup per
// unique parent. Resolution failures leave the child text standing alone.
func (r *HybridRetriever) resolveParents(ctx context.Context, results []domain.FusedResult) {
	if r.parents == nil {
		return
	}
	cache := make(map[string]string)
	for i := range results {
		chunk := results[i].Chunk
		if chunk.Kind != domain.ChunkKindChild || chunk.ParentID == "" {
			continue
		}
		text, ok := cache[chunk.ParentID]
		if !ok {
			var err error
			text, err = r.parents.GetParentText(ctx, chunk.ParentID)
			if err != nil {
				slog.Warn("parent_lookup_failed", "parent_id", chunk.ParentID, "error", err)
				continue
			}
			cache[chunk.ParentID] = text
		}
		results[i].ParentText = text
	}
}

// localCandidateLimit gives fusion enough material from each source.
func localCandidateLimit(k int) int {
	limit := k * 4
	if limit < 40 {
		limit = 40
	}
	return limit
}
