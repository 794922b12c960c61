package usecase

import (
	"sort"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// DefaultRRFK is the reciprocal-rank-fusion smoothing constant.
const DefaultRRFK = 60

// DefaultFusedScoreFloor drops the long tail of single-source candidates that
// contribute no signal. With K=60 it cuts hits ranked worse than ~65 that
// appear in only one list.
const DefaultFusedScoreFloor = 0.008

type fusedAccumulator struct {
	chunk        domain.Chunk
	score        float64
	vectorScore  float64
	lexicalScore float64
}

// FuseHits merges ranked hit lists with reciprocal rank fusion: each hit
// contributes 1/(K + rank) per list it appears in. The combination is
// commutative in list order. Ties break on raw vector similarity, then
// lexical score, then chunk id.
func FuseHits(lists [][]domain.ScoredHit, rrfK int) []domain.FusedResult {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}

	acc := make(map[string]*fusedAccumulator)
	for _, list := range lists {
		for i, hit := range list {
			rank := hit.Rank
			if rank <= 0 {
				rank = i + 1
			}
			entry := acc[hit.Chunk.ID]
			if entry == nil {
				entry = &fusedAccumulator{chunk: hit.Chunk}
				acc[hit.Chunk.ID] = entry
			}
			entry.score += 1.0 / float64(rrfK+rank)
			switch hit.Source {
			case domain.HitSourceVector:
				if hit.Score > entry.vectorScore {
					entry.vectorScore = hit.Score
				}
			case domain.HitSourceLexical:
				if hit.Score > entry.lexicalScore {
					entry.lexicalScore = hit.Score
				}
			}
		}
	}

	out := make([]domain.FusedResult, 0, len(acc))
	for _, entry := range acc {
		out = append(out, domain.FusedResult{
			Chunk:        entry.chunk,
			Score:        entry.score,
			VectorScore:  entry.vectorScore,
			LexicalScore: entry.lexicalScore,
			Provenance:   domain.ProvenanceLocal,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		if out[i].LexicalScore != out[j].LexicalScore {
			return out[i].LexicalScore > out[j].LexicalScore
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})

	return out
}

func applyScoreFloor(results []domain.FusedResult, floor float64) []domain.FusedResult {
	if floor <= 0 {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if r.Score >= floor {
			out = append(out, r)
		}
	}
	return out
}

// dedupeByParent keeps only the best-scoring chunk per parent so the result
// set spans distinct Acts rather than repeating one. Parent chunks key on
// their own id.
func dedupeByParent(results []domain.FusedResult) []domain.FusedResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]domain.FusedResult, 0, len(results))
	for _, r := range results {
		key := r.Chunk.ParentID
		if key == "" {
			key = r.Chunk.ID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
