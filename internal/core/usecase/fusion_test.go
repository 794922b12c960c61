package usecase

import (
	"math"
	"testing"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

func lexHit(id string, rank int) domain.ScoredHit {
	return domain.ScoredHit{
		Chunk:  domain.Chunk{ID: id, Kind: domain.ChunkKindChild, ParentID: "p-" + id},
		Source: domain.HitSourceLexical,
		Score:  1.0 / float64(rank),
		Rank:   rank,
	}
}

func vecHit(id string, rank int) domain.ScoredHit {
	return domain.ScoredHit{
		Chunk:  domain.Chunk{ID: id, Kind: domain.ChunkKindChild, ParentID: "p-" + id},
		Source: domain.HitSourceVector,
		Score:  1.0 - float64(rank)*0.05,
		Rank:   rank,
	}
}

func TestFuseHitsScoresAndOrder(t *testing.T) {
	lexical := []domain.ScoredHit{lexHit("a", 1), lexHit("b", 2)}
	vector := []domain.ScoredHit{vecHit("b", 1), vecHit("c", 2)}

	fused := FuseHits([][]domain.ScoredHit{lexical, vector}, DefaultRRFK)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}
	if fused[0].Chunk.ID != "b" {
		t.Fatalf("expected chunk appearing in both lists to rank first, got %q", fused[0].Chunk.ID)
	}

	wantTop := 1.0/float64(DefaultRRFK+2) + 1.0/float64(DefaultRRFK+1)
	if math.Abs(fused[0].Score-wantTop) > 1e-12 {
		t.Fatalf("fused score = %v, want %v", fused[0].Score, wantTop)
	}
	if fused[0].LexicalScore == 0 || fused[0].VectorScore == 0 {
		t.Fatalf("expected both source scores retained, got lexical=%v vector=%v",
			fused[0].LexicalScore, fused[0].VectorScore)
	}
}

func TestFuseHitsCommutative(t *testing.T) {
	lexical := []domain.ScoredHit{lexHit("a", 1), lexHit("b", 2), lexHit("c", 3)}
	vector := []domain.ScoredHit{vecHit("c", 1), vecHit("a", 2), vecHit("d", 3)}

	forward := FuseHits([][]domain.ScoredHit{lexical, vector}, DefaultRRFK)
	reversed := FuseHits([][]domain.ScoredHit{vector, lexical}, DefaultRRFK)

	if len(forward) != len(reversed) {
		t.Fatalf("result lengths differ: %d vs %d", len(forward), len(reversed))
	}
	for i := range forward {
		if forward[i].Chunk.ID != reversed[i].Chunk.ID {
			t.Fatalf("order differs at %d: %q vs %q", i, forward[i].Chunk.ID, reversed[i].Chunk.ID)
		}
		if math.Abs(forward[i].Score-reversed[i].Score) > 1e-12 {
			t.Fatalf("score differs at %d: %v vs %v", i, forward[i].Score, reversed[i].Score)
		}
	}
}

func TestFuseHitsTieBreak(t *testing.T) {
	// Same RRF mass for every chunk; vector score, then lexical score,
	// then chunk ID must decide the order.
	lexical := []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "z"}, Source: domain.HitSourceLexical, Score: 0.9, Rank: 1},
	}
	vector := []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "m"}, Source: domain.HitSourceVector, Score: 0.8, Rank: 1},
	}
	fused := FuseHits([][]domain.ScoredHit{lexical, vector}, DefaultRRFK)
	if len(fused) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fused))
	}
	if fused[0].Chunk.ID != "m" {
		t.Fatalf("expected vector-scored chunk first on equal RRF mass, got %q", fused[0].Chunk.ID)
	}

	// Identical everything except ID: lowest ID wins for stable output.
	tied := FuseHits([][]domain.ScoredHit{
		{{Chunk: domain.Chunk{ID: "b"}, Source: domain.HitSourceLexical, Score: 0.5, Rank: 1}},
		{{Chunk: domain.Chunk{ID: "a"}, Source: domain.HitSourceLexical, Score: 0.5, Rank: 1}},
	}, DefaultRRFK)
	if tied[0].Chunk.ID != "a" {
		t.Fatalf("expected ID tie-break to pick %q first, got %q", "a", tied[0].Chunk.ID)
	}
}

func TestFuseHitsMissingRankFallsBackToPosition(t *testing.T) {
	hits := []domain.ScoredHit{
		{Chunk: domain.Chunk{ID: "a"}, Source: domain.HitSourceLexical, Score: 0.9},
		{Chunk: domain.Chunk{ID: "b"}, Source: domain.HitSourceLexical, Score: 0.7},
	}
	fused := FuseHits([][]domain.ScoredHit{hits}, DefaultRRFK)
	want := 1.0 / float64(DefaultRRFK+1)
	if math.Abs(fused[0].Score-want) > 1e-12 {
		t.Fatalf("positional rank score = %v, want %v", fused[0].Score, want)
	}
}

func TestApplyScoreFloor(t *testing.T) {
	results := []domain.FusedResult{
		{Chunk: domain.Chunk{ID: "keep"}, Score: 0.02},
		{Chunk: domain.Chunk{ID: "drop"}, Score: 0.001},
	}
	kept := applyScoreFloor(results, DefaultFusedScoreFloor)
	if len(kept) != 1 || kept[0].Chunk.ID != "keep" {
		t.Fatalf("floor kept %v", kept)
	}
}

func TestDedupeByParentKeepsBestChildPerParent(t *testing.T) {
	results := []domain.FusedResult{
		{Chunk: domain.Chunk{ID: "c1", ParentID: "p1", Kind: domain.ChunkKindChild}, Score: 0.04},
		{Chunk: domain.Chunk{ID: "c2", ParentID: "p1", Kind: domain.ChunkKindChild}, Score: 0.03},
		{Chunk: domain.Chunk{ID: "c3", ParentID: "p2", Kind: domain.ChunkKindChild}, Score: 0.02},
		{Chunk: domain.Chunk{ID: "p3", Kind: domain.ChunkKindParent}, Score: 0.01},
	}
	deduped := dedupeByParent(results)
	if len(deduped) != 3 {
		t.Fatalf("expected 3 results after dedup, got %d", len(deduped))
	}
	if deduped[0].Chunk.ID != "c1" || deduped[1].Chunk.ID != "c3" || deduped[2].Chunk.ID != "p3" {
		t.Fatalf("unexpected dedup order: %q %q %q",
			deduped[0].Chunk.ID, deduped[1].Chunk.ID, deduped[2].Chunk.ID)
	}
}
