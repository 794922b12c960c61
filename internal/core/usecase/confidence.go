package usecase

import "github.com/auslawai/legal-assistant/internal/core/domain"

// ConfidenceScale selects which cut-point set applies. Reranker relevance
// scores and raw RRF scores live on different scales and must never be
// compared against the same thresholds.
type ConfidenceScale string

const (
	ScaleReranked ConfidenceScale = "reranked"
	ScaleFused    ConfidenceScale = "fused"
)

// CutPoints are the three confidence thresholds for one score scale.
type CutPoints struct {
	High   float64
	Medium float64
	Low    float64
}

// Cut points for reranker relevance scores (0..1 cross-encoder output).
const (
	RerankedHighCut   = 0.60
	RerankedMediumCut = 0.40
	RerankedLowCut    = 0.25
)

// Cut points for raw RRF fused scores, calibrated separately: a chunk ranked
// first in both lists scores 2/(K+1) ≈ 0.033 with K=60.
const (
	FusedHighCut   = 0.030
	FusedMediumCut = 0.020
	FusedLowCut    = 0.012
)

// ConfidenceClassifier maps a top-result score to a tier.
type ConfidenceClassifier struct {
	Reranked CutPoints
	Fused    CutPoints
}

func NewConfidenceClassifier() *ConfidenceClassifier {
	return &ConfidenceClassifier{
		Reranked: CutPoints{High: RerankedHighCut, Medium: RerankedMediumCut, Low: RerankedLowCut},
		Fused:    CutPoints{High: FusedHighCut, Medium: FusedMediumCut, Low: FusedLowCut},
	}
}

func (c *ConfidenceClassifier) cutPoints(scale ConfidenceScale) CutPoints {
	if scale == ScaleReranked {
		return c.Reranked
	}
	return c.Fused
}

// Classify buckets a scalar score. An empty result set is ConfidenceNone and
// is the caller's case to detect; scores below the low cut also map to none.
func (c *ConfidenceClassifier) Classify(score float64, scale ConfidenceScale) domain.ConfidenceTier {
	cuts := c.cutPoints(scale)
	switch {
	case score >= cuts.High:
		return domain.ConfidenceHigh
	case score >= cuts.Medium:
		return domain.ConfidenceMedium
	case score >= cuts.Low:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceNone
	}
}
