// Package rank merges raw per-tier hits into one deduplicated, explained,
// deterministically ordered result list.
package rank

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/search"
)

const (
	// DefaultAlpha keeps hits scoring at least alpha * top1 within a tier.
	DefaultAlpha = 0.5

	// DefaultVectorWeight scales the additive cosine-similarity signal.
	DefaultVectorWeight = 0.3

	// ltTieBreakConfidence ranks verified LT hits above any reachable HOT
	// confidence score when normalized scores are equal.
	ltTieBreakConfidence = 1000
)

// Config holds the ranking knobs.
type Config struct {
	Alpha        float64
	VectorWeight float64
}

// Engine is the ranking engine. It is stateless and safe for concurrent use.
type Engine struct {
	alpha        float64
	vectorWeight float64
	logger       *zap.Logger
}

// New creates a ranking engine. Zero-valued config fields fall back to
// defaults.
func New(cfg *Config, logger *zap.Logger) *Engine {
	alpha := DefaultAlpha
	weight := DefaultVectorWeight
	if cfg != nil {
		if cfg.Alpha > 0 {
			alpha = cfg.Alpha
		}
		if cfg.VectorWeight > 0 {
			weight = cfg.VectorWeight
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{alpha: alpha, vectorWeight: weight, logger: logger}
}

// Merge ranks the raw hits of both tiers into one ordered list.
//
// Raw scores are cut off and normalized per tier before merging because the
// two stores produce incomparable score ranges. When the same document shows
// up in both tiers the LT copy wins. queryVec, when non-nil, adds a cosine
// similarity bonus to hits that carry an embedding; since every input hit
// already passed the lexical search, the vector signal can reorder but never
// admit a document without a lexical match.
func (e *Engine) Merge(q search.Query, queryVec []float32, lt, hot []search.Hit, size int) []search.Result {
	ltKept := normalize(cutoff(lt, e.alpha))
	hotKept := normalize(cutoff(hot, e.alpha))

	merged := make([]search.Result, 0, len(ltKept)+len(hotKept))
	ltSeen := make(map[string]struct{}, len(ltKept))

	for _, h := range ltKept {
		ltSeen[h.hit.Doc.ID()] = struct{}{}
		merged = append(merged, e.toResult(q, queryVec, h))
	}
	for _, h := range hotKept {
		if _, dup := ltSeen[h.hit.Doc.ID()]; dup {
			e.logger.Debug("Dropping HOT duplicate of LT document",
				zap.String("doc_id", h.hit.Doc.ID()))
			continue
		}
		merged = append(merged, e.toResult(q, queryVec, h))
	}

	sortResults(merged)

	if size > 0 && len(merged) > size {
		merged = merged[:size]
	}
	return merged
}

type scoredHit struct {
	hit        search.Hit
	normalized float64
}

// cutoff keeps hits scoring at least alpha * top1, within one tier only.
func cutoff(hits []search.Hit, alpha float64) []search.Hit {
	if len(hits) == 0 {
		return nil
	}
	sorted := make([]search.Hit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RawScore > sorted[j].RawScore
	})

	top1 := sorted[0].RawScore
	kept := sorted[:0]
	for _, h := range sorted {
		if h.RawScore >= alpha*top1 {
			kept = append(kept, h)
		}
	}
	return kept
}

// normalize min-max scales one tier's scores into [0, 1]. A tier where every
// kept hit scored the same maps to 1.
func normalize(hits []search.Hit) []scoredHit {
	if len(hits) == 0 {
		return nil
	}

	minScore, maxScore := hits[0].RawScore, hits[0].RawScore
	for _, h := range hits[1:] {
		if h.RawScore < minScore {
			minScore = h.RawScore
		}
		if h.RawScore > maxScore {
			maxScore = h.RawScore
		}
	}

	out := make([]scoredHit, len(hits))
	spread := maxScore - minScore
	for i, h := range hits {
		if spread == 0 {
			out[i] = scoredHit{hit: h, normalized: 1}
			continue
		}
		out[i] = scoredHit{hit: h, normalized: (h.RawScore - minScore) / spread}
	}
	return out
}

func (e *Engine) toResult(q search.Query, queryVec []float32, h scoredHit) search.Result {
	score := h.normalized
	if emb := h.hit.Doc.Embedding(); queryVec != nil && len(emb) > 0 {
		if sim := cosine(queryVec, emb); sim > 0 {
			score += e.vectorWeight * sim
		}
	}
	return search.Result{
		Doc:          h.hit.Doc,
		Tier:         h.hit.Tier,
		Score:        score,
		RawScore:     h.hit.RawScore,
		Explanations: explain(q, h.hit.Doc),
	}
}

// sortResults orders by blended score, then confidence (LT hits carry a fixed
// high weight), then recency, then doc ID. The order is total, so identical
// inputs always produce identical output.
func sortResults(results []search.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ca, cb := tieConfidence(a), tieConfidence(b)
		if ca != cb {
			return ca > cb
		}
		if a.Doc.IngestedAtMS() != b.Doc.IngestedAtMS() {
			return a.Doc.IngestedAtMS() > b.Doc.IngestedAtMS()
		}
		return a.Doc.ID() < b.Doc.ID()
	})
}

func tieConfidence(r search.Result) int {
	if r.Tier == domain.TierLT {
		return ltTieBreakConfidence
	}
	return r.Doc.Confidence()
}

// cosine returns the cosine similarity of two vectors, 0 when the dimensions
// differ or either vector is zero.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
