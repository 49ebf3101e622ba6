package query

import (
	"context"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/search"
)

// Searcher is one tier's lexical search surface.
type Searcher interface {
	Tier() domain.Tier
	Search(ctx context.Context, q search.Query) ([]search.Hit, error)
}

// TermExtractor pulls normalized explicit terms out of the question.
type TermExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Embedder vectorizes the question for the additive vector blend.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ranker merges both tiers' raw hits into one ordered result list.
type Ranker interface {
	Merge(q search.Query, queryVec []float32, lt, hot []search.Hit, size int) []search.Result
}
