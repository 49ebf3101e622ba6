package ingest

import (
	"context"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
)

// Repository is the tier-scoped storage contract for ingestion.
type Repository interface {
	Get(ctx context.Context, id string) (document.Document, error)
	Upsert(ctx context.Context, doc document.Document) error
}

// TermExtractor pulls normalized explicit terms out of text. It is fail-soft:
// a degraded extraction yields an empty term set, never a blocked ingest.
type TermExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
