package evict

import (
	"context"

	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
)

// Repository is the HOT-tier storage contract needed by the scheduler.
type Repository interface {
	Get(ctx context.Context, id string) (document.Document, error)
	Delete(ctx context.Context, id string) error
	Expired(ctx context.Context, cutoffMS int64, limit int) ([]document.Document, error)
}

// AuditLog records evictions before the document is removed.
type AuditLog interface {
	Append(ctx context.Context, ev promotion.Event) error
}
