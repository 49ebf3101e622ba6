package promote

import (
	"context"

	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
)

// Repository is the tier-scoped storage contract for documents.
type Repository interface {
	Get(ctx context.Context, id string) (document.Document, error)
	Upsert(ctx context.Context, doc document.Document) error
	Delete(ctx context.Context, id string) error
}

// AuditLog records tier transitions before the HOT copy is removed.
type AuditLog interface {
	Append(ctx context.Context, ev promotion.Event) error
}
