package chi

import (
	"context"

	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	"github.com/kailas-cloud/recalld/internal/domain/search"
	"github.com/kailas-cloud/recalld/internal/usecase/evict"
	healthuc "github.com/kailas-cloud/recalld/internal/usecase/health"
)

// QueryService answers dual-tier retrieval questions.
type QueryService interface {
	Answer(ctx context.Context, text string, size int) (search.Response, error)
}

// IngestService writes sources into LT and facts into HOT.
type IngestService interface {
	IngestSource(ctx context.Context, source, category, text string) ([]document.Document, error)
	AddFact(ctx context.Context, runID, text string) (document.Document, error)
}

// PromotionService drives the HOT to LT state machine.
type PromotionService interface {
	RecordFeedback(ctx context.Context, docID string, positive bool) (document.Document, error)
	HumanVerify(ctx context.Context, docID string) (document.Document, error)
	CommitPromotion(ctx context.Context, docID string) (document.Document, error)
}

// EvictionService runs manual eviction sweeps.
type EvictionService interface {
	RunOnce(ctx context.Context) (evict.Report, error)
}

// AuditReader reads the promotion/eviction event trail.
type AuditReader interface {
	ListByDoc(ctx context.Context, docID string) ([]promotion.Event, error)
}

// HealthService aggregates readiness checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
