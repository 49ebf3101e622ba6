package chi

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	"github.com/kailas-cloud/recalld/internal/domain/search"
	"github.com/kailas-cloud/recalld/internal/usecase/evict"
	healthuc "github.com/kailas-cloud/recalld/internal/usecase/health"
)

type mockQueryService struct {
	answerFn func(ctx context.Context, text string, size int) (search.Response, error)
}

func (m *mockQueryService) Answer(ctx context.Context, text string, size int) (search.Response, error) {
	return m.answerFn(ctx, text, size)
}

type mockIngestService struct {
	ingestSourceFn func(ctx context.Context, source, category, text string) ([]document.Document, error)
	addFactFn      func(ctx context.Context, runID, text string) (document.Document, error)
}

func (m *mockIngestService) IngestSource(ctx context.Context, source, category, text string) ([]document.Document, error) {
	return m.ingestSourceFn(ctx, source, category, text)
}

func (m *mockIngestService) AddFact(ctx context.Context, runID, text string) (document.Document, error) {
	return m.addFactFn(ctx, runID, text)
}

type mockPromotionService struct {
	recordFeedbackFn  func(ctx context.Context, docID string, positive bool) (document.Document, error)
	humanVerifyFn     func(ctx context.Context, docID string) (document.Document, error)
	commitPromotionFn func(ctx context.Context, docID string) (document.Document, error)
}

func (m *mockPromotionService) RecordFeedback(ctx context.Context, docID string, positive bool) (document.Document, error) {
	return m.recordFeedbackFn(ctx, docID, positive)
}

func (m *mockPromotionService) HumanVerify(ctx context.Context, docID string) (document.Document, error) {
	return m.humanVerifyFn(ctx, docID)
}

func (m *mockPromotionService) CommitPromotion(ctx context.Context, docID string) (document.Document, error) {
	return m.commitPromotionFn(ctx, docID)
}

type mockEvictionService struct {
	runOnceFn func(ctx context.Context) (evict.Report, error)
}

func (m *mockEvictionService) RunOnce(ctx context.Context) (evict.Report, error) {
	return m.runOnceFn(ctx)
}

type mockAuditReader struct {
	listByDocFn func(ctx context.Context, docID string) ([]promotion.Event, error)
}

func (m *mockAuditReader) ListByDoc(ctx context.Context, docID string) ([]promotion.Event, error) {
	return m.listByDocFn(ctx, docID)
}

type mockHealthService struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthService) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

type testMocks struct {
	query      *mockQueryService
	ingest     *mockIngestService
	promotions *mockPromotionService
	eviction   *mockEvictionService
	audit      *mockAuditReader
	health     *mockHealthService
}

func newTestServer(t *testing.T) (*Server, *testMocks) {
	t.Helper()
	m := &testMocks{
		query:      &mockQueryService{},
		ingest:     &mockIngestService{},
		promotions: &mockPromotionService{},
		eviction:   &mockEvictionService{},
		audit:      &mockAuditReader{},
		health:     &mockHealthService{},
	}
	s := NewServer(m.query, m.ingest, m.promotions, m.eviction, m.audit, m.health, zap.NewNop())
	return s, m
}

func testDoc(t *testing.T, id string, tier domain.Tier) document.Document {
	t.Helper()
	doc, err := document.New(id, "acme budget is 50k", []string{"acme"}, []string{"acme"}, tier, 1000)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}
