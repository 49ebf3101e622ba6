package promote

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
)

// mockRepo is a map-backed tier repository.
type mockRepo struct {
	docs      map[string]document.Document
	getErr    error
	upsertErr error
	deleteErr error
	upserts   []document.Document
	deletes   []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: map[string]document.Document{}}
}

func (m *mockRepo) Get(_ context.Context, id string) (document.Document, error) {
	if m.getErr != nil {
		return document.Document{}, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return document.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockRepo) Upsert(_ context.Context, doc document.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, doc)
	m.docs[doc.ID()] = doc
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, id)
	delete(m.docs, id)
	return nil
}

type mockAudit struct {
	events    []promotion.Event
	appendErr error
}

func (m *mockAudit) Append(_ context.Context, ev promotion.Event) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, ev)
	return nil
}

func newTestService(t *testing.T, cfg *Config) (*Service, *mockRepo, *mockRepo, *mockAudit) {
	t.Helper()
	hot := newMockRepo()
	lt := newMockRepo()
	audit := &mockAudit{}
	s := New(hot, lt, audit, cfg, zap.NewNop())
	return s, hot, lt, audit
}

func newHotDoc(t *testing.T, id string, nowMS int64) document.Document {
	t.Helper()
	doc, err := document.New(id, "some fact content", nil, nil, domain.TierHot, nowMS)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}
