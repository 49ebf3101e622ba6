// Package index is the tier-scoped persistence layer. One Repo fronts one
// RediSearch index; the LT and HOT stores are two instances with different
// names and schemas but the same behavior.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/recalld/internal/db"
	"github.com/kailas-cloud/recalld/internal/domain"
	domdoc "github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/search"
)

// store is the consumer interface for tier persistence (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, filters []db.Filter) (int, error)
}

// Repo implements the tier index port used by the usecases.
type Repo struct {
	store store
	tier  domain.Tier
	name  string
}

// New creates a tier repository over the named index.
func New(s store, tier domain.Tier, name string) *Repo {
	return &Repo{store: s, tier: tier, name: name}
}

// Tier returns the tier this repository owns.
func (r *Repo) Tier() domain.Tier { return r.tier }

// Name returns the index name this repository writes under.
func (r *Repo) Name() string { return r.name }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := db.NewIndex(r.indexName()).
		OnJSON().
		Prefix(r.keyPrefix()).
		Text("$.content", "content").
		Tag("$.explicit_terms[*]", "explicit_terms").
		Text("$.explicit_terms_text[*]", "explicit_terms_text").
		Tag("$.tier", "tier").
		Tag("$.status", "status").
		SortableNumeric("$.ingested_at_ms", "ingested_at_ms").
		SortableNumeric("$.hot_promoted_at_ms", "hot_promoted_at_ms").
		Numeric("$.confidence", "confidence").
		Numeric("$.doc_version", "doc_version").
		MustBuild()

	err := r.store.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return r.wrap("create index", err)
	}
	return nil
}

// Upsert writes a document under its stable key, replacing any previous
// version. Transient backend failures are retried.
func (r *Repo) Upsert(ctx context.Context, doc domdoc.Document) error {
	data, err := json.Marshal(buildJSONDoc(&doc))
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}

	key := r.docKey(doc.ID())
	err = withRetry(ctx, func() error {
		return r.store.JSONSet(ctx, key, "$", data)
	})
	if err != nil {
		return r.wrap("upsert "+doc.ID(), err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, r.docKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, r.wrap("get "+id, err)
	}
	return parseJSONGetResult(id, r.tier, raw)
}

// Delete removes a document. Deleting an absent document is a no-op.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.docKey(id)
	err := withRetry(ctx, func() error {
		return r.store.Del(ctx, key)
	})
	if err != nil {
		return r.wrap("delete "+id, err)
	}
	return nil
}

// Search runs the lexical query against this tier and returns raw hits.
// Raw scores are store-native and only comparable within this tier.
func (r *Repo) Search(ctx context.Context, q search.Query) ([]search.Hit, error) {
	tq := &db.TextQuery{
		IndexName:    r.indexName(),
		Text:         q.Text,
		Terms:        q.Terms,
		TopK:         q.Size,
		ReturnFields: []string{"$"},
	}

	var sr *db.SearchResult
	err := withRetry(ctx, func() error {
		var innerErr error
		sr, innerErr = r.store.SearchText(ctx, tq)
		return innerErr
	})
	if err != nil {
		return nil, r.wrap("search", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	hits := make([]search.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, err := parseEntry(r.docID(entry.Key), r.tier, entry)
		if err != nil {
			continue
		}
		hits = append(hits, search.Hit{Doc: doc, RawScore: entry.Score, Tier: r.tier})
	}
	return hits, nil
}

// Expired returns up to limit unverified documents whose HOT residency
// started before cutoffMS, oldest first. Pending and promoted documents are
// never returned.
func (r *Repo) Expired(ctx context.Context, cutoffMS int64, limit int) ([]domdoc.Document, error) {
	lq := &db.ListQuery{
		IndexName: r.indexName(),
		Filters: []db.Filter{
			db.TagIn("status", string(domdoc.StatusUnverified)),
			db.NumLT("hot_promoted_at_ms", float64(cutoffMS)),
		},
		SortBy:       "hot_promoted_at_ms",
		SortAsc:      true,
		Limit:        limit,
		ReturnFields: []string{"$"},
	}

	sr, err := r.store.SearchList(ctx, lq)
	if err != nil {
		return nil, r.wrap("expired", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]domdoc.Document, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, err := parseEntry(r.docID(entry.Key), r.tier, entry)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Count returns the number of documents in this tier.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), nil)
	if err != nil {
		return 0, r.wrap("count", err)
	}
	return n, nil
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, r.name)
}

func (r *Repo) docKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) docID(key string) string {
	return strings.TrimPrefix(key, r.keyPrefix())
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.name)
}

// wrap adds the index name for context and maps backend connectivity
// failures to the domain sentinel the orchestrator degrades on.
func (r *Repo) wrap(op string, err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%s %s: %w: %w", op, r.name, domain.ErrIndexUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w", op, r.name, err)
}
