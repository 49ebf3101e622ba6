// Package audit persists the promotion and eviction event trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
)

// store is the consumer interface for the event log (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the audit log port. Events are written to the LT-side
// store so they survive HOT flushes.
type Repo struct {
	store     store
	retention time.Duration // 0 keeps events forever
}

// New creates an audit repository.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// Append persists one event. Events are immutable once written.
func (r *Repo) Append(ctx context.Context, ev promotion.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}

	key := eventKey(ev)
	if r.retention > 0 {
		err = r.store.SetWithTTL(ctx, key, data, r.retention)
	} else {
		err = r.store.Set(ctx, key, data)
	}
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

// ListByDoc returns all recorded events for a document, oldest first.
// Zero-padded timestamps in the key make lexical order chronological.
func (r *Repo) ListByDoc(ctx context.Context, docID string) ([]promotion.Event, error) {
	keys, err := r.store.Scan(ctx, domain.KeyPrefix+"audit:*")
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	sort.Strings(keys)

	var events []promotion.Event
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			continue // expired between scan and get
		}
		var ev promotion.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.DocID == docID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func eventKey(ev promotion.Event) string {
	return fmt.Sprintf("%saudit:%020d:%s", domain.KeyPrefix, ev.TimestampMS, ev.ID)
}
