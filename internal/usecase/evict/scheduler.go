// Package evict implements the TTL eviction scheduler over the HOT tier.
package evict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	"github.com/kailas-cloud/recalld/internal/metrics"
)

const (
	// DefaultTTLMinutes is how long an unverified document may live in HOT.
	DefaultTTLMinutes = 30

	// DefaultBatchSize caps deletions per sweep.
	DefaultBatchSize = 100

	// DefaultInterval is the pause between sweeps in the background loop.
	DefaultInterval = time.Minute
)

// Config holds the scheduler knobs.
type Config struct {
	TTLMinutes int
	BatchSize  int
	// RequestsPerSecond caps the delete rate against the HOT store.
	// -1 means unlimited.
	RequestsPerSecond float64
	Interval          time.Duration
}

// Report summarizes one eviction sweep.
type Report struct {
	RunID   string
	Scanned int
	Evicted int
	Skipped int // lost the race to a promotion transition
	Failed  int
}

// Scheduler periodically removes expired unverified documents from HOT.
// Documents in pending_promotion or promoted are never touched: a promotion
// transition observed by the scan always wins, enforced by re-reading the
// document immediately before each delete.
type Scheduler struct {
	hot      Repository
	audit    AuditLog
	ttl      time.Duration
	batch    int
	limiter  *rate.Limiter
	interval time.Duration
	nowMS    func() int64
	logger   *zap.Logger
}

// New creates the eviction scheduler.
func New(hot Repository, audit AuditLog, cfg *Config, logger *zap.Logger) *Scheduler {
	ttlMinutes := DefaultTTLMinutes
	batch := DefaultBatchSize
	rps := float64(-1)
	interval := DefaultInterval
	if cfg != nil {
		if cfg.TTLMinutes > 0 {
			ttlMinutes = cfg.TTLMinutes
		}
		if cfg.BatchSize > 0 {
			batch = cfg.BatchSize
		}
		if cfg.RequestsPerSecond != 0 {
			rps = cfg.RequestsPerSecond
		}
		if cfg.Interval > 0 {
			interval = cfg.Interval
		}
	}

	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		hot:      hot,
		audit:    audit,
		ttl:      time.Duration(ttlMinutes) * time.Minute,
		batch:    batch,
		limiter:  rate.NewLimiter(limit, burst),
		interval: interval,
		nowMS:    func() int64 { return time.Now().UnixMilli() },
		logger:   logger,
	}
}

// RunOnce performs a single eviction sweep. Per-document failures are
// isolated: one failing delete does not abort the rest of the batch.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}

	cutoff := s.nowMS() - s.ttl.Milliseconds()
	expired, err := s.hot.Expired(ctx, cutoff, s.batch)
	if err != nil {
		return report, fmt.Errorf("scan expired documents: %w", err)
	}
	report.Scanned = len(expired)

	for _, doc := range expired {
		if err := s.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("rate limit wait: %w", err)
		}

		switch err := s.evictOne(ctx, doc, cutoff, report.RunID); {
		case err == nil:
			report.Evicted++
			metrics.EvictionsTotal.WithLabelValues("evicted").Inc()
		case errors.Is(err, errLostRace):
			report.Skipped++
			metrics.EvictionsTotal.WithLabelValues("skipped").Inc()
		default:
			report.Failed++
			metrics.EvictionsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Eviction failed",
				zap.String("doc_id", doc.ID()),
				zap.String("run_id", report.RunID),
				zap.Error(err))
		}
	}

	s.logger.Info("Eviction sweep finished",
		zap.String("run_id", report.RunID),
		zap.Int("scanned", report.Scanned),
		zap.Int("evicted", report.Evicted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))

	return report, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Eviction sweep failed", zap.Error(err))
			}
		}
	}
}

// errLostRace marks a document that stopped being evictable between the scan
// and the delete.
var errLostRace = errors.New("document no longer evictable")

// evictOne re-checks eligibility against the live record, appends the audit
// event and deletes the document (compare-and-delete).
func (s *Scheduler) evictOne(ctx context.Context, scanned document.Document, cutoffMS int64, runID string) error {
	live, err := s.hot.Get(ctx, scanned.ID())
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return errLostRace
		}
		return fmt.Errorf("recheck document: %w", err)
	}

	if live.Status() != document.StatusUnverified || live.HotSinceMS() >= cutoffMS {
		return errLostRace
	}

	ev := promotion.Event{
		ID:          uuid.NewString(),
		DocID:       live.ID(),
		DocVersion:  live.Version(),
		FromTier:    domain.TierHot,
		TimestampMS: s.nowMS(),
		Trigger:     promotion.TriggerTTL,
	}
	if err := s.audit.Append(ctx, ev); err != nil {
		return fmt.Errorf("append eviction event: %w", err)
	}

	if err := s.hot.Delete(ctx, live.ID()); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Debug("Document evicted",
		zap.String("doc_id", live.ID()),
		zap.String("run_id", runID))
	return nil
}
