// Package promote implements the one-directional HOT to LT promotion state
// machine: record_feedback, human_verify and commit_promotion.
package promote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	"github.com/kailas-cloud/recalld/internal/metrics"
)

// DefaultThreshold is the confidence score gating score-triggered promotion.
const DefaultThreshold = 25

// Config holds the promotion gates.
type Config struct {
	// Threshold is the confidence score required for score-triggered
	// promotion.
	Threshold int
	// WindowSeconds, when positive, restricts score-triggered promotion
	// to documents ingested within the window. Zero disables the window.
	WindowSeconds int
}

// Service is the promotion state machine over the two tier repositories.
type Service struct {
	hot       Repository
	lt        Repository
	audit     AuditLog
	threshold int
	window    time.Duration
	locks     *keyedMutex
	nowMS     func() int64
	logger    *zap.Logger
}

// New creates the promotion service.
func New(hot, lt Repository, audit AuditLog, cfg *Config, logger *zap.Logger) *Service {
	threshold := DefaultThreshold
	var window time.Duration
	if cfg != nil {
		if cfg.Threshold > 0 {
			threshold = cfg.Threshold
		}
		if cfg.WindowSeconds > 0 {
			window = time.Duration(cfg.WindowSeconds) * time.Second
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		hot:       hot,
		lt:        lt,
		audit:     audit,
		threshold: threshold,
		window:    window,
		locks:     newKeyedMutex(),
		nowMS:     func() int64 { return time.Now().UnixMilli() },
		logger:    logger,
	}
}

// RecordFeedback adjusts the document's confidence score by one in the given
// direction (never below zero). When the updated score reaches the threshold
// on an unverified document, the document moves to pending_promotion.
func (s *Service) RecordFeedback(ctx context.Context, docID string, positive bool) (document.Document, error) {
	unlock := s.locks.Lock(docID)
	defer unlock()

	doc, err := s.hot.Get(ctx, docID)
	if err != nil {
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}

	doc = doc.ApplyFeedback(positive)

	direction := "negative"
	if positive {
		direction = "positive"
	}
	metrics.FeedbackTotal.WithLabelValues(direction).Inc()

	if doc.Status() == document.StatusUnverified && doc.Confidence() >= s.threshold && s.inWindow(doc) {
		doc, err = doc.Transition(document.StatusPending, document.TriggerScore)
		if err != nil {
			return document.Document{}, fmt.Errorf("transition to pending: %w", err)
		}
		s.logger.Info("Document reached promotion threshold",
			zap.String("doc_id", docID),
			zap.Int("confidence", doc.Confidence()),
			zap.Int("threshold", s.threshold))
	}

	if err := s.hot.Upsert(ctx, doc); err != nil {
		return document.Document{}, fmt.Errorf("store feedback: %w", err)
	}
	return doc, nil
}

// HumanVerify moves a document to pending_promotion regardless of its score.
// Verifying an already-pending document is a no-op.
func (s *Service) HumanVerify(ctx context.Context, docID string) (document.Document, error) {
	unlock := s.locks.Lock(docID)
	defer unlock()

	doc, err := s.hot.Get(ctx, docID)
	if err != nil {
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}

	if doc.Status() == document.StatusPending {
		return doc, nil
	}

	doc, err = doc.Transition(document.StatusPending, document.TriggerHuman)
	if err != nil {
		return document.Document{}, fmt.Errorf("transition to pending: %w", err)
	}

	if err := s.hot.Upsert(ctx, doc); err != nil {
		return document.Document{}, fmt.Errorf("store verification: %w", err)
	}

	s.logger.Info("Document verified by human", zap.String("doc_id", docID))
	return doc, nil
}

// CommitPromotion moves a pending document into LT: LT upsert, then audit
// record, then HOT delete, in that order. A crash between the LT write and
// the HOT delete is recovered by re-running the commit, which is a no-op on
// the LT side because upsert is idempotent on doc ID.
func (s *Service) CommitPromotion(ctx context.Context, docID string) (document.Document, error) {
	unlock := s.locks.Lock(docID)
	defer unlock()

	doc, err := s.hot.Get(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// Already committed: the HOT copy is gone but LT has it.
			if promoted, ltErr := s.lt.Get(ctx, docID); ltErr == nil {
				return promoted, nil
			}
			return document.Document{}, fmt.Errorf("get document: %w", err)
		}
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}

	if doc.Status() != document.StatusPending {
		return document.Document{}, fmt.Errorf(
			"document %s is %s, not %s: %w",
			docID, doc.Status(), document.StatusPending, domain.ErrNotEligible,
		)
	}

	now := s.nowMS()
	promoted := doc.PromotedCopy(now)

	if err := s.lt.Upsert(ctx, promoted); err != nil {
		return document.Document{}, fmt.Errorf("promote to longterm: %w", err)
	}

	trigger := promotion.TriggerScore
	if doc.Trigger() == document.TriggerHuman {
		trigger = promotion.TriggerHuman
	}
	ev := promotion.Event{
		ID:          uuid.NewString(),
		DocID:       docID,
		DocVersion:  promoted.Version(),
		FromTier:    domain.TierHot,
		ToTier:      domain.TierLT,
		TimestampMS: now,
		Trigger:     trigger,
	}
	if err := s.audit.Append(ctx, ev); err != nil {
		return document.Document{}, fmt.Errorf("append promotion event: %w", err)
	}

	if err := s.hot.Delete(ctx, docID); err != nil {
		// The LT write already landed; the duplicate is resolved by the
		// ranking engine until a re-run of the commit cleans it up.
		return document.Document{}, fmt.Errorf("remove hot copy: %w", err)
	}

	metrics.PromotionsTotal.WithLabelValues(string(trigger)).Inc()
	s.logger.Info("Promotion committed",
		zap.String("doc_id", docID),
		zap.String("trigger", string(trigger)),
		zap.Int64("doc_version", promoted.Version()))

	return promoted, nil
}

// inWindow reports whether the document is still inside the promotion
// window. A disabled window admits every document.
func (s *Service) inWindow(doc document.Document) bool {
	if s.window <= 0 {
		return true
	}
	age := time.Duration(s.nowMS()-doc.IngestedAtMS()) * time.Millisecond
	return age <= s.window
}
