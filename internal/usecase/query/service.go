// Package query orchestrates a dual-tier retrieval: both tiers are searched
// in parallel with independent timeouts, and one tier failing degrades the
// answer to partial instead of failing it.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/search"
	"github.com/kailas-cloud/recalld/internal/metrics"
)

const (
	// DefaultTierTimeout bounds each tier's in-flight search.
	DefaultTierTimeout = 5 * time.Second

	// DefaultSize is the merged result count when the caller does not ask
	// for one.
	DefaultSize = 8
)

// Config holds the orchestrator knobs.
type Config struct {
	TierTimeout time.Duration
	DefaultSize int
}

// Service is the query orchestrator.
type Service struct {
	lt          Searcher
	hot         Searcher
	extractor   TermExtractor
	embedder    Embedder // nil disables the vector blend
	ranker      Ranker
	tierTimeout time.Duration
	defaultSize int
	logger      *zap.Logger
}

// New creates the orchestrator. embedder may be nil.
func New(lt, hot Searcher, extractor TermExtractor, embedder Embedder, ranker Ranker, cfg *Config, logger *zap.Logger) *Service {
	timeout := DefaultTierTimeout
	size := DefaultSize
	if cfg != nil {
		if cfg.TierTimeout > 0 {
			timeout = cfg.TierTimeout
		}
		if cfg.DefaultSize > 0 {
			size = cfg.DefaultSize
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lt:          lt,
		hot:         hot,
		extractor:   extractor,
		embedder:    embedder,
		ranker:      ranker,
		tierTimeout: timeout,
		defaultSize: size,
		logger:      logger,
	}
}

type tierOutcome struct {
	tier domain.Tier
	hits []search.Hit
	err  error
}

// Answer searches both tiers concurrently and returns the merged, explained
// result list. One failing tier yields a partial answer; only both tiers
// failing surfaces as a hard error.
func (s *Service) Answer(ctx context.Context, text string, size int) (search.Response, error) {
	if size <= 0 {
		size = s.defaultSize
	}

	terms := s.extractTerms(ctx, text)

	q, err := search.NewQuery(text, terms, size)
	if err != nil {
		return search.Response{}, fmt.Errorf("build query: %w", err)
	}

	queryVec := s.embedQuery(ctx, text)

	outcomes := make([]tierOutcome, 2)
	var wg sync.WaitGroup
	for i, searcher := range []Searcher{s.lt, s.hot} {
		i, searcher := i, searcher
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.searchTier(ctx, searcher, q)
		}()
	}
	wg.Wait()

	var ltHits, hotHits []search.Hit
	var failed []domain.Tier
	for _, out := range outcomes {
		if out.err != nil {
			failed = append(failed, out.tier)
			s.logger.Warn("Tier search failed",
				zap.String("tier", string(out.tier)), zap.Error(out.err))
			continue
		}
		if out.tier == domain.TierLT {
			ltHits = out.hits
		} else {
			hotHits = out.hits
		}
	}

	if len(failed) == 2 {
		metrics.QueryRequestsTotal.WithLabelValues("failed").Inc()
		return search.Response{}, fmt.Errorf("both tiers unreachable: %w", domain.ErrTotalQueryFailure)
	}

	outcome := "full"
	if len(failed) > 0 {
		outcome = "partial"
	}
	metrics.QueryRequestsTotal.WithLabelValues(outcome).Inc()

	return search.Response{
		Results:     s.ranker.Merge(q, queryVec, ltHits, hotHits, size),
		Partial:     len(failed) > 0,
		FailedTiers: failed,
	}, nil
}

// searchTier runs one tier's search under its own timeout. Cancelling one
// tier never cancels the sibling: each gets its own child context.
func (s *Service) searchTier(ctx context.Context, searcher Searcher, q search.Query) tierOutcome {
	tierCtx, cancel := context.WithTimeout(ctx, s.tierTimeout)
	defer cancel()

	start := time.Now()
	hits, err := searcher.Search(tierCtx, q)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.TierSearchDuration.WithLabelValues(string(searcher.Tier()), status).
		Observe(time.Since(start).Seconds())

	return tierOutcome{tier: searcher.Tier(), hits: hits, err: err}
}

func (s *Service) extractTerms(ctx context.Context, text string) []string {
	if s.extractor == nil {
		return nil
	}
	terms, err := s.extractor.Extract(ctx, text)
	if err != nil {
		metrics.EnrichmentDegradedTotal.Inc()
		s.logger.Warn("Term extraction degraded, querying without terms", zap.Error(err))
		return nil
	}
	return terms
}

func (s *Service) embedQuery(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// Lexical-only retrieval still answers the question.
		s.logger.Warn("Query embedding degraded", zap.Error(err))
		return nil
	}
	return result.Embedding
}
