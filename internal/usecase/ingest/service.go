// Package ingest writes source documents into LT and materializes out-of-band
// facts into HOT.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/metrics"
)

const (
	// DefaultChunkSize only splits sources larger than a single document.
	DefaultChunkSize = document.MaxContentSize

	// DefaultConcurrency bounds the per-source chunk fan-out.
	DefaultConcurrency = 4
)

// Config holds the ingestion knobs.
type Config struct {
	ChunkSize   int
	Concurrency int
}

// Service handles LT source ingestion and HOT fact injection.
type Service struct {
	lt          Repository
	hot         Repository
	extractor   TermExtractor
	embedder    Embedder // nil disables vectorization
	chunkSize   int
	concurrency int
	nowMS       func() int64
	logger      *zap.Logger
}

// New creates the ingestion service. embedder may be nil.
func New(lt, hot Repository, extractor TermExtractor, embedder Embedder, cfg *Config, logger *zap.Logger) *Service {
	chunkSize := DefaultChunkSize
	concurrency := DefaultConcurrency
	if cfg != nil {
		if cfg.ChunkSize > 0 {
			chunkSize = cfg.ChunkSize
		}
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
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
		chunkSize:   chunkSize,
		concurrency: concurrency,
		nowMS:       func() int64 { return time.Now().UnixMilli() },
		logger:      logger,
	}
}

// IngestSource splits text into chunks and upserts each into LT under a
// deterministic ID derived from the source path. Re-ingesting unchanged
// content is a no-op: the stored version does not move.
func (s *Service) IngestSource(ctx context.Context, source, category, text string) ([]document.Document, error) {
	if source == "" {
		return nil, fmt.Errorf("source is required: %w", domain.ErrInvalidDocument)
	}

	chunks := document.SplitChunks(text, s.chunkSize)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("source %s has no content: %w", source, domain.ErrInvalidDocument)
	}

	docs := make([]document.Document, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			doc, err := s.ingestChunk(gctx, source, category, chunk, i)
			if err != nil {
				return fmt.Errorf("chunk %d of %s: %w", i, source, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) ingestChunk(ctx context.Context, source, category, chunk string, offset int) (document.Document, error) {
	id := document.SourceID(source, offset)
	terms := s.extractTerms(ctx, chunk)

	existing, err := s.lt.Get(ctx, id)
	switch {
	case err == nil:
		if existing.Content() == chunk {
			return existing, nil
		}
		return s.store(ctx, s.lt, existing.Revised(chunk, terms, terms, s.nowMS()), domain.TierLT)
	case errors.Is(err, domain.ErrDocumentNotFound):
		doc, err := document.New(id, chunk, terms, terms, domain.TierLT, s.nowMS())
		if err != nil {
			return document.Document{}, fmt.Errorf("build document: %w", err)
		}
		if category != "" {
			doc = doc.WithExtra("category", category)
		}
		doc = doc.WithExtra("source", source)
		return s.store(ctx, s.lt, doc, domain.TierLT)
	default:
		return document.Document{}, fmt.Errorf("check existing document: %w", err)
	}
}

// AddFact materializes a free-form fact into HOT as an unverified document.
// The ID is derived from the run and the fact content, so re-injecting the
// same fact within a run returns the existing record with its accumulated
// confidence intact.
func (s *Service) AddFact(ctx context.Context, runID, text string) (document.Document, error) {
	if text == "" {
		return document.Document{}, fmt.Errorf("fact text is required: %w", domain.ErrInvalidDocument)
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	id := document.FactID(runID, text)

	existing, err := s.hot.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return document.Document{}, fmt.Errorf("check existing fact: %w", err)
	}

	terms := s.extractTerms(ctx, text)

	doc, err := document.New(id, text, terms, terms, domain.TierHot, s.nowMS())
	if err != nil {
		return document.Document{}, fmt.Errorf("build fact: %w", err)
	}
	doc = doc.WithExtra("run_id", runID)

	return s.store(ctx, s.hot, doc, domain.TierHot)
}

// store optionally vectorizes and persists the document.
func (s *Service) store(ctx context.Context, repo Repository, doc document.Document, tier domain.Tier) (document.Document, error) {
	if s.embedder != nil {
		result, err := s.embedder.Embed(ctx, doc.Content())
		if err != nil {
			// The vector is a strictly additive ranking signal, so a
			// provider outage degrades to lexical-only.
			s.logger.Warn("Proceeding without embedding",
				zap.String("doc_id", doc.ID()), zap.Error(err))
		} else {
			doc = doc.WithEmbedding(result.Embedding)
		}
	}

	if err := repo.Upsert(ctx, doc); err != nil {
		return document.Document{}, fmt.Errorf("upsert document: %w", err)
	}

	metrics.IngestDocumentsTotal.WithLabelValues(string(tier)).Inc()
	return doc, nil
}

// extractTerms is fail-soft: degraded enrichment logs, counts and proceeds
// with an empty term set.
func (s *Service) extractTerms(ctx context.Context, text string) []string {
	if s.extractor == nil {
		return nil
	}
	terms, err := s.extractor.Extract(ctx, text)
	if err != nil {
		metrics.EnrichmentDegradedTotal.Inc()
		s.logger.Warn("Term extraction degraded", zap.Error(err))
		return nil
	}
	return terms
}
