package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/config"
	dbRedis "github.com/kailas-cloud/recalld/internal/db/redis"
	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/enricher"
	logpkg "github.com/kailas-cloud/recalld/internal/logger"
	"github.com/kailas-cloud/recalld/internal/metrics"
	auditrepo "github.com/kailas-cloud/recalld/internal/repository/audit"
	"github.com/kailas-cloud/recalld/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/recalld/internal/repository/index"
	chiTransport "github.com/kailas-cloud/recalld/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/recalld/internal/transport/openai"
	evictuc "github.com/kailas-cloud/recalld/internal/usecase/evict"
	healthuc "github.com/kailas-cloud/recalld/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/recalld/internal/usecase/ingest"
	promoteuc "github.com/kailas-cloud/recalld/internal/usecase/promote"
	queryuc "github.com/kailas-cloud/recalld/internal/usecase/query"
	"github.com/kailas-cloud/recalld/internal/usecase/rank"
	"github.com/kailas-cloud/recalld/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting recalld API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("longterm_addrs", cfg.LongTerm.Addrs),
		zap.Strings("hotcache_addrs", cfg.HotCache.Addrs),
	)

	// Two stores, one per tier. They may point at the same instance in
	// local setups; the key and index namespaces keep them apart.
	ltStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.LongTerm.Addrs,
		Password: cfg.LongTerm.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create longterm store", zap.Error(err))
	}
	defer ltStore.Close()

	hotStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.HotCache.Addrs,
		Password: cfg.HotCache.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create hotcache store", zap.Error(err))
	}
	defer hotStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ltStore.WaitForReady(ctx, time.Duration(cfg.LongTerm.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Longterm store not ready", zap.Error(err))
	}
	if err := hotStore.WaitForReady(ctx, time.Duration(cfg.HotCache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Hotcache store not ready", zap.Error(err))
	}
	logger.Info("Connected to both tier stores")

	// Register metrics explicitly (no init())
	metrics.RegisterDomainMetrics()
	metrics.RegisterEmbeddingMetrics()

	// Tier repositories
	ltRepo := indexrepo.New(ltStore, domain.TierLT, cfg.LongTerm.Index)
	hotRepo := indexrepo.New(hotStore, domain.TierHot, cfg.HotCache.Index)
	if err := ltRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure longterm index", zap.Error(err))
	}
	if err := hotRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure hotcache index", zap.Error(err))
	}

	// Audit trail lives on the LT side so it survives HOT flushes.
	auditRepo := auditrepo.New(ltStore, time.Duration(cfg.Audit.RetentionHours)*time.Hour)

	// Optional term extraction service. Without it, ingest and query run
	// without explicit terms; ranking degrades to content matching.
	var termClient *enricher.Client
	if cfg.Enricher.BaseURL != "" {
		termClient = enricher.New(&enricher.Config{
			BaseURL: cfg.Enricher.BaseURL,
			Timeout: time.Duration(cfg.Enricher.TimeoutSec) * time.Second,
			Labels:  cfg.Enricher.Labels,
			Logger:  logger,
		})
		logger.Info("Term extraction enabled", zap.String("base_url", cfg.Enricher.BaseURL))
	}

	// Optional embedding provider behind a cache. Without it, retrieval
	// stays purely lexical.
	var baseEmbedder *openaiEmb.Embedder
	var cachedEmbedder *embcache.CachedEmbedder
	if cfg.Embedding.APIKey != "" {
		baseEmbedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
		cachedEmbedder = embcache.New(baseEmbedder, hotStore, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding enabled",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Pass nil interface (not typed nil pointer!) when a dependency is
	// not configured. Go gotcha: a nil *Client wrapped in an interface
	// value != nil.
	var ingestExtractor ingestuc.TermExtractor
	var queryExtractor queryuc.TermExtractor
	if termClient != nil {
		ingestExtractor = termClient
		queryExtractor = termClient
	}
	var ingestEmbedder ingestuc.Embedder
	var queryEmbedder queryuc.Embedder
	if cachedEmbedder != nil {
		ingestEmbedder = cachedEmbedder
		queryEmbedder = cachedEmbedder
	}

	// Use case services
	engine := rank.New(&rank.Config{
		Alpha:        cfg.Retrieval.Alpha,
		VectorWeight: cfg.Retrieval.VectorWeight,
	}, logger)

	querySvc := queryuc.New(ltRepo, hotRepo, queryExtractor, queryEmbedder, engine, &queryuc.Config{
		TierTimeout: time.Duration(cfg.Retrieval.TierTimeoutSec) * time.Second,
		DefaultSize: cfg.Retrieval.DefaultSize,
	}, logger)

	ingestSvc := ingestuc.New(ltRepo, hotRepo, ingestExtractor, ingestEmbedder, nil, logger)

	promoteSvc := promoteuc.New(hotRepo, ltRepo, auditRepo, &promoteuc.Config{
		Threshold:     cfg.Promotion.Threshold,
		WindowSeconds: int(cfg.Promotion.WindowSeconds),
	}, logger)

	evictSched := evictuc.New(hotRepo, auditRepo, &evictuc.Config{
		TTLMinutes:        cfg.Eviction.TTLMinutes,
		BatchSize:         cfg.Eviction.BatchSize,
		RequestsPerSecond: cfg.Eviction.RequestsPerSecond,
		Interval:          time.Duration(cfg.Eviction.IntervalSec) * time.Second,
	}, logger)

	// Health service: both tiers plus the optional dependencies.
	var embChecker healthuc.DependencyChecker
	if baseEmbedder != nil {
		embChecker = baseEmbedder
	}
	var enrChecker healthuc.DependencyChecker
	if termClient != nil {
		enrChecker = termClient
	}
	healthSvc := healthuc.New(ltStore, hotStore, embChecker, enrChecker)

	// Background TTL sweep over the HOT store.
	go evictSched.Run(ctx)

	// HTTP server
	server := chiTransport.NewServer(querySvc, ingestSvc, promoteSvc, evictSched, auditRepo, healthSvc, logger)
	handler := server.Router(cfg.Auth.APIKeys,
		jsonRecoverer(logger),
		wideEventMiddleware(logger),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
