// Package chi is the HTTP transport: routing, request decoding, sentinel
// error mapping and bearer auth.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	healthuc "github.com/kailas-cloud/recalld/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval and promotion API.
type Server struct {
	query         QueryService
	ingest        IngestService
	promotions    PromotionService
	eviction      EvictionService
	audit         AuditReader
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	query QueryService,
	ingest IngestService,
	promotions PromotionService,
	eviction EvictionService,
	audit AuditReader,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:      query,
		ingest:     ingest,
		promotions: promotions,
		eviction:   eviction,
		audit:      audit,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotEligible, http.StatusConflict, codeNotEligible),
		sentinelHandler(domain.ErrIllegalTransition, http.StatusConflict, codeIllegalTransition),
		sentinelHandler(domain.ErrTotalQueryFailure, http.StatusServiceUnavailable, codeTotalQueryFailure),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Router builds the chi router with middleware and all routes mounted.
func (s *Server) Router(apiKeys []string, mw ...func(http.Handler) http.Handler) http.Handler {
	r := chirouter.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	for _, m := range mw {
		r.Use(m)
	}
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/query", s.Query)
		r.Post("/documents", s.IngestSource)
		r.Post("/facts", s.AddFact)
		r.Post("/feedback", s.RecordFeedback)
		r.Post("/verify", s.HumanVerify)
		r.Post("/promote", s.CommitPromotion)
		r.Get("/events", s.ListEvents)
		r.Post("/eviction/run", s.RunEviction)
	})

	return r
}

// Query handles POST /api/v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	resp, err := s.query.Answer(r.Context(), req.Question, req.Size)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]resultItem, len(resp.Results))
	for i, res := range resp.Results {
		items[i] = toResultItem(res)
	}

	failed := make([]string, len(resp.FailedTiers))
	for i, tier := range resp.FailedTiers {
		failed[i] = string(tier)
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Results:     items,
		Partial:     resp.Partial,
		FailedTiers: failed,
	})
}

// IngestSource handles POST /api/v1/documents.
func (s *Server) IngestSource(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Source == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "source and text are required")
		return
	}

	docs, err := s.ingest.IngestSource(r.Context(), req.Source, req.Category, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = toDocumentResponse(d)
	}
	writeJSON(w, http.StatusCreated, ingestResponse{Documents: items})
}

// AddFact handles POST /api/v1/facts.
func (s *Server) AddFact(w http.ResponseWriter, r *http.Request) {
	var req factRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}

	doc, err := s.ingest.AddFact(r.Context(), req.RunID, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// RecordFeedback handles POST /api/v1/feedback.
func (s *Server) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "doc_id is required")
		return
	}

	doc, err := s.promotions.RecordFeedback(r.Context(), req.DocID, req.Positive)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// HumanVerify handles POST /api/v1/verify.
func (s *Server) HumanVerify(w http.ResponseWriter, r *http.Request) {
	docID, ok := decodeDocID(w, r)
	if !ok {
		return
	}

	doc, err := s.promotions.HumanVerify(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// CommitPromotion handles POST /api/v1/promote.
func (s *Server) CommitPromotion(w http.ResponseWriter, r *http.Request) {
	docID, ok := decodeDocID(w, r)
	if !ok {
		return
	}

	doc, err := s.promotions.CommitPromotion(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// ListEvents handles GET /api/v1/events?doc_id=...
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "doc_id query parameter is required")
		return
	}

	events, err := s.audit.ListByDoc(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if events == nil {
		events = []promotion.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

// RunEviction handles POST /api/v1/eviction/run.
func (s *Server) RunEviction(w http.ResponseWriter, r *http.Request) {
	report, err := s.eviction.RunOnce(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evictionResponse{
		RunID:   report.RunID,
		Scanned: report.Scanned,
		Evicted: report.Evicted,
		Skipped: report.Skipped,
		Failed:  report.Failed,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func decodeDocID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req docIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}
	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "doc_id is required")
		return "", false
	}
	return req.DocID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidDocument,
		domain.ErrNotEligible,
		domain.ErrIllegalTransition,
		domain.ErrTotalQueryFailure,
		domain.ErrIndexUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
