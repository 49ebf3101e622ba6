package chi

import (
	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/promotion"
	"github.com/kailas-cloud/recalld/internal/domain/search"
)

// errorCode values returned to clients.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeDocumentNotFound  errorCode = "document_not_found"
	codeNotEligible       errorCode = "not_eligible"
	codeIllegalTransition errorCode = "illegal_transition"
	codeIndexUnavailable  errorCode = "index_unavailable"
	codeEmbeddingProvider errorCode = "embedding_provider_error"
	codeTotalQueryFailure errorCode = "total_query_failure"
	codeInternalError     errorCode = "internal_error"
	codeUnauthorized      errorCode = "unauthorized"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type queryRequest struct {
	Question string `json:"question"`
	Size     int    `json:"size,omitempty"`
}

type queryResponse struct {
	Results     []resultItem `json:"results"`
	Partial     bool         `json:"partial"`
	FailedTiers []string     `json:"failed_tiers,omitempty"`
}

type resultItem struct {
	DocID        string               `json:"doc_id"`
	Tier         string               `json:"tier"`
	Score        float64              `json:"score"`
	RawScore     float64              `json:"raw_score"`
	Content      string               `json:"content"`
	Terms        []string             `json:"explicit_terms,omitempty"`
	Explanations []search.Explanation `json:"explanations"`
}

type ingestRequest struct {
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
	Text     string `json:"text"`
}

type ingestResponse struct {
	Documents []documentResponse `json:"documents"`
}

type factRequest struct {
	RunID string `json:"run_id,omitempty"`
	Text  string `json:"text"`
}

type feedbackRequest struct {
	DocID    string `json:"doc_id"`
	Positive bool   `json:"positive"`
}

type docIDRequest struct {
	DocID string `json:"doc_id"`
}

type documentResponse struct {
	DocID        string            `json:"doc_id"`
	Tier         string            `json:"tier"`
	Content      string            `json:"content"`
	Terms        []string          `json:"explicit_terms,omitempty"`
	Version      int64             `json:"doc_version"`
	IngestedAtMS int64             `json:"ingested_at_ms"`
	Status       string            `json:"status,omitempty"`
	Confidence   int               `json:"confidence_score,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

type eventsResponse struct {
	Events []promotion.Event `json:"events"`
}

type evictionResponse struct {
	RunID   string `json:"run_id"`
	Scanned int    `json:"scanned"`
	Evicted int    `json:"evicted"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func toDocumentResponse(doc document.Document) documentResponse {
	return documentResponse{
		DocID:        doc.ID(),
		Tier:         string(doc.Tier()),
		Content:      doc.Content(),
		Terms:        doc.Terms(),
		Version:      doc.Version(),
		IngestedAtMS: doc.IngestedAtMS(),
		Status:       string(doc.Status()),
		Confidence:   doc.Confidence(),
		Extra:        doc.Extra(),
	}
}

func toResultItem(r search.Result) resultItem {
	expl := r.Explanations
	if expl == nil {
		expl = []search.Explanation{}
	}
	return resultItem{
		DocID:        r.Doc.ID(),
		Tier:         string(r.Tier),
		Score:        r.Score,
		RawScore:     r.RawScore,
		Content:      r.Doc.Content(),
		Terms:        r.Doc.Terms(),
		Explanations: expl,
	}
}
