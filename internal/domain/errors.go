package domain

import "errors"

var (
	// ErrIndexUnavailable signals a transient connectivity loss to a tier index.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals a malformed document.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrDegradedEnrichment signals that term extraction failed and the caller
	// proceeded with an empty term set.
	ErrDegradedEnrichment = errors.New("degraded enrichment")
	// ErrIllegalTransition signals a lifecycle transition the state machine forbids.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrNotEligible signals a promotion commit on a document that is not pending.
	ErrNotEligible = errors.New("document not eligible for promotion")
	// ErrTotalQueryFailure signals that both tiers were unreachable.
	ErrTotalQueryFailure = errors.New("all tiers unavailable")
	// ErrEmbeddingProviderError signals an upstream embedding API failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
