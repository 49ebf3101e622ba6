package document

import (
	"fmt"

	"github.com/kailas-cloud/recalld/internal/domain"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Trigger values recorded when a document enters pending_promotion.
const (
	TriggerScore = "score"
	TriggerHuman = "human"
)

// Document is the record shape shared by both tiers (immutable value object).
// confidence, status, trigger and hotSinceMS are meaningful only while the
// document lives in HOT; a promoted copy drops them.
type Document struct {
	id           string
	version      int64
	ingestedAtMS int64
	terms        []string // normalized (lower-cased, de-duplicated)
	termsText    []string // original-case display form, one-to-one with terms
	content      string
	embedding    []float32
	tier         domain.Tier
	confidence   int
	status       Status
	trigger      string // what moved the document to pending_promotion
	hotSinceMS   int64  // when the document entered HOT, drives TTL
	extra        map[string]string
}

// New validates and creates a Document in the given tier.
// HOT documents start unverified with confidence 1.
func New(id, content string, terms, termsText []string, tier domain.Tier, nowMS int64) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidDocument)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required: %w", domain.ErrInvalidDocument)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrInvalidDocument)
	}
	if !tier.Valid() {
		return Document{}, fmt.Errorf("unknown tier %q: %w", tier, domain.ErrInvalidDocument)
	}
	if len(terms) != len(termsText) {
		return Document{}, fmt.Errorf("terms and display terms differ in length: %w", domain.ErrInvalidDocument)
	}

	d := Document{
		id:           id,
		version:      1,
		ingestedAtMS: nowMS,
		terms:        cloneStrings(terms),
		termsText:    cloneStrings(termsText),
		content:      content,
		tier:         tier,
	}
	if tier == domain.TierHot {
		d.status = StatusUnverified
		d.confidence = 1
		d.hotSinceMS = nowMS
	}
	return d, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id string, version, ingestedAtMS int64,
	terms, termsText []string, content string, embedding []float32,
	tier domain.Tier, confidence int, status Status, trigger string,
	hotSinceMS int64, extra map[string]string,
) Document {
	return Document{
		id: id, version: version, ingestedAtMS: ingestedAtMS,
		terms: terms, termsText: termsText, content: content,
		embedding: embedding, tier: tier, confidence: confidence,
		status: status, trigger: trigger, hotSinceMS: hotSinceMS, extra: extra,
	}
}

// ID returns the stable document identifier.
func (d *Document) ID() string { return d.id }

// Version returns the monotonically increasing content version.
func (d *Document) Version() int64 { return d.version }

// IngestedAtMS returns the ingestion timestamp in epoch milliseconds.
func (d *Document) IngestedAtMS() int64 { return d.ingestedAtMS }

// Terms returns the normalized explicit term set.
func (d *Document) Terms() []string { return d.terms }

// TermsText returns the original-case display form of the terms.
func (d *Document) TermsText() []string { return d.termsText }

// Content returns the chunk text.
func (d *Document) Content() string { return d.content }

// Embedding returns the optional dense vector.
func (d *Document) Embedding() []float32 { return d.embedding }

// Tier returns the store currently owning the document.
func (d *Document) Tier() domain.Tier { return d.tier }

// Confidence returns the usage-driven confidence score (HOT only).
func (d *Document) Confidence() int { return d.confidence }

// Status returns the HOT lifecycle flag.
func (d *Document) Status() Status { return d.status }

// Trigger returns what moved the document into pending_promotion.
func (d *Document) Trigger() string { return d.trigger }

// HotSinceMS returns when the document entered HOT (epoch milliseconds).
func (d *Document) HotSinceMS() int64 { return d.hotSinceMS }

// Extra returns the opaque side-map of unknown metadata fields.
func (d *Document) Extra() map[string]string { return d.extra }

// WithEmbedding returns a copy with the embedding set.
func (d Document) WithEmbedding(v []float32) Document {
	d.embedding = v
	return d
}

// WithExtra returns a copy with one extra metadata field set.
func (d Document) WithExtra(key, value string) Document {
	m := make(map[string]string, len(d.extra)+1)
	for k, v := range d.extra {
		m[k] = v
	}
	m[key] = value
	d.extra = m
	return d
}

// Revised returns a copy carrying new content with the version bumped.
// Terms are replaced together with the content they were extracted from.
func (d Document) Revised(content string, terms, termsText []string, nowMS int64) Document {
	d.content = content
	d.terms = cloneStrings(terms)
	d.termsText = cloneStrings(termsText)
	d.version++
	d.ingestedAtMS = nowMS
	d.embedding = nil
	return d
}

// ApplyFeedback adjusts the confidence score by one in either direction,
// never below zero, and returns the updated copy.
func (d Document) ApplyFeedback(positive bool) Document {
	if positive {
		d.confidence++
	} else if d.confidence > 0 {
		d.confidence--
	}
	return d
}

// Transition moves the document to a new lifecycle status, recording the
// trigger when entering pending_promotion. Illegal transitions are rejected.
func (d Document) Transition(to Status, trigger string) (Document, error) {
	if !d.status.CanTransition(to) {
		return Document{}, fmt.Errorf("%s -> %s: %w", d.status, to, domain.ErrIllegalTransition)
	}
	d.status = to
	if to == StatusPending {
		d.trigger = trigger
	}
	return d, nil
}

// PromotedCopy builds the LT-side document written by commit_promotion: same
// ID lineage and content, fresh ingestion stamp, bumped version, HOT-only
// fields dropped.
func (d Document) PromotedCopy(nowMS int64) Document {
	d.tier = domain.TierLT
	d.version++
	d.ingestedAtMS = nowMS
	d.confidence = 0
	d.status = ""
	d.trigger = ""
	d.hotSinceMS = 0
	return d
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
