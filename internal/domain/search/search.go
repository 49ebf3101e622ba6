// Package search defines the query and result shapes flowing between the
// orchestrator, the tier index clients, and the ranking engine.
package search

import (
	"fmt"

	"github.com/kailas-cloud/recalld/internal/domain"
	"github.com/kailas-cloud/recalld/internal/domain/document"
)

// MaxSize caps the number of merged results returned to a caller.
const MaxSize = 100

// Query is a lexical-first retrieval request against one tier.
type Query struct {
	Text  string   // the raw user question
	Terms []string // normalized explicit terms extracted from the question
	Size  int      // per-tier fetch size
}

// NewQuery validates a retrieval request.
func NewQuery(text string, terms []string, size int) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("query text is required")
	}
	if size <= 0 {
		return Query{}, fmt.Errorf("size must be positive, got %d", size)
	}
	if size > MaxSize {
		return Query{}, fmt.Errorf("size %d exceeds maximum %d", size, MaxSize)
	}
	return Query{Text: text, Terms: terms, Size: size}, nil
}

// Hit is a raw per-tier search hit with the store-native relevance score.
// Scores from different tiers are not comparable until normalized.
type Hit struct {
	Doc      document.Document
	RawScore float64
	Tier     domain.Tier
}

// Explanation names the field a result matched on and the query terms that
// matched there. It is mandatory output, not telemetry.
type Explanation struct {
	Field string   `json:"field"`
	Terms []string `json:"terms"`
}

// Result is one merged, ranked retrieval result.
type Result struct {
	Doc          document.Document
	Tier         domain.Tier
	Score        float64 // normalized within the tier, plus any vector blend
	RawScore     float64
	Explanations []Explanation
}

// Response is the merged answer to a dual-tier query.
type Response struct {
	Results     []Result
	Partial     bool          // one tier failed or timed out
	FailedTiers []domain.Tier // which tiers did not answer
}
