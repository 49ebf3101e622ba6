package index

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/recalld/internal/db"
	"github.com/kailas-cloud/recalld/internal/domain"
	domdoc "github.com/kailas-cloud/recalld/internal/domain/document"
)

// docJSON is the persisted document shape. Field names double as index
// aliases, so renames here require an index rebuild.
type docJSON struct {
	Content           string            `json:"content"`
	ExplicitTerms     []string          `json:"explicit_terms,omitempty"`
	ExplicitTermsText []string          `json:"explicit_terms_text,omitempty"`
	Embedding         []float32         `json:"embedding,omitempty"`
	Tier              string            `json:"tier"`
	Status            string            `json:"status,omitempty"`
	PromotionTrigger  string            `json:"promotion_trigger,omitempty"`
	Confidence        int               `json:"confidence,omitempty"`
	IngestedAtMS      int64             `json:"ingested_at_ms"`
	HotPromotedAtMS   int64             `json:"hot_promoted_at_ms,omitempty"`
	DocVersion        int64             `json:"doc_version"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// buildJSONDoc converts a domain Document into its persisted form.
func buildJSONDoc(doc *domdoc.Document) *docJSON {
	return &docJSON{
		Content:           doc.Content(),
		ExplicitTerms:     doc.Terms(),
		ExplicitTermsText: doc.TermsText(),
		Embedding:         doc.Embedding(),
		Tier:              doc.Tier().String(),
		Status:            doc.Status().String(),
		PromotionTrigger:  doc.Trigger(),
		Confidence:        doc.Confidence(),
		IngestedAtMS:      doc.IngestedAtMS(),
		HotPromotedAtMS:   doc.HotSinceMS(),
		DocVersion:        doc.Version(),
		Extra:             doc.Extra(),
	}
}

// toDomain hydrates a domain Document. The repository's tier wins over the
// persisted one so a misfiled record cannot cross tiers on read.
func (j *docJSON) toDomain(id string, tier domain.Tier) domdoc.Document {
	return domdoc.Reconstruct(
		id, j.DocVersion, j.IngestedAtMS,
		j.ExplicitTerms, j.ExplicitTermsText, j.Content, j.Embedding,
		tier, j.Confidence, domdoc.Status(j.Status), j.PromotionTrigger,
		j.HotPromotedAtMS, j.Extra,
	)
}

// parseJSONGetResult parses a JSON.GET "$" reply, which wraps the document
// in a single-element array.
func parseJSONGetResult(id string, tier domain.Tier, raw []byte) (domdoc.Document, error) {
	var docs []docJSON
	if err := json.Unmarshal(raw, &docs); err != nil {
		// Some paths return the bare object.
		var single docJSON
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
		}
		return single.toDomain(id, tier), nil
	}
	if len(docs) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return docs[0].toDomain(id, tier), nil
}

// parseEntry hydrates a document from an FT.SEARCH entry returning "$".
func parseEntry(id string, tier domain.Tier, entry db.SearchEntry) (domdoc.Document, error) {
	raw := entry.Fields["$"]
	if raw == "" {
		return domdoc.Document{}, fmt.Errorf("entry %s has no document payload", id)
	}
	var j docJSON
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal entry %s: %w", id, err)
	}
	return j.toDomain(id, tier), nil
}
