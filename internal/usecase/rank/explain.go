package rank

import (
	"strings"

	"github.com/kailas-cloud/recalld/internal/domain/document"
	"github.com/kailas-cloud/recalld/internal/domain/search"
)

const minTokenLen = 3

// explain reports, per field, which query terms this document matched on.
// Every returned result carries at least the reason it was retrieved.
func explain(q search.Query, doc document.Document) []search.Explanation {
	var out []search.Explanation

	if matched := matchTerms(q.Terms, doc.Terms()); len(matched) > 0 {
		out = append(out, search.Explanation{Field: "explicit_terms", Terms: matched})
	}

	if matched := matchContent(q, doc.Content()); len(matched) > 0 {
		out = append(out, search.Explanation{Field: "content", Terms: matched})
	}

	return out
}

// matchTerms intersects the query terms with the document's explicit term
// set, preserving query order.
func matchTerms(queryTerms, docTerms []string) []string {
	if len(queryTerms) == 0 || len(docTerms) == 0 {
		return nil
	}
	docSet := make(map[string]struct{}, len(docTerms))
	for _, t := range docTerms {
		docSet[t] = struct{}{}
	}
	var matched []string
	for _, t := range queryTerms {
		if _, ok := docSet[t]; ok {
			matched = append(matched, t)
		}
	}
	return matched
}

// matchContent checks the query's terms and question tokens against the
// document body, case-insensitively.
func matchContent(q search.Query, content string) []string {
	body := strings.ToLower(content)
	if body == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var matched []string
	check := func(term string) {
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		if strings.Contains(body, term) {
			matched = append(matched, term)
		}
	}

	for _, t := range q.Terms {
		check(strings.ToLower(t))
	}
	for _, tok := range tokenize(q.Text) {
		check(tok)
	}
	return matched
}

// tokenize lowercases the question and drops punctuation and short words.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if len(f) >= minTokenLen {
			out = append(out, f)
		}
	}
	return out
}
