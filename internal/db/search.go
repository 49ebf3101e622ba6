package db

// FilterKind selects how a Filter is rendered into the FT.SEARCH query.
type FilterKind int

const (
	// FilterTag matches documents whose tag field holds any of Values.
	FilterTag FilterKind = iota
	// FilterNotTag excludes documents whose tag field holds any of Values.
	FilterNotTag
	// FilterRange matches documents whose numeric field falls inside the bounds.
	FilterRange
)

// Filter is a single pre-filter condition. Multiple filters combine with AND.
type Filter struct {
	Field  string
	Kind   FilterKind
	Values []string // tag membership, OR within the slice

	// Numeric bounds. A nil bound is open (-inf / +inf).
	Min, Max         *float64
	MinExcl, MaxExcl bool
}

// TagIn builds a tag membership filter.
func TagIn(field string, values ...string) Filter {
	return Filter{Field: field, Kind: FilterTag, Values: values}
}

// TagNotIn builds a negated tag membership filter.
func TagNotIn(field string, values ...string) Filter {
	return Filter{Field: field, Kind: FilterNotTag, Values: values}
}

// NumLT builds a strict upper-bound numeric filter.
func NumLT(field string, max float64) Filter {
	return Filter{Field: field, Kind: FilterRange, Max: &max, MaxExcl: true}
}

// NumRange builds an inclusive numeric range filter.
func NumRange(field string, min, max float64) Filter {
	return Filter{Field: field, Kind: FilterRange, Min: &min, Max: &max}
}

// TextQuery is the input for scored lexical search. The query string is built
// from Terms and Text: an exact-tag AND branch over Terms, OR'd with looser
// per-term branches and a full-text match over Text. Filters are AND'd in
// front of the lexical part.
type TextQuery struct {
	IndexName    string
	Text         string
	Terms        []string
	Filters      []Filter
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for unscored filtered listing, optionally sorted by
// a numeric field.
type ListQuery struct {
	IndexName    string
	Filters      []Filter
	SortBy       string // numeric field name, empty for index order
	SortAsc      bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
