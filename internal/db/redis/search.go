package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/recalld/internal/db"
)

// Schema aliases the lexical query builder targets. Index definitions must
// alias their JSON paths to these names.
const (
	fieldContent   = "content"
	fieldTerms     = "explicit_terms"
	fieldTermsText = "explicit_terms_text"
)

// SearchText runs a scored lexical search via FT.SEARCH.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Text == "" && len(q.Terms) == 0 {
		return nil, fmt.Errorf("query text or terms are required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	queryStr := buildLexicalQuery(q.Text, q.Terms)
	if filterStr := buildFilters(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("%s (%s)", filterStr, queryStr)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, opErr(db.OpSearch, err)
	}

	return parseScoredResult(raw)
}

// SearchList performs unscored filtered listing via FT.SEARCH.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildFilters(q.Filters)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.IndexName, queryStr}

	if q.SortBy != "" {
		order := "DESC"
		if q.SortAsc {
			order = "ASC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}

	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, opErr(db.OpSearch, err)
	}

	return parseListResult(raw)
}

// SearchCount returns document count via FT.SEARCH with LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, index string, filters []db.Filter) (int, error) {
	queryStr := buildFilters(filters)
	if queryStr == "" {
		queryStr = "*"
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, queryStr, "LIMIT", "0", "0", "DIALECT", "2").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, opErr(db.OpSearch, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// --- Lexical query building ---

// buildLexicalQuery renders the retrieval query. With terms present, an
// exact-tag AND branch ranks conjunctive matches first, OR'd with a loose
// tag branch, a term full-text branch, and the question full-text branch.
// Without terms only the question branch remains.
func buildLexicalQuery(text string, terms []string) string {
	var content string
	if text != "" {
		content = fmt.Sprintf("@%s:(%s)", fieldContent, escapeQuery(text))
	}
	if len(terms) == 0 {
		return content
	}

	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = tagEscaper.Replace(t)
	}

	strictParts := make([]string, len(escaped))
	for i, t := range escaped {
		strictParts[i] = fmt.Sprintf("@%s:{%s}", fieldTerms, t)
	}

	branches := []string{
		"(" + strings.Join(strictParts, " ") + ")",
		fmt.Sprintf("(@%s:{%s})", fieldTerms, strings.Join(escaped, "|")),
		fmt.Sprintf("(@%s:(%s))", fieldTermsText, strings.Join(escaped, "|")),
	}
	if content != "" {
		branches = append(branches, "("+content+")")
	}

	return strings.Join(branches, " | ")
}

// --- Filter building ---

// buildFilters renders structured filters into an FT.SEARCH pre-filter
// string. Filters combine with AND; tag values within one filter with OR.
func buildFilters(filters []db.Filter) string {
	parts := make([]string, 0, len(filters))
	for i := range filters {
		if p := buildFilter(&filters[i]); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func buildFilter(f *db.Filter) string {
	switch f.Kind {
	case db.FilterTag:
		return buildTagFilter(f.Field, f.Values)
	case db.FilterNotTag:
		if s := buildTagFilter(f.Field, f.Values); s != "" {
			return "-" + s
		}
		return ""
	case db.FilterRange:
		return buildNumericFilter(f)
	}
	return ""
}

func buildTagFilter(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|"))
}

func buildNumericFilter(f *db.Filter) string {
	minBound := "-inf"
	maxBound := "+inf"

	if f.Min != nil {
		if f.MinExcl {
			minBound = fmt.Sprintf("(%g", *f.Min)
		} else {
			minBound = fmt.Sprintf("%g", *f.Min)
		}
	}
	if f.Max != nil {
		if f.MaxExcl {
			maxBound = fmt.Sprintf("(%g", *f.Max)
		} else {
			maxBound = fmt.Sprintf("%g", *f.Max)
		}
	}

	return fmt.Sprintf("@%s:[%s %s]", f.Field, minBound, maxBound)
}

// --- Result parsing ---

func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
