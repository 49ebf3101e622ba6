package document

import "strings"

// NormalizeTerms lower-cases and de-duplicates raw entity strings while
// preserving first-seen order, returning the normalized set and the matching
// original-case display forms.
func NormalizeTerms(raw []string) (normalized, display []string) {
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		trimmed := strings.TrimSpace(t)
		key := strings.ToLower(trimmed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, key)
		display = append(display, trimmed)
	}
	return normalized, display
}
