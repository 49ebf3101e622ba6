package document

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// SourceID derives a stable document ID from a source path or URI plus an
// optional chunk offset. Re-ingesting the same source always yields the same
// ID, so ingestion overwrites instead of duplicating.
func SourceID(source string, chunk int) string {
	id := path.Clean(strings.TrimPrefix(strings.ReplaceAll(source, "\\", "/"), "./"))
	if chunk > 0 {
		return fmt.Sprintf("%s#%d", id, chunk)
	}
	return id
}

// FactID derives a stable ID for an out-of-band HOT fact from its run and
// content, so re-injecting the same fact within a run deduplicates.
func FactID(runID, content string) string {
	sum := sha1.Sum([]byte(content))
	return fmt.Sprintf("fact/%s/%s", runID, hex.EncodeToString(sum[:]))
}
