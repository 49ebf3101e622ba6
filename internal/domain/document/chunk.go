package document

import "strings"

// SplitChunks splits source text into ingestion chunks of at most maxLen
// bytes, packing whole paragraphs together and hard-splitting any single
// paragraph that exceeds the limit. The split is deterministic.
func SplitChunks(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, s)
		}
		buf.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for len(para) > maxLen {
			flush()
			chunks = append(chunks, strings.TrimSpace(para[:maxLen]))
			para = strings.TrimSpace(para[maxLen:])
		}
		if para == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(para)+2 > maxLen {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	flush()

	return chunks
}
