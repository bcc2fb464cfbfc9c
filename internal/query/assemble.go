package query

import (
	"fmt"
	"strings"
)

// assembleContext builds the context string and citation list for ranked
// hits, applying the per-source budget and extractive truncation (§4.8
// steps 4-5).
func assembleContext(query string, hits []Hit, maxContextChars int) Result {
	footer := "\n[USER QUESTION]\n" + query + "\n"

	if len(hits) == 0 {
		return Result{
			Context:   contextHeader + noSourcesLine + "\n" + footer,
			Citations: nil,
		}
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	running := len(contextHeader)

	citations := make([]Citation, 0, len(hits))
	for i, h := range hits {
		available := maxContextChars - running - len(footer)
		if available <= 0 {
			break
		}

		prefix := sourcePrefix(i+1, h)
		available -= len(prefix) + len("\n\n\n")
		if available <= 0 {
			break
		}

		text := h.Text
		if len(text) > available {
			text = extractiveTruncate(text, available)
		}

		block := prefix + text + "\n\n\n"
		b.WriteString(block)
		running += len(block)

		citations = append(citations, Citation{
			DocumentID: h.DocumentID,
			ChunkIndex: h.ChunkIndex,
			Page:       h.Page,
			Similarity: h.Similarity,
		})
	}

	b.WriteString(footer)
	return Result{Context: b.String(), Citations: citations}
}

func sourcePrefix(n int, h Hit) string {
	loc := fmt.Sprintf("[DOC: %s | CHUNK: %d", h.DocumentID, h.ChunkIndex)
	if h.Page > 0 {
		loc += fmt.Sprintf(" | PAGE: %d", h.Page)
	}
	loc += "]"
	return fmt.Sprintf("--- SOURCE %d ---\n%s\n\n", n, loc)
}

// extractiveTruncate implements §4.8a: emit whole sentences (split on
// terminal . ! ?) while they fit in available, space-joined. If even the
// first sentence doesn't fit, hard-truncate at the last whitespace before
// available and append "...".
func extractiveTruncate(text string, available int) string {
	sentences := splitSentences(text)

	var b strings.Builder
	for _, s := range sentences {
		candidate := s
		if b.Len() > 0 {
			candidate = " " + s
		}
		if b.Len()+len(candidate) > available {
			break
		}
		b.WriteString(candidate)
	}
	if b.Len() > 0 {
		return b.String()
	}

	return hardTruncate(text, available)
}

// splitSentences splits on ".", "!", "?" keeping the terminal punctuation
// attached to the preceding sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, strings.TrimSpace(text[start:i+1]))
			start = i + 1
		}
	}
	if start < len(text) {
		if rest := strings.TrimSpace(text[start:]); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

func hardTruncate(text string, available int) string {
	const ellipsis = "..."
	budget := available - len(ellipsis)
	if budget <= 0 {
		if available <= 0 {
			return ""
		}
		if available < len(ellipsis) {
			return ellipsis[:available]
		}
		return ellipsis
	}
	if budget >= len(text) {
		return text + ellipsis
	}
	cut := strings.LastIndexAny(text[:budget], " \t\n")
	if cut <= 0 {
		cut = budget
	}
	return strings.TrimRight(text[:cut], " \t\n") + ellipsis
}
