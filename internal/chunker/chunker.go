// Package chunker splits normalized document text into overlapping,
// boundary-aware windows sized for embedding, with optional page mapping.
//
// Adapted from the strategy-dispatch shape of manifold's
// internal/rag/chunker.SimpleChunker, but the splitting algorithm itself is
// the character-budgeted, sentence/paragraph/word-boundary search this
// system's chunk-size and overlap invariants require.
package chunker

import "strings"

// Options configures the chunker. ChunkSize and Overlap are target
// character counts, not tokens.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	MaxChunkSize int
}

// Page is a single page's text, used to derive per-chunk page numbers.
type Page struct {
	Text   string
	Number int
}

// Window is one emitted chunk of text.
type Window struct {
	Text       string
	StartChar  int
	EndChar    int
	ChunkIndex int
	PageNumber int // 0 means "no page associated"
}

type pageSpan struct {
	start  int
	end    int
	number int
}

// Chunk splits text into ordered, overlap-aware chunks. Given identical
// input and options, the output is bit-identical across calls.
func Chunk(text string, opt Options, pages []Page) []Window {
	opt = guardParams(opt)
	if text == "" {
		return nil
	}

	spans := buildPageMap(text, pages)

	n := len(text)
	var out []Window
	start := 0
	idx := 0
	for start < n {
		end := findChunkEnd(text, start, n, opt)

		chunkText := strings.TrimSpace(text[start:end])
		out = append(out, Window{
			Text:       chunkText,
			StartChar:  start,
			EndChar:    end,
			ChunkIndex: idx,
			PageNumber: pageNumberFor(spans, start),
		})
		idx++

		if end >= n {
			break
		}
		next := end - opt.ChunkOverlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// guardParams applies the parameter guard: if overlap >= chunk_size, reduce
// overlap to max(1, chunk_size/10); then clamp chunk_size to
// [min_chunk_size, max_chunk_size].
func guardParams(opt Options) Options {
	if opt.MinChunkSize <= 0 {
		opt.MinChunkSize = 1
	}
	if opt.MaxChunkSize <= 0 || opt.MaxChunkSize < opt.MinChunkSize {
		opt.MaxChunkSize = opt.MinChunkSize
		if opt.ChunkSize > opt.MaxChunkSize {
			opt.MaxChunkSize = opt.ChunkSize
		}
	}
	if opt.ChunkOverlap >= opt.ChunkSize {
		reduced := opt.ChunkSize / 10
		if reduced < 1 {
			reduced = 1
		}
		opt.ChunkOverlap = reduced
	}
	if opt.ChunkOverlap < 0 {
		opt.ChunkOverlap = 0
	}
	if opt.ChunkSize < opt.MinChunkSize {
		opt.ChunkSize = opt.MinChunkSize
	}
	if opt.ChunkSize > opt.MaxChunkSize {
		opt.ChunkSize = opt.MaxChunkSize
	}
	return opt
}

// findChunkEnd implements the boundary search: start at start+chunk_size,
// then search backward up to chunk_size/4 characters for a sentence end,
// paragraph break, or word boundary, accepting it only if it leaves a chunk
// longer than min_chunk_size. A chunk shorter than min_chunk_size that does
// not reach the end of text is extended to min_chunk_size; the final chunk
// is never extended.
func findChunkEnd(text string, start, n int, opt Options) int {
	end := start + opt.ChunkSize
	if end > n {
		end = n
	}
	if end < n {
		searchLimit := opt.ChunkSize / 4
		lo := end - searchLimit
		if lo < start {
			lo = start
		}
		if cand, ok := findBoundary(text, lo, end, n); ok && cand > start+opt.MinChunkSize {
			end = cand
		}
	}
	if end-start < opt.MinChunkSize && end < n {
		end = start + opt.MinChunkSize
		if end > n {
			end = n
		}
	}
	return end
}

// findBoundary searches text[lo:end] backward for the best break point in
// priority order: sentence terminator, paragraph break, word boundary.
func findBoundary(text string, lo, end, n int) (int, bool) {
	if cand, ok := findSentenceBoundary(text, lo, end, n); ok {
		return cand, true
	}
	if cand, ok := findParagraphBoundary(text, lo, end); ok {
		return cand, true
	}
	if cand, ok := findWordBoundary(text, lo, end); ok {
		return cand, true
	}
	return 0, false
}

func findSentenceBoundary(text string, lo, end, n int) (int, bool) {
	for i := end - 1; i >= lo; i-- {
		r := text[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		after := i + 1
		if after >= n {
			return after, true
		}
		if text[after] == ' ' || text[after] == '\n' || text[after] == '\t' {
			return after, true
		}
	}
	return 0, false
}

func findParagraphBoundary(text string, lo, end int) (int, bool) {
	for i := end - 1; i > lo; i-- {
		if text[i] == '\n' && text[i-1] == '\n' {
			return i + 1, true
		}
	}
	return 0, false
}

func findWordBoundary(text string, lo, end int) (int, bool) {
	for i := end - 1; i > lo; i-- {
		if isSpace(text[i-1]) && !isSpace(text[i]) {
			return i, true
		}
	}
	return 0, false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// buildPageMap locates each page's first 100 characters within text,
// searching forward from the end of the previous page; falls back to the
// running cursor when a page's prefix cannot be located (§4.2, Open
// Question 2: the substring heuristic documented in spec.md).
func buildPageMap(text string, pages []Page) []pageSpan {
	if len(pages) == 0 {
		return nil
	}
	spans := make([]pageSpan, 0, len(pages))
	cursor := 0
	for _, p := range pages {
		prefixLen := len(p.Text)
		if prefixLen > 100 {
			prefixLen = 100
		}
		prefix := p.Text[:prefixLen]

		start := cursor
		if prefix != "" {
			if idx := strings.Index(text[cursor:], prefix); idx >= 0 {
				start = cursor + idx
			}
		}
		end := start + len(p.Text)
		if end > len(text) {
			end = len(text)
		}
		spans = append(spans, pageSpan{start: start, end: end, number: p.Number})
		cursor = end
	}
	return spans
}

// pageNumberFor returns the number of the first page span containing
// startChar, or the last page's number if none contains it.
func pageNumberFor(spans []pageSpan, startChar int) int {
	if len(spans) == 0 {
		return 0
	}
	for _, sp := range spans {
		if startChar >= sp.start && startChar < sp.end {
			return sp.number
		}
	}
	return spans[len(spans)-1].number
}
