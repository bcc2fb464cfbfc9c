package chunker

import (
	"strings"
	"testing"
)

func genSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("This is sentence number.")
	}
	return b.String()
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk("", Options{ChunkSize: 200, ChunkOverlap: 20}, nil); got != nil {
		t.Fatalf("expected nil chunks for empty text, got %v", got)
	}
}

func TestChunk_CoversEntireText(t *testing.T) {
	text := genSentences(200)
	chunks := Chunk(text, Options{ChunkSize: 300, ChunkOverlap: 40, MinChunkSize: 50, MaxChunkSize: 1000}, nil)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].StartChar != 0 {
		t.Fatalf("expected first chunk to start at 0, got %d", chunks[0].StartChar)
	}
	last := chunks[len(chunks)-1]
	if last.EndChar != len(text) {
		t.Fatalf("expected last chunk to reach end of text %d, got %d", len(text), last.EndChar)
	}
}

func TestChunk_IndicesAreSequential(t *testing.T) {
	text := genSentences(100)
	chunks := Chunk(text, Options{ChunkSize: 250, ChunkOverlap: 30, MinChunkSize: 50, MaxChunkSize: 1000}, nil)
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, c.ChunkIndex)
		}
	}
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	text := genSentences(150)
	chunks := Chunk(text, Options{ChunkSize: 300, ChunkOverlap: 50, MinChunkSize: 50, MaxChunkSize: 1000}, nil)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks to check overlap")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartChar >= chunks[i-1].EndChar {
			t.Fatalf("expected chunk %d to start before previous chunk's end: start=%d prevEnd=%d",
				i, chunks[i].StartChar, chunks[i-1].EndChar)
		}
	}
}

func TestChunk_OverlapGreaterThanSizeIsReduced(t *testing.T) {
	text := genSentences(50)
	// overlap >= chunk_size triggers the guard: overlap becomes max(1, chunk_size/10).
	chunks := Chunk(text, Options{ChunkSize: 100, ChunkOverlap: 500, MinChunkSize: 20, MaxChunkSize: 1000}, nil)
	if len(chunks) < 2 {
		t.Fatalf("expected the guard to still produce multiple chunks, got %d", len(chunks))
	}
}

func TestChunk_PrefersSentenceBoundary(t *testing.T) {
	text := "Alpha beta gamma delta epsilon. Zeta eta theta iota kappa lambda mu."
	chunks := Chunk(text, Options{ChunkSize: 35, ChunkOverlap: 5, MinChunkSize: 10, MaxChunkSize: 200}, nil)
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	if !strings.HasSuffix(chunks[0].Text, ".") {
		t.Fatalf("expected first chunk to end at a sentence boundary, got %q", chunks[0].Text)
	}
}

func TestChunk_IsDeterministic(t *testing.T) {
	text := genSentences(300)
	opt := Options{ChunkSize: 400, ChunkOverlap: 60, MinChunkSize: 50, MaxChunkSize: 1000}
	a := Chunk(text, opt, nil)
	b := Chunk(text, opt, nil)
	if len(a) != len(b) {
		t.Fatalf("expected deterministic chunk count, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChunk_AssignsPageNumbersFromPageMap(t *testing.T) {
	p1 := "First page content here. " + genSentences(20)
	p2 := "Second page content starts. " + genSentences(20)
	text := p1 + p2

	pages := []Page{
		{Text: p1, Number: 1},
		{Text: p2, Number: 2},
	}
	chunks := Chunk(text, Options{ChunkSize: 120, ChunkOverlap: 20, MinChunkSize: 20, MaxChunkSize: 1000}, pages)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	if chunks[0].PageNumber != 1 {
		t.Fatalf("expected first chunk on page 1, got %d", chunks[0].PageNumber)
	}
	sawPage2 := false
	for _, c := range chunks {
		if c.PageNumber == 2 {
			sawPage2 = true
		}
	}
	if !sawPage2 {
		t.Fatalf("expected at least one chunk mapped to page 2")
	}
}

func TestChunk_NoPagesYieldsZeroPageNumber(t *testing.T) {
	text := genSentences(30)
	chunks := Chunk(text, Options{ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 20, MaxChunkSize: 1000}, nil)
	for _, c := range chunks {
		if c.PageNumber != 0 {
			t.Fatalf("expected page number 0 without a page map, got %d", c.PageNumber)
		}
	}
}
