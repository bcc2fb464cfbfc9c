package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Deterministic is a lightweight, dependency-free Embedder for tests and
// local development: it hashes lowercased words into a fixed-size
// bag-of-words vector and L2-normalizes the result, so texts sharing more
// words score a higher cosine similarity - unlike a pure n-gram hash, this
// keeps semantic-adjacent sentences (shared vocabulary) closer than
// unrelated ones, which the retrieval-ranking invariant (§8.6) depends on.
//
// Grounded on manifold's internal/rag/embedder.deterministicEmbedder
// (3-gram FNV hashing), adapted here to word-level hashing so bag-of-words
// overlap - not byte shingles - drives similarity.
type Deterministic struct {
	dim  int
	seed uint64
}

// NewDeterministic builds a Deterministic embedder of the given dimension
// (default 64 when dim <= 0).
func NewDeterministic(dim int, seed uint64) *Deterministic {
	if dim <= 0 {
		dim = 64
	}
	return &Deterministic{dim: dim, seed: seed}
}

func (d *Deterministic) Dimension() int { return d.dim }

func (d *Deterministic) Ping(context.Context) error { return nil }

func (d *Deterministic) Embed(_ context.Context, texts []string, _ int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *Deterministic) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		v[0] = 1
		return v
	}
	for _, w := range words {
		h := fnv.New64a()
		if d.seed != 0 {
			var tmp [8]byte
			for i := 0; i < 8; i++ {
				tmp[i] = byte(d.seed >> (8 * i))
			}
			_, _ = h.Write(tmp[:])
		}
		_, _ = h.Write([]byte(w))
		hv := h.Sum64()
		idx := int(hv % uint64(len(v)))
		v[idx] += 1
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
