package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func unitNorm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestDeterministicEmbedUnitNorm(t *testing.T) {
	e := NewDeterministic(32, 0)
	vecs, err := e.Embed(context.Background(), []string{"alpha beta", "", "gamma delta"}, 0)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		require.InDelta(t, 1.0, unitNorm(v), 0.1)
	}
}

func TestDeterministicSimilarityOrdering(t *testing.T) {
	e := NewDeterministic(64, 0)
	vecs, err := e.Embed(context.Background(), []string{
		"Machine learning lets computers learn from data.",
		"Deep learning uses neural networks.",
		"Photosynthesis converts light to chemical energy.",
		"How do computers learn?",
	}, 0)
	require.NoError(t, err)
	query := vecs[3]
	simA := cosineSim(query, vecs[0])
	simB := cosineSim(query, vecs[1])
	simC := cosineSim(query, vecs[2])
	require.Greater(t, simA, simC)
	require.GreaterOrEqual(t, simA, simB)
}

func cosineSim(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na = unitNorm(a)
	nb = unitNorm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func TestHTTPEmbedderRejectsNonUnitVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embedResponse{Data: []struct {
			Embedding []float32 `json:"embedding"`
		}{{Embedding: []float32{5, 5, 5}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test"})
	_, err := e.Embed(context.Background(), []string{"hi"}, 0)
	require.Error(t, err)
}

func TestHTTPEmbedderDetectsOOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"CUDA out of memory"}`)
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test"})
	_, err := e.Embed(context.Background(), []string{"hi"}, 0)
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestHTTPEmbedderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]struct {
			Embedding []float32 `json:"embedding"`
		}, len(req.Input))
		for i := range data {
			data[i].Embedding = []float32{1, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Data: data})
	}))
	defer srv.Close()

	e := New(Config{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test", Dimension: 3})
	vecs, err := e.Embed(context.Background(), []string{"a", "b"}, 1)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
}
