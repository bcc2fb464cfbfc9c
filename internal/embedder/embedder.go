// Package embedder adapts an external text-embedding endpoint to the
// batch text->vector contract the ingestion pipeline, indexer, and query
// engine depend on (§4.5). Vectors are L2-normalized by the remote model;
// this package only validates that invariant and classifies failures.
//
// Grounded on manifold's internal/embedding.EmbedText (OpenAI-compatible
// /embeddings HTTP client) and internal/rag/embedder.Embedder's
// EmbedBatch/Ping shape, merged into one adapter since this system has a
// single embedding model shared by ingestion and query.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrOutOfMemory is the distinct failure §4.5 and §4.7 require: the
// underlying embedding runtime reported memory exhaustion. The indexer
// reacts to this by halving its batch size; other errors are generic and
// propagate unchanged.
var ErrOutOfMemory = errors.New("embedder: out of memory")

// Config addresses the embedding HTTP endpoint.
type Config struct {
	BaseURL   string
	Path      string
	Model     string
	APIKey    string
	APIHeader string // "Authorization" sends "Bearer <key>"; any other name is sent verbatim
	Timeout   time.Duration
	Dimension int // expected vector length; 0 means "don't validate"
}

// Embedder is the contract the pipeline, indexer, and query engine call.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns one unit-norm vector per input text, embedding in
	// batches of at most batchSize requests at a time.
	Embed(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
	// Dimension returns the fixed vector length for this model.
	Dimension() int
	// Ping verifies the endpoint is reachable and returns a well-formed
	// embedding for a trivial input.
	Ping(ctx context.Context) error
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint. If the
// underlying client is not safe for concurrent use, call sites should rely
// on the built-in mutex rather than adding their own: Embed serializes
// calls against a single shared client, matching §5's "the adapter
// serializes calls with a mutex" requirement.
type HTTPEmbedder struct {
	cfg    Config
	client *http.Client
	mu     sync.Mutex
}

// New constructs an HTTPEmbedder. A default 30s timeout and http.Client are
// used when unset.
func New(cfg Config) *HTTPEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPEmbedder{cfg: cfg, client: &http.Client{}}
}

func (e *HTTPEmbedder) Dimension() int { return e.cfg.Dimension }

func (e *HTTPEmbedder) Ping(ctx context.Context) error {
	_, err := e.Embed(ctx, []string{"ping"}, 1)
	if err != nil {
		return fmt.Errorf("embedder reachability check failed: %w", err)
	}
	return nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed splits texts into batches of batchSize (default: all at once when
// batchSize <= 0) and calls the remote endpoint for each batch in order,
// serialized behind a mutex. Every returned vector is checked for NaN/Inf
// and approximate unit norm; violations are reported as generic errors, not
// OutOfMemory.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedOne(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *HTTPEmbedder) embedOne(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("embedder: marshal request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	url := strings.TrimRight(e.cfg.BaseURL, "/") + e.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIHeader == "Authorization" && e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	} else if e.cfg.APIHeader != "" && e.cfg.APIKey != "" {
		req.Header.Set(e.cfg.APIHeader, e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedder: read response: %w", err)
	}

	if resp.StatusCode == http.StatusInsufficientStorage || resp.StatusCode == http.StatusServiceUnavailable ||
		isOOMBody(respBody) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfMemory, truncate(respBody, 200))
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedder: %s: %s", resp.Status, truncate(respBody, 200))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("embedder: parse response: %w", err)
	}
	if len(parsed.Data) != len(batch) {
		return nil, fmt.Errorf("embedder: got %d embeddings, want %d", len(parsed.Data), len(batch))
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if err := validateVector(d.Embedding, e.cfg.Dimension); err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// isOOMBody recognizes a runtime-reported out-of-memory condition in the
// response body regardless of HTTP status, since embedding backends vary in
// how they surface it.
func isOOMBody(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "out of memory") || strings.Contains(s, "oom") ||
		strings.Contains(s, "cuda out of memory") || strings.Contains(s, "resourceexhausted")
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// validateVector enforces §4.5/§8 invariant 4: no NaN, no Inf, not all
// zero, and approximately unit norm (|‖v‖₂ - 1| < 0.1). dimension == 0
// skips the length check.
func validateVector(v []float32, dimension int) error {
	if len(v) == 0 {
		return errors.New("empty embedding vector")
	}
	if dimension > 0 && len(v) != dimension {
		return fmt.Errorf("embedding dimension %d, want %d", len(v), dimension)
	}
	var sumSq float64
	allZero := true
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("embedding contains NaN or Inf")
		}
		if f != 0 {
			allZero = false
		}
		sumSq += f * f
	}
	if allZero {
		return errors.New("embedding vector is all zero")
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1) >= 0.1 {
		return fmt.Errorf("embedding norm %.4f is not unit-normalized", norm)
	}
	return nil
}
