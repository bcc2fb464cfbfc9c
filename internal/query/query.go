// Package query implements the Query Engine (C8): cached retrieval and
// extractive context assembly over the vector store, with citation
// tracking for the downstream LLM provider.
//
// Grounded on manifold's internal/rag/service (fingerprint/cache style) and
// internal/rag/obs for the metrics/logger seams; the extractive-sentence
// assembler and LRU fingerprinting are built fresh since the teacher's
// hybrid retrieval has no equivalent single-string context assembly step.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

const (
	contextHeader = "[SYSTEM CONTEXT RULES]\n" +
		"Use only the information provided below.\n" +
		"Cite evidence using [DOC:doc_id | CHUNK:chunk_id].\n\n" +
		"[CONTEXT SOURCES]\n"

	noSourcesLine = "No relevant sources found."

	defaultCacheCapacity = 128
)

// Hit is one ranked retrieval result (§4.8 step 3).
type Hit struct {
	DocumentID string
	ChunkIndex int
	Page       int // 0 means absent
	Text       string
	Similarity float64
	Distance   float64
}

// Citation is the record surfaced alongside assembled context.
type Citation struct {
	DocumentID string
	ChunkIndex int
	Page       int // 0 means absent
	Similarity float64
}

// Result is answer_context's return value.
type Result struct {
	Context   string
	Citations []Citation
}

// Options bounds query parameters per the hard limits (§6).
type Options struct {
	MinTopK         int
	MaxTopK         int
	MinContextChars int
	MaxContextChars int
	CacheCapacity   int
}

func (o Options) normalized() Options {
	if o.MinTopK <= 0 {
		o.MinTopK = 1
	}
	if o.MaxTopK <= 0 {
		o.MaxTopK = 50
	}
	if o.MinContextChars <= 0 {
		o.MinContextChars = 100
	}
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = 50000
	}
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = defaultCacheCapacity
	}
	return o
}

// Engine answers queries against a vector store and embedder, caching both
// assembled contexts and raw retrieved chunks (§4.8 steps 1-2).
type Engine struct {
	Vectors    vectorstore.Store
	Embedder   embedder.Embedder
	Collection string
	Options    Options

	Log     obs.Logger
	Metrics obs.Metrics
	Clock   obs.Clock

	contextCache *lru.Cache[string, Result]
	chunksCache  *lru.Cache[string, []Hit]
}

// New constructs an Engine with its LRU caches sized per opts.
func New(vectors vectorstore.Store, emb embedder.Embedder, collection string, opts Options) *Engine {
	opts = opts.normalized()
	ctxCache, _ := lru.New[string, Result](opts.CacheCapacity)
	chunksCache, _ := lru.New[string, []Hit](opts.CacheCapacity)
	return &Engine{
		Vectors:      vectors,
		Embedder:     emb,
		Collection:   collection,
		Options:      opts,
		contextCache: ctxCache,
		chunksCache:  chunksCache,
	}
}

func (e *Engine) logger() obs.Logger {
	if e.Log != nil {
		return e.Log
	}
	return obs.NoopLogger{}
}

func (e *Engine) metrics() obs.Metrics {
	if e.Metrics != nil {
		return e.Metrics
	}
	return obs.NoopMetrics{}
}

func (e *Engine) clock() obs.Clock {
	if e.Clock != nil {
		return e.Clock
	}
	return obs.SystemClock{}
}

// ErrInvalidInput covers parameters outside the hard limits (§6, §7).
type ErrInvalidInput struct{ Reason string }

func (err ErrInvalidInput) Error() string { return "query: invalid input: " + err.Reason }

// AnswerContext implements answer_context(query, top_k, max_context_chars)
// (§4.8).
func (e *Engine) AnswerContext(ctx context.Context, query string, topK, maxContextChars int, filter vectorstore.Filter) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, ErrInvalidInput{Reason: "query must not be empty"}
	}
	if topK < e.Options.MinTopK || topK > e.Options.MaxTopK {
		return Result{}, ErrInvalidInput{Reason: fmt.Sprintf("top_k must be in [%d, %d]", e.Options.MinTopK, e.Options.MaxTopK)}
	}
	if maxContextChars < e.Options.MinContextChars || maxContextChars > e.Options.MaxContextChars {
		return Result{}, ErrInvalidInput{Reason: fmt.Sprintf("max_context_chars must be in [%d, %d]", e.Options.MinContextChars, e.Options.MaxContextChars)}
	}

	fp := fingerprint(query, topK, maxContextChars, filter)
	if cached, ok := e.contextCache.Get(fp); ok {
		e.metrics().IncCounter("query_cache_hits_total", map[string]string{"cache": "context"})
		return cached, nil
	}

	retrievalStart := e.clock().Now()
	hits, err := e.retrieve(ctx, query, topK, filter)
	e.metrics().ObserveHistogram("retrieval_stage_ms", obs.MillisSince(e.clock(), retrievalStart), map[string]string{"stage": "retrieval"})
	if err != nil {
		return Result{}, err
	}

	assembleStart := e.clock().Now()
	result := assembleContext(query, hits, maxContextChars)
	e.metrics().ObserveHistogram("retrieval_stage_ms", obs.MillisSince(e.clock(), assembleStart), map[string]string{"stage": "context_assembly"})
	e.contextCache.Add(fp, result)
	e.metrics().IncCounter("query_cache_misses_total", map[string]string{"cache": "context"})
	return result, nil
}

// retrieve checks the chunks cache, then queries the vector store and ranks
// hits by similarity descending, stable on ties (§4.8 step 3).
func (e *Engine) retrieve(ctx context.Context, query string, topK int, filter vectorstore.Filter) ([]Hit, error) {
	chunksKey := "chunks_" + fingerprint(query, topK, 0, filter)
	if cached, ok := e.chunksCache.Get(chunksKey); ok {
		e.metrics().IncCounter("query_cache_hits_total", map[string]string{"cache": "chunks"})
		return cached, nil
	}

	vecs, err := e.Embedder.Embed(ctx, []string{query}, 1)
	if err != nil {
		return nil, fmt.Errorf("query: embed query: %w", err)
	}

	qhits, err := e.Vectors.Query(ctx, e.Collection, vecs[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query: vector search: %w", err)
	}

	hits := make([]Hit, len(qhits))
	for i, h := range qhits {
		docID, chunkIdx := splitCompositeID(h.ID, h.Metadata)
		hits[i] = Hit{
			DocumentID: docID,
			ChunkIndex: chunkIdx,
			Page:       pageOf(h.Metadata),
			Text:       h.Text,
			Similarity: 1 - h.Distance,
			Distance:   h.Distance,
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })

	e.chunksCache.Add(chunksKey, hits)
	e.metrics().IncCounter("query_cache_misses_total", map[string]string{"cache": "chunks"})
	return hits, nil
}

// ClearCache empties both LRU caches (§4.8 "cache invalidation").
func (e *Engine) ClearCache() {
	e.contextCache.Purge()
	e.chunksCache.Purge()
}

func fingerprint(query string, topK, maxContextChars int, filter vectorstore.Filter) string {
	raw := query + "|" + strconv.Itoa(topK) + "|" + strconv.Itoa(maxContextChars)
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw += fmt.Sprintf("|%s=%v", k, filter[k])
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

func splitCompositeID(id string, md vectorstore.Metadata) (string, int) {
	if docID, ok := md["document_id"].(string); ok {
		if idx, ok := chunkIndexFrom(md); ok {
			return docID, idx
		}
	}
	at := strings.LastIndex(id, "_")
	if at < 0 {
		return id, 0
	}
	idx, err := strconv.Atoi(id[at+1:])
	if err != nil {
		return id, 0
	}
	return id[:at], idx
}

func chunkIndexFrom(md vectorstore.Metadata) (int, bool) {
	switch v := md["chunk_index"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func pageOf(md vectorstore.Metadata) int {
	switch v := md["page_number"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
