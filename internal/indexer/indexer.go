// Package indexer implements the Indexer (C7): re-embedding and indexing
// already-chunked documents with OOM-adaptive batch sizing and dedup by
// composite id (§4.7).
//
// Grounded on manifold's internal/rag/ingest stage-timing/metrics style
// (one histogram per stage, counters per unit of work), with the batch
// backoff loop itself built fresh to satisfy spec.md's halving-with-floor
// requirement, which the teacher's ingestion has no equivalent for.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/model"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

// BatchOptions configures adaptive batch sizing (§4.7).
type BatchOptions struct {
	Initial int
	Min     int
	Max     int
}

func (o BatchOptions) normalized() BatchOptions {
	if o.Min <= 0 {
		o.Min = 2
	}
	if o.Max <= 0 {
		o.Max = 8
	}
	if o.Initial <= 0 {
		o.Initial = 6
	}
	if o.Initial < o.Min {
		o.Initial = o.Min
	}
	if o.Initial > o.Max {
		o.Initial = o.Max
	}
	return o
}

// BatchError records a failed batch: after a non-OOM error the batch is
// skipped and processing continues; after an OOM at the minimum batch size
// no further batches are embedded (§4.7).
type BatchError struct {
	StartIndex int
	Err        error
}

// Report summarizes one indexing run (§4.7, HTTP surface §6).
type Report struct {
	ChunksIndexed        int
	TotalChunks          int
	TotalTimeSeconds     float64
	StageTimingsMS       map[string]float64
	PeakMemoryMB         float64
	OOMRetries           int
	Errors               []BatchError
	FinalCollectionCount int
}

// Indexer wires the Chunk Store, Embedder, and Vector Store together.
type Indexer struct {
	Store      store.Store
	Embedder   embedder.Embedder
	Vectors    vectorstore.Store
	Collection string
	Batch      BatchOptions

	Log     obs.Logger
	Metrics obs.Metrics
	Clock   obs.Clock
}

func (idx *Indexer) logger() obs.Logger {
	if idx.Log != nil {
		return idx.Log
	}
	return obs.NoopLogger{}
}

func (idx *Indexer) metrics() obs.Metrics {
	if idx.Metrics != nil {
		return idx.Metrics
	}
	return obs.NoopMetrics{}
}

func (idx *Indexer) clock() obs.Clock {
	if idx.Clock != nil {
		return idx.Clock
	}
	return obs.SystemClock{}
}

// IndexDocumentChunks re-embeds and indexes a document's already-persisted
// chunks (§4.7). When skipExisting is true, chunks whose composite id is
// already present in the vector store are excluded before embedding.
func (idx *Indexer) IndexDocumentChunks(ctx context.Context, documentID uuid.UUID, skipExisting bool) (Report, error) {
	start := idx.clock().Now()

	doc, err := idx.Store.GetDocument(ctx, documentID)
	if err != nil {
		return Report{}, fmt.Errorf("indexer: %w", err)
	}
	if doc.TotalChunks == 0 {
		return Report{}, fmt.Errorf("indexer: document %s has no chunks", documentID)
	}

	chunks, err := idx.Store.ListChunksByDocument(ctx, documentID, true)
	if err != nil {
		return Report{}, fmt.Errorf("indexer: list chunks: %w", err)
	}

	if skipExisting {
		chunks, err = idx.excludeExisting(ctx, documentID, chunks)
		if err != nil {
			return Report{}, fmt.Errorf("indexer: dedup: %w", err)
		}
	}

	report := Report{TotalChunks: len(chunks), StageTimingsMS: map[string]float64{}}
	if len(chunks) == 0 {
		report.FinalCollectionCount, _ = idx.Vectors.Count(ctx, idx.Collection)
		report.TotalTimeSeconds = idx.clock().Now().Sub(start).Seconds()
		return report, nil
	}

	batchSize := idx.Batch.normalized().Initial
	minBatch := idx.Batch.normalized().Min

	var ids []string
	var texts []string
	var metas []vectorstore.Metadata
	var vectors [][]float32

	for offset := 0; offset < len(chunks); {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		batchStart := idx.clock().Now()
		peakBefore := peakMemoryMB()
		vecs, err := idx.Embedder.Embed(ctx, textsOf(batch), 0)
		if errors.Is(err, embedder.ErrOutOfMemory) {
			if batchSize > minBatch {
				batchSize = halve(batchSize, minBatch)
				report.OOMRetries++
				idx.logger().Info("indexer: OOM, halving batch size", map[string]any{"new_batch_size": batchSize})
				continue // retry the same offset with the smaller batch
			}
			report.Errors = append(report.Errors, BatchError{StartIndex: offset, Err: err})
			break // OOM persists at the minimum batch size: stop batching
		}
		if err != nil {
			report.Errors = append(report.Errors, BatchError{StartIndex: offset, Err: err})
			offset = end
			continue
		}

		for i, c := range batch {
			ids = append(ids, c.CompositeID())
			texts = append(texts, c.Text)
			metas = append(metas, metadataFor(documentID, c))
			vectors = append(vectors, vecs[i])
		}
		report.ChunksIndexed += len(batch)

		peakAfter := peakMemoryMB()
		if peakAfter > report.PeakMemoryMB {
			report.PeakMemoryMB = peakAfter
		}
		if peakBefore > report.PeakMemoryMB {
			report.PeakMemoryMB = peakBefore
		}
		idx.metrics().ObserveHistogram("indexing_batch_ms", obs.MillisSince(idx.clock(), batchStart), map[string]string{})
		offset = end
	}

	if len(ids) > 0 {
		embedStart := idx.clock().Now()
		if err := idx.Vectors.Upsert(ctx, idx.Collection, ids, vectors, texts, metas); err != nil {
			return Report{}, fmt.Errorf("indexer: upsert: %w", err)
		}
		report.StageTimingsMS["upsert"] = obs.MillisSince(idx.clock(), embedStart)
	}

	report.FinalCollectionCount, _ = idx.Vectors.Count(ctx, idx.Collection)
	report.TotalTimeSeconds = idx.clock().Now().Sub(start).Seconds()
	idx.metrics().ObserveHistogram("indexing_total_seconds", report.TotalTimeSeconds, map[string]string{})
	return report, nil
}

// excludeExisting queries the vector store for all ids already present
// under this document and filters them out of chunks (§4.7 dedup).
func (idx *Indexer) excludeExisting(ctx context.Context, documentID uuid.UUID, chunks []model.Chunk) ([]model.Chunk, error) {
	entries, err := idx.Vectors.GetWhere(ctx, idx.Collection, vectorstore.Filter{"document_id": documentID.String()})
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.ID] = true
	}
	out := chunks[:0:0]
	for _, c := range chunks {
		if !existing[c.CompositeID()] {
			out = append(out, c)
		}
	}
	return out, nil
}

func metadataFor(documentID uuid.UUID, c model.Chunk) vectorstore.Metadata {
	md := vectorstore.Metadata{
		"document_id":  documentID.String(),
		"chunk_index":  c.ChunkIndex,
		"chunk_uuid":   c.ID.String(),
		"start_char":   c.StartChar,
		"end_char":     c.EndChar,
		"content_hash": model.ContentHash(c.Text),
	}
	if c.PageNumber > 0 {
		md["page_number"] = c.PageNumber
	}
	return md
}

func textsOf(chunks []model.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// halve reduces batchSize by half, floored at min, per §4.7/§5: OOM
// recovery never increases batch size again within one indexing run.
func halve(batchSize, min int) int {
	next := batchSize / 2
	if next < min {
		next = min
	}
	return next
}

func peakMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Sys) / (1024 * 1024)
}
