// Package ingest implements the Ingestion Pipeline (C6): the staged
// transform from raw bytes to persisted chunks and embeddings, with
// transactional status semantics and cleanup on failure (§4.6).
//
// Grounded on manifold's internal/rag/service.Service.Ingest for the
// per-stage timing/metrics shape (one histogram observation per stage,
// one counter per unit of work), rewritten against this system's
// parse->normalize->chunk->persist->embed->index stages instead of the
// teacher's preprocess->idempotency->search->embedding->graph stages.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/intelligencedev/ragcore/internal/chunker"
	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/model"
	"github.com/intelligencedev/ragcore/internal/normalizer"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/parser"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

// MaxUploadBytes is the hard limit on ingested file size (§6).
const MaxUploadBytes = 50 * 1024 * 1024

var extToFileType = map[string]model.FileType{
	".pdf":  model.FileTypePDF,
	".docx": model.FileTypeDOCX,
	".doc":  model.FileTypeDOCX,
	".txt":  model.FileTypeTXT,
	".html": model.FileTypeHTML,
	".htm":  model.FileTypeHTML,
}

// ErrInvalidInput covers rejected file extension or size (§7).
type ErrInvalidInput struct{ Reason string }

func (e ErrInvalidInput) Error() string { return "ingest: invalid input: " + e.Reason }

// Request is one ingestion call's input.
type Request struct {
	Data     []byte
	Filename string
	Owner    string
}

// Result mirrors the stats an HTTP caller needs after a successful ingest.
type Result struct {
	DocumentID      uuid.UUID
	Filename        string
	Status          model.Status
	TotalPages      int
	TotalChunks     int
	TotalCharacters int
}

// Options configures the chunker and embedding batch size for a pipeline.
type Options struct {
	Chunk             chunker.Options
	DefaultEmbedBatch int
}

// Pipeline wires the Chunk Store, Vector Store, and Embedder into the
// ingest operation. A Pipeline is safe for concurrent use across
// independent documents (§5: "no ordering" guarantee across documents).
type Pipeline struct {
	Store      store.Store
	Vectors    vectorstore.Store
	Collection string
	Embedder   embedder.Embedder
	Options    Options

	Log     obs.Logger
	Metrics obs.Metrics
	Clock   obs.Clock
}

func (p *Pipeline) logger() obs.Logger {
	if p.Log != nil {
		return p.Log
	}
	return obs.NoopLogger{}
}

func (p *Pipeline) metrics() obs.Metrics {
	if p.Metrics != nil {
		return p.Metrics
	}
	return obs.NoopMetrics{}
}

func (p *Pipeline) clock() obs.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return obs.SystemClock{}
}

// Ingest runs the full parse->normalize->chunk->persist->embed->index
// pipeline for one uploaded file (§4.6).
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	fileType, err := validate(req)
	if err != nil {
		return Result{}, err
	}

	doc, err := p.Store.CreateDocument(ctx, req.Filename, fileType, int64(len(req.Data)), req.Owner)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: create document: %w", err)
	}
	p.metrics().IncCounter("ingestion_docs_total", map[string]string{"file_type": string(fileType)})

	result, err := p.runStages(ctx, doc, req, fileType)
	if err != nil {
		p.fail(ctx, doc.ID, err)
		return Result{}, err
	}
	return result, nil
}

// fail advances the document to StatusError and best-effort deletes any
// vector-store entries already written for it (§4.6 failure handling).
func (p *Pipeline) fail(ctx context.Context, docID uuid.UUID, cause error) {
	if err := p.Store.MarkError(ctx, docID, cause.Error()); err != nil {
		p.logger().Error("ingest: failed to mark document error", map[string]any{"document_id": docID.String(), "error": err.Error()})
	}
	if p.Vectors != nil {
		if err := p.Vectors.DeleteWhere(ctx, p.Collection, vectorstore.Filter{"document_id": docID.String()}); err != nil {
			p.logger().Error("ingest: best-effort vector cleanup failed", map[string]any{"document_id": docID.String(), "error": err.Error()})
		}
	}
	p.metrics().IncCounter("ingestion_failures_total", map[string]string{})
}

func (p *Pipeline) runStages(ctx context.Context, doc model.Document, req Request, fileType model.FileType) (Result, error) {
	stage := func(name string, fn func() error) error {
		t0 := p.clock().Now()
		err := fn()
		p.metrics().ObserveHistogram("ingestion_stage_ms", obs.MillisSince(p.clock(), t0), map[string]string{"stage": name})
		return err
	}

	var parsed parser.Result
	if err := stage("parse", func() error {
		pr, err := parser.ForType(fileType)
		if err != nil {
			return err
		}
		parsed, err = pr.Parse(ctx, req.Data)
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("parse failed: %w", err)
	}

	var normalized string
	_ = stage("normalize", func() error {
		normalized = normalizer.Normalize(parsed.Text)
		return nil
	})
	if normalized == "" {
		return Result{}, fmt.Errorf("empty document")
	}

	var chunks []chunker.Window
	_ = stage("chunk", func() error {
		chunks = chunker.Chunk(normalized, p.Options.Chunk, toChunkerPages(parsed.Pages))
		return nil
	})
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("no chunks")
	}
	p.metrics().IncCounter("ingestion_chunks_total", map[string]string{})

	modelChunks := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		modelChunks[i] = model.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			ChunkIndex: c.ChunkIndex,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			PageNumber: c.PageNumber,
			Text:       c.Text,
		}
	}

	if err := stage("persist", func() error {
		return p.Store.PersistChunks(ctx, doc.ID, modelChunks, countPages(parsed.Pages), len(normalized))
	}); err != nil {
		return Result{}, fmt.Errorf("persist chunks: %w", err)
	}

	texts := make([]string, len(modelChunks))
	for i, c := range modelChunks {
		texts[i] = c.Text
	}
	var vectors [][]float32
	if err := stage("embed", func() error {
		var err error
		vectors, err = p.Embedder.Embed(ctx, texts, p.defaultBatch())
		return err
	}); err != nil {
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}

	if err := stage("index", func() error {
		return p.upsert(ctx, doc.ID, modelChunks, vectors)
	}); err != nil {
		return Result{}, fmt.Errorf("upsert vectors: %w", err)
	}

	return Result{
		DocumentID:      doc.ID,
		Filename:        req.Filename,
		Status:          model.StatusIndexed,
		TotalPages:      countPages(parsed.Pages),
		TotalChunks:     len(modelChunks),
		TotalCharacters: len(normalized),
	}, nil
}

func (p *Pipeline) defaultBatch() int {
	if p.Options.DefaultEmbedBatch > 0 {
		return p.Options.DefaultEmbedBatch
	}
	return 0
}

func (p *Pipeline) upsert(ctx context.Context, docID uuid.UUID, chunks []model.Chunk, vectors [][]float32) error {
	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	metas := make([]vectorstore.Metadata, len(chunks))
	for i, c := range chunks {
		ids[i] = c.CompositeID()
		texts[i] = c.Text
		md := vectorstore.Metadata{
			"document_id":  docID.String(),
			"chunk_index":  c.ChunkIndex,
			"chunk_uuid":   c.ID.String(),
			"start_char":   c.StartChar,
			"end_char":     c.EndChar,
			"content_hash": model.ContentHash(c.Text),
		}
		if c.PageNumber > 0 {
			md["page_number"] = c.PageNumber
		}
		metas[i] = md
	}
	return p.Vectors.Upsert(ctx, p.Collection, ids, vectors, texts, metas)
}

func validate(req Request) (model.FileType, error) {
	ext := strings.ToLower(filepath.Ext(req.Filename))
	fileType, ok := extToFileType[ext]
	if !ok {
		return "", ErrInvalidInput{Reason: fmt.Sprintf("unsupported file extension %q", ext)}
	}
	if int64(len(req.Data)) > MaxUploadBytes {
		return "", ErrInvalidInput{Reason: "file exceeds 50 MiB limit"}
	}
	return fileType, nil
}

func toChunkerPages(pages []parser.Page) []chunker.Page {
	if len(pages) == 0 {
		return nil
	}
	out := make([]chunker.Page, len(pages))
	for i, p := range pages {
		out[i] = chunker.Page{Text: p.Text, Number: p.Number}
	}
	return out
}

func countPages(pages []parser.Page) int {
	return len(pages)
}
