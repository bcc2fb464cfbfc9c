package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/intelligencedev/ragcore/internal/indexer"
	"github.com/intelligencedev/ragcore/internal/ingest"
	"github.com/intelligencedev/ragcore/internal/llm"
	"github.com/intelligencedev/ragcore/internal/model"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/query"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

func respondError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// handleHealthz implements `GET /healthz`: readiness depends on the chunk
// store and embedder both being reachable.
func (s *Server) handleHealthz(c echo.Context) error {
	ctx := c.Request().Context()
	checks := map[string]string{"store": "ok", "embedder": "ok"}
	healthy := true

	if err := s.Store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}
	if s.Embedder != nil {
		if err := s.Embedder.Ping(ctx); err != nil {
			checks["embedder"] = err.Error()
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{"status": map[bool]string{true: "ok", false: "degraded"}[healthy], "checks": checks})
}

// handleUpload implements `POST /ingest/upload` (§6).
func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("missing multipart field \"file\": %w", err))
	}
	if fh.Size > ingest.MaxUploadBytes {
		return respondError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds 50 MiB limit"))
	}

	src, err := fh.Open()
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}

	req := ingest.Request{Data: data, Filename: fh.Filename, Owner: c.FormValue("owner")}
	res, err := s.Pipeline.Ingest(c.Request().Context(), req)
	if err != nil {
		var invalid ingest.ErrInvalidInput
		if errors.As(err, &invalid) {
			return respondError(c, http.StatusBadRequest, err)
		}
		return respondError(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"document_id": res.DocumentID,
		"filename":    res.Filename,
		"status":      res.Status,
		"stats": map[string]int{
			"chunks":     res.TotalChunks,
			"pages":      res.TotalPages,
			"characters": res.TotalCharacters,
		},
	})
}

// handleListDocuments implements `GET /ingest/documents?skip=&limit=`.
func (s *Server) handleListDocuments(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	docs, err := s.Store.ListDocuments(c.Request().Context(), skip, limit, c.QueryParam("owner"))
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument implements `GET /ingest/document/{id}`.
func (s *Server) handleGetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
	}
	doc, err := s.Store.GetDocument(c.Request().Context(), id)
	if err != nil {
		return respondError(c, statusFromStoreError(err), err)
	}
	return c.JSON(http.StatusOK, doc)
}

// handleGetDocumentContent implements
// `GET /ingest/document/{id}/content?chunk_id=`.
func (s *Server) handleGetDocumentContent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
	}

	if raw := c.QueryParam("chunk_id"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid chunk_id: %w", err))
		}
		chunk, err := s.Store.GetChunk(c.Request().Context(), id, idx)
		if err != nil {
			return respondError(c, statusFromStoreError(err), err)
		}
		return c.JSON(http.StatusOK, chunk)
	}

	chunks, err := s.Store.ListChunksByDocument(c.Request().Context(), id, true)
	if err != nil {
		return respondError(c, statusFromStoreError(err), err)
	}
	return c.JSON(http.StatusOK, map[string]any{"chunks": chunks})
}

// handleProgress implements `GET /ingest/document/{id}/progress`, reporting
// a coarse 0/50/100 estimate derived from the document's status since
// individual ingestion stages are not separately persisted.
func (s *Server) handleProgress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
	}
	doc, err := s.Store.GetDocument(c.Request().Context(), id)
	if err != nil {
		return respondError(c, statusFromStoreError(err), err)
	}

	percent := 0
	switch doc.Status {
	case model.StatusProcessing:
		percent = 50
	case model.StatusIndexed:
		percent = 100
	case model.StatusError:
		percent = 0
	}
	return c.JSON(http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
		"percent":     percent,
		"error":       doc.ErrorMessage,
	})
}

// handleClearCache implements `POST /query/clear-cache`, purging the query
// engine's context and chunk caches.
func (s *Server) handleClearCache(c echo.Context) error {
	s.Query.ClearCache()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// handleIndex implements `POST /ingest/index?doc_id=&skip_existing=`.
func (s *Server) handleIndex(c echo.Context) error {
	id, err := uuid.Parse(c.QueryParam("doc_id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid doc_id: %w", err))
	}
	skipExisting := true
	if raw := c.QueryParam("skip_existing"); raw != "" {
		skipExisting, err = strconv.ParseBool(raw)
		if err != nil {
			return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid skip_existing: %w", err))
		}
	}

	report, err := s.Indexer.IndexDocumentChunks(c.Request().Context(), id, skipExisting)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, http.StatusNotFound, err)
		}
		return respondError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, reportDTO(report))
}

// handleDeleteDocument implements `DELETE /ingest/document/{id}`.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
	}
	if err := s.Vectors.DeleteWhere(c.Request().Context(), s.Collection, vectorstore.Filter{"document_id": id.String()}); err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	if err := s.Store.DeleteDocumentCascade(c.Request().Context(), id); err != nil {
		return respondError(c, statusFromStoreError(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

type queryRequest struct {
	Q               string `json:"q"`
	TopK            int    `json:"top_k"`
	MaxContextChars int    `json:"max_context_chars"`
	Owner           string `json:"owner"`
}

// handleQuery implements `POST /query` (§6).
func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if req.TopK == 0 {
		req.TopK = 5
	}
	if req.MaxContextChars == 0 {
		req.MaxContextChars = 4000
	}

	var filter vectorstore.Filter
	if req.Owner != "" {
		filter = vectorstore.Filter{"owner": req.Owner}
	}

	start := s.clock().Now()
	retrievalStart := start
	res, err := s.Query.AnswerContext(c.Request().Context(), req.Q, req.TopK, req.MaxContextChars, filter)
	retrievalLatency := s.clock().Now().Sub(retrievalStart)
	if err != nil {
		var invalid query.ErrInvalidInput
		if errors.As(err, &invalid) {
			return respondError(c, http.StatusBadRequest, err)
		}
		return respondError(c, http.StatusInternalServerError, err)
	}

	llmStart := s.clock().Now()
	genResult, err := s.LLM.Generate(c.Request().Context(), llm.DefaultSystemPrompt, res.Context, req.Q)
	llmLatency := s.clock().Now().Sub(llmStart)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, fmt.Errorf("llm provider: %w", err))
	}
	totalLatency := s.clock().Now().Sub(start)

	return c.JSON(http.StatusOK, map[string]any{
		"answer":    genResult.Answer,
		"citations": citationsDTO(res.Citations),
		"sources":   citationsDTO(res.Citations),
		"metrics": map[string]any{
			"retrieval_latency_ms": retrievalLatency.Milliseconds(),
			"llm_latency_ms":       llmLatency.Milliseconds(),
			"total_latency_ms":     totalLatency.Milliseconds(),
			"context_length":       len(res.Context),
			"chunks_retrieved":     len(res.Citations),
			"tokens_used":          genResult.TokensUsed.Total,
			"model":                genResult.Model,
		},
		"query_id": uuid.New().String(),
	})
}

func (s *Server) clock() obs.Clock {
	return obs.SystemClock{}
}

func statusFromStoreError(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, store.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func citationsDTO(cites []query.Citation) []map[string]any {
	out := make([]map[string]any, len(cites))
	for i, c := range cites {
		entry := map[string]any{
			"document_id": c.DocumentID,
			"chunk_index": c.ChunkIndex,
			"similarity":  c.Similarity,
		}
		if c.Page > 0 {
			entry["page"] = c.Page
		}
		out[i] = entry
	}
	return out
}

func reportDTO(r indexer.Report) map[string]any {
	errs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e.Err.Error()
	}
	return map[string]any{
		"chunks_indexed":         r.ChunksIndexed,
		"total_chunks":           r.TotalChunks,
		"total_time_seconds":     r.TotalTimeSeconds,
		"peak_memory_mb":         r.PeakMemoryMB,
		"final_collection_count": r.FinalCollectionCount,
		"errors":                 errs,
	}
}
