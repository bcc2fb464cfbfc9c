// Package httpapi is the HTTP gateway (§6): an echo/v4 server exposing the
// ingestion, indexing, and query operations over the core packages.
//
// Grounded on manifold's routes.go (echo.Group route registration) and
// internal/httpapi/handlers.go (JSON request/response helpers), rewritten
// from the teacher's prompt/dataset/experiment surface onto
// ingest/index/query.
package httpapi

import (
	"github.com/labstack/echo/v4"

	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/indexer"
	"github.com/intelligencedev/ragcore/internal/ingest"
	"github.com/intelligencedev/ragcore/internal/llm"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/query"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

// Server wires the core components behind the HTTP surface of §6.
type Server struct {
	Store    store.Store
	Vectors  vectorstore.Store
	Pipeline *ingest.Pipeline
	Indexer  *indexer.Indexer
	Query    *query.Engine
	LLM      llm.Provider
	Embedder embedder.Embedder

	Collection string

	Log     obs.Logger
	Metrics obs.Metrics
}

func (s *Server) logger() obs.Logger {
	if s.Log != nil {
		return s.Log
	}
	return obs.NoopLogger{}
}

// NewEcho builds an *echo.Echo with every route from §6 registered under
// s's handlers.
func (s *Server) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	registerRoutes(e, s)
	return e
}

func registerRoutes(e *echo.Echo, s *Server) {
	e.GET("/healthz", s.handleHealthz)
	e.POST("/ingest/upload", s.handleUpload)
	e.GET("/ingest/documents", s.handleListDocuments)
	e.GET("/ingest/document/:id", s.handleGetDocument)
	e.GET("/ingest/document/:id/content", s.handleGetDocumentContent)
	e.GET("/ingest/document/:id/progress", s.handleProgress)
	e.POST("/ingest/index", s.handleIndex)
	e.DELETE("/ingest/document/:id", s.handleDeleteDocument)
	e.POST("/query", s.handleQuery)
	e.POST("/query/clear-cache", s.handleClearCache)
}
