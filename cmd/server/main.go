// Command server starts the retrieval-augmented QA HTTP gateway: it wires
// the chunk store, vector store, embedder, LLM provider, ingestion
// pipeline, indexer, and query engine into one echo server and serves
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/intelligencedev/ragcore/internal/chunker"
	"github.com/intelligencedev/ragcore/internal/config"
	"github.com/intelligencedev/ragcore/internal/embedder"
	"github.com/intelligencedev/ragcore/internal/httpapi"
	"github.com/intelligencedev/ragcore/internal/indexer"
	"github.com/intelligencedev/ragcore/internal/ingest"
	"github.com/intelligencedev/ragcore/internal/llm"
	"github.com/intelligencedev/ragcore/internal/observability"
	"github.com/intelligencedev/ragcore/internal/obs"
	"github.com/intelligencedev/ragcore/internal/query"
	"github.com/intelligencedev/ragcore/internal/store"
	"github.com/intelligencedev/ragcore/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	observability.InitLogger(cfg.LogFile, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chunkStore, vectorStore, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	defer closeStores()

	emb := embedder.New(embedder.Config{
		BaseURL:   cfg.EmbeddingBaseURL,
		Path:      cfg.EmbeddingPath,
		Model:     cfg.EmbeddingModel,
		APIKey:    cfg.EmbeddingAPIKey,
		APIHeader: cfg.EmbeddingAPIHeader,
		Dimension: cfg.EmbeddingDim,
	})

	provider, err := llm.New(ctx, cfg)
	if err != nil {
		log.Fatalf("llm provider: %v", err)
	}

	appLog := obs.NewZerologLogger(ctx)
	metrics := obs.NewOtelMetrics("ragcore")

	pipeline := &ingest.Pipeline{
		Store:      chunkStore,
		Vectors:    vectorStore,
		Collection: cfg.CollectionName,
		Embedder:   emb,
		Options: ingest.Options{
			Chunk: chunker.Options{
				ChunkSize:    cfg.ChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
				MinChunkSize: cfg.MinChunkSize,
				MaxChunkSize: cfg.MaxChunkSize,
			},
		},
		Log:     appLog,
		Metrics: metrics,
	}

	idx := &indexer.Indexer{
		Store:      chunkStore,
		Embedder:   emb,
		Vectors:    vectorStore,
		Collection: cfg.CollectionName,
		Batch: indexer.BatchOptions{
			Initial: cfg.InitialBatchSize,
			Min:     cfg.MinBatchSize,
			Max:     cfg.MaxBatchSize,
		},
		Log:     appLog,
		Metrics: metrics,
	}

	eng := query.New(vectorStore, emb, cfg.CollectionName, query.Options{
		CacheCapacity: cfg.ContextCacheSize,
	})
	eng.Log = appLog
	eng.Metrics = metrics

	srv := &httpapi.Server{
		Store:      chunkStore,
		Vectors:    vectorStore,
		Pipeline:   pipeline,
		Indexer:    idx,
		Query:      eng,
		LLM:        provider,
		Embedder:   emb,
		Collection: cfg.CollectionName,
		Log:        appLog,
		Metrics:    metrics,
	}

	e := srv.NewEcho()

	go func() {
		log.Printf("ragcore listening on %s (llm=%s, memory_stores=%v)", cfg.HTTPAddr, cfg.LLMProvider, cfg.UseMemoryStores)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server stopped", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// openStores builds the chunk store and vector store per cfg, preferring
// Postgres/Qdrant but falling back to in-memory implementations when
// cfg.UseMemoryStores is set (local development, demos).
func openStores(ctx context.Context, cfg config.Config) (store.Store, vectorstore.Store, func(), error) {
	if cfg.UseMemoryStores {
		return store.NewMemoryStore(), vectorstore.NewMemoryStore(), func() {}, nil
	}

	pg, err := store.OpenPostgres(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, nil, nil, err
	}

	qd, err := vectorstore.NewQdrantStore(cfg.VectorStoreDSN, cfg.EmbeddingDim)
	if err != nil {
		pg.Close()
		return nil, nil, nil, err
	}
	if err := qd.EnsureCollection(ctx, cfg.CollectionName); err != nil {
		pg.Close()
		return nil, nil, nil, err
	}

	return pg, qd, func() { pg.Close() }, nil
}
