package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/intelligencedev/ragcore/internal/model"
)

// PostgresStore is a Store backed by pgx, following manifold's
// pool.OpenPool/pgxpool usage pattern.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres dials Postgres at dsn and bootstraps the documents/chunks
// schema if it does not already exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			uploaded_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			total_pages INT NOT NULL DEFAULT 0,
			total_chunks INT NOT NULL DEFAULT 0,
			total_characters INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS documents_owner_idx ON documents(owner)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			start_char INT NOT NULL,
			end_char INT NOT NULL,
			page_number INT NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			token_estimate INT NOT NULL DEFAULT 0,
			UNIQUE(document_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id, chunk_index)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: bootstrap schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// Ping checks connectivity to Postgres, following the DB health check in
// the original ingestion service's health route.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, filename string, fileType model.FileType, sizeBytes int64, owner string) (model.Document, error) {
	doc := model.Document{
		ID:         uuid.New(),
		Filename:   filename,
		FileType:   fileType,
		SizeBytes:  sizeBytes,
		Owner:      owner,
		UploadedAt: time.Now().UTC(),
		Status:     model.StatusProcessing,
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, file_type, size_bytes, owner, uploaded_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID.String(), doc.Filename, string(doc.FileType), doc.SizeBytes, doc.Owner, doc.UploadedAt, string(doc.Status))
	if err != nil {
		return model.Document{}, fmt.Errorf("store: create document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status=$1, error_message=$2 WHERE id=$3`,
		string(model.StatusError), message, id.String())
	if err != nil {
		return fmt.Errorf("store: mark error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) PersistChunks(ctx context.Context, documentID uuid.UUID, chunks []model.Chunk, totalPages, totalCharacters int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, document_id, chunk_index, start_char, end_char, page_number, text, token_estimate)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID.String(), documentID.String(), c.ChunkIndex, c.StartChar, c.EndChar, c.PageNumber, c.Text, c.TokenEstimate)
	}
	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("store: insert chunk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("store: close batch: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE documents SET status=$1, total_pages=$2, total_chunks=$3, total_characters=$4
		WHERE id=$5`,
		string(model.StatusIndexed), totalPages, len(chunks), totalCharacters, documentID.String())
	if err != nil {
		return fmt.Errorf("store: update document counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, filename, file_type, size_bytes, owner, uploaded_at, status, error_message,
		       total_pages, total_chunks, total_characters
		FROM documents WHERE id=$1`, id.String())
	return scanDocument(row)
}

func scanDocument(row pgx.Row) (model.Document, error) {
	var d model.Document
	var idStr, fileType, status string
	if err := row.Scan(&idStr, &d.Filename, &fileType, &d.SizeBytes, &d.Owner, &d.UploadedAt,
		&status, &d.ErrorMessage, &d.TotalPages, &d.TotalChunks, &d.TotalCharacters); err != nil {
		if err == pgx.ErrNoRows {
			return model.Document{}, ErrNotFound
		}
		return model.Document{}, fmt.Errorf("store: scan document: %w", err)
	}
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return model.Document{}, fmt.Errorf("store: parse document id: %w", err)
	}
	d.ID = parsed
	d.FileType = model.FileType(fileType)
	d.Status = model.Status(status)
	return d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, skip, limit int, owner string) ([]model.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, filename, file_type, size_bytes, owner, uploaded_at, status, error_message,
		       total_pages, total_chunks, total_characters
		FROM documents`
	args := []any{}
	if owner != "" {
		query += ` WHERE owner=$1`
		args = append(args, owner)
	}
	query += fmt.Sprintf(` ORDER BY uploaded_at DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, skip, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListChunksByDocument(ctx context.Context, documentID uuid.UUID, ordered bool) ([]model.Chunk, error) {
	query := `
		SELECT id, document_id, chunk_index, start_char, end_char, page_number, text, token_estimate
		FROM chunks WHERE document_id=$1`
	if ordered {
		query += ` ORDER BY chunk_index ASC`
	}
	rows, err := s.pool.Query(ctx, query, documentID.String())
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunk(row pgx.Row) (model.Chunk, error) {
	var c model.Chunk
	var idStr, docIDStr string
	if err := row.Scan(&idStr, &docIDStr, &c.ChunkIndex, &c.StartChar, &c.EndChar, &c.PageNumber, &c.Text, &c.TokenEstimate); err != nil {
		if err == pgx.ErrNoRows {
			return model.Chunk{}, ErrNotFound
		}
		return model.Chunk{}, fmt.Errorf("store: scan chunk: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Chunk{}, fmt.Errorf("store: parse chunk id: %w", err)
	}
	docID, err := uuid.Parse(docIDStr)
	if err != nil {
		return model.Chunk{}, fmt.Errorf("store: parse document id: %w", err)
	}
	c.ID = id
	c.DocumentID = docID
	return c, nil
}

func (s *PostgresStore) GetChunk(ctx context.Context, documentID uuid.UUID, chunkIndex int) (model.Chunk, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, document_id, chunk_index, start_char, end_char, page_number, text, token_estimate
		FROM chunks WHERE document_id=$1 AND chunk_index=$2`, documentID.String(), chunkIndex)
	return scanChunk(row)
}

func (s *PostgresStore) DeleteDocumentCascade(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
