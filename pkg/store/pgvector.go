package store

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/askpdf/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// VectorStore keeps chunk embeddings for live sessions. Rows are keyed by
// document ID and removed when the owning session ends.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "document_chunks"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name: %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 4
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	for _, stmt := range vs.schema() {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// schema returns the DDL run at startup. Every query filters on document_id,
// which the primary key indexes. There is no ivfflat index: it filters after
// the approximate scan and can return fewer than limit rows for a document.
func (vs *VectorStore) schema() []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (document_id, chunk_index)
		)`, vs.config.TableName, vs.config.VectorDim),
	}
}

// Store writes chunks with their embeddings in batches of BatchSize inside a
// single transaction, so a failed batch leaves no rows behind.
func (vs *VectorStore) Store(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	// Begin transaction
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (document_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for i := 0; i < len(chunks); i += vs.config.BatchSize {
		end := i + vs.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := &pgx.Batch{}
		for j := i; j < end; j++ {
			batch.Queue(stmt,
				chunks[j].DocumentID,
				chunks[j].Index,
				sanitizeUTF8(chunks[j].Content),
				pgvector.NewVector(embeddings[j]),
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query returns the chunks of one document closest to embedding, nearest first.
func (vs *VectorStore) Query(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.Chunk, error) {
	if limit == 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT document_id, chunk_index, content
		FROM %s
		WHERE document_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, documentID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		if err := rows.Scan(&chunk.DocumentID, &chunk.Index, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return chunks, nil
}

// Delete removes every chunk of a document.
func (vs *VectorStore) Delete(ctx context.Context, documentID string) error {
	_, err := vs.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName), documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
