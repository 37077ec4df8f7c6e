package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/sitekb/internal/models"
	"github.com/xhad/sitekb/internal/types"
)

type KnowledgeStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
	// Embedder, when set, fills the embedding column from each question.
	Embedder types.Embedder
}

var _ types.RecordStore = (*KnowledgeStore)(nil)

// KnowledgeStore loads knowledge-base records into Postgres.
type KnowledgeStore struct {
	config KnowledgeStoreConfig
	table  string
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config KnowledgeStoreConfig) (*KnowledgeStore, error) {
	if config.TableName == "" {
		config.TableName = "knowledge_base"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ks := &KnowledgeStore{
		config: config,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
		pool:   pool,
	}

	if err := ks.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ks, nil
}

func (ks *KnowledgeStore) initialize(ctx context.Context) error {
	_, err := ks.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			category TEXT,
			source TEXT,
			source_url TEXT,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ks.table, ks.config.VectorDim)

	if _, err = ks.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	indexName := pgx.Identifier{ks.config.TableName + "_embedding_idx"}.Sanitize()
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		indexName, ks.table)

	if _, err = ks.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Import inserts records in batches inside one transaction. With replace,
// the table is emptied first. It returns the number of rows inserted.
func (ks *KnowledgeStore) Import(ctx context.Context, records []models.Record, replace bool) (int, error) {
	tx, err := ks.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if replace {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+ks.table); err != nil {
			return 0, fmt.Errorf("failed to truncate table: %w", err)
		}
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (question, answer, category, source, source_url, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ks.table)

	inserted := 0
	for start := 0; start < len(records); start += ks.config.BatchSize {
		end := min(start+ks.config.BatchSize, len(records))
		chunk := records[start:end]

		vectors, err := ks.embed(ctx, chunk)
		if err != nil {
			return 0, err
		}

		batch := &pgx.Batch{}
		for i, r := range chunk {
			var embedding any
			if vectors != nil {
				embedding = pgvector.NewVector(vectors[i])
			}
			batch.Queue(stmt,
				sanitizeUTF8(r.Question),
				sanitizeUTF8(r.Answer),
				sanitizeUTF8(r.Category),
				sanitizeUTF8(r.Source),
				sanitizeUTF8(r.SourceURL),
				embedding,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to insert records %d-%d: %w", start+1, end, err)
		}
		inserted += len(chunk)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

func (ks *KnowledgeStore) embed(ctx context.Context, records []models.Record) ([][]float32, error) {
	if ks.config.Embedder == nil {
		return nil, nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = sanitizeUTF8(r.Question)
	}
	vectors, err := ks.config.Embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	for i, v := range vectors {
		if len(v) != ks.config.VectorDim {
			return nil, fmt.Errorf("embedding %d has %d dimensions, table expects %d", i, len(v), ks.config.VectorDim)
		}
	}
	return vectors, nil
}

// Count returns the number of rows in the table.
func (ks *KnowledgeStore) Count(ctx context.Context) (int, error) {
	var n int
	err := ks.pool.QueryRow(ctx, "SELECT count(*) FROM "+ks.table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// Search returns the records whose question embedding is nearest to the
// given vector.
func (ks *KnowledgeStore) Search(ctx context.Context, embedding []float32, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`
		SELECT question, answer, coalesce(category, ''), coalesce(source, ''), coalesce(source_url, '')
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`,
		ks.table)

	rows, err := ks.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Question, &r.Answer, &r.Category, &r.Source, &r.SourceURL); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ks *KnowledgeStore) Close() {
	if ks.pool != nil {
		ks.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
