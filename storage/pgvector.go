package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"edulens/config"
	"edulens/core"
)

// PgVectorStore persists indexes in Postgres with the pgvector extension.
// The vector column is dimension-less because the embedding backend (and
// with it the vector width) can change between runs.
type PgVectorStore struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

func NewPgVectorStore(cfg *config.Config) (*PgVectorStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PgVectorStore{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS video_chunks (
			id SERIAL PRIMARY KEY,
			video_id VARCHAR(255) NOT NULL,
			chunk_id VARCHAR(255) NOT NULL,
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			excerpt TEXT NOT NULL,
			embedding vector,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(video_id, chunk_id)
		);
		CREATE INDEX IF NOT EXISTS idx_video_chunks_video ON video_chunks (video_id);
	`
	if _, err := s.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create video_chunks table: %w", err)
	}
	return nil
}

// SaveIndex replaces the video's rows in one transaction.
func (s *PgVectorStore) SaveIndex(ctx context.Context, idx *core.VideoIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM video_chunks WHERE video_id = $1", idx.VideoID); err != nil {
		return fmt.Errorf("clear old index: %w", err)
	}
	const stmt = `
		INSERT INTO video_chunks (video_id, chunk_id, start_time, end_time, excerpt, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, rec := range idx.Vectors {
		_, err := tx.Exec(ctx, stmt,
			idx.VideoID, rec.ChunkID, rec.Start, rec.End, rec.Excerpt,
			pgvector.NewVector(rec.Vector), idx.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", rec.ChunkID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PgVectorStore) LoadIndex(ctx context.Context, videoID string) (*core.VideoIndex, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT chunk_id, start_time, end_time, excerpt, embedding, created_at
		FROM video_chunks WHERE video_id = $1 ORDER BY start_time ASC
	`, videoID)
	if err != nil {
		return nil, false, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	idx := &core.VideoIndex{VideoID: videoID}
	for rows.Next() {
		var rec core.EmbeddingRecord
		var vec pgvector.Vector
		var createdAt time.Time
		if err := rows.Scan(&rec.ChunkID, &rec.Start, &rec.End, &rec.Excerpt, &vec, &createdAt); err != nil {
			return nil, false, fmt.Errorf("scan chunk: %w", err)
		}
		rec.Vector = vec.Slice()
		idx.Vectors = append(idx.Vectors, rec)
		idx.CreatedAt = createdAt
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(idx.Vectors) == 0 {
		return nil, false, nil
	}
	return idx, true, nil
}

func (s *PgVectorStore) DeleteIndex(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(ctx, "DELETE FROM video_chunks WHERE video_id = $1", videoID)
	return err
}

func (s *PgVectorStore) Close() error {
	return s.conn.Close(context.Background())
}
