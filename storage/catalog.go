package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"edulens/core"
)

// Catalog records which videos the service knows about. It backs the
// library listing and nothing else; transcripts and indexes live in
// their own stores.
type Catalog struct {
	db *sql.DB
}

func OpenCatalog(dataDir string) (*Catalog, error) {
	path := filepath.Join(dataDir, "catalog.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS videos (
			video_id   TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			url        TEXT NOT NULL DEFAULT '',
			duration   REAL NOT NULL DEFAULT 0,
			language   TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create videos table: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Upsert inserts or refreshes a catalog row, preserving the original
// created_at on update.
func (c *Catalog) Upsert(meta core.VideoMeta) error {
	now := time.Now()
	_, err := c.db.Exec(`
		INSERT INTO videos (video_id, title, url, duration, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			duration = excluded.duration,
			language = excluded.language,
			updated_at = excluded.updated_at
	`, meta.VideoID, meta.Title, meta.URL, meta.Duration, meta.Language, now, now)
	return err
}

func (c *Catalog) Get(videoID string) (core.VideoMeta, bool, error) {
	var m core.VideoMeta
	err := c.db.QueryRow(`
		SELECT video_id, title, url, duration, language, created_at, updated_at
		FROM videos WHERE video_id = ?
	`, videoID).Scan(&m.VideoID, &m.Title, &m.URL, &m.Duration, &m.Language, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.VideoMeta{}, false, nil
	}
	if err != nil {
		return core.VideoMeta{}, false, err
	}
	return m, true, nil
}

// List returns all videos, newest first.
func (c *Catalog) List() ([]core.VideoMeta, error) {
	rows, err := c.db.Query(`
		SELECT video_id, title, url, duration, language, created_at, updated_at
		FROM videos ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.VideoMeta{}
	for rows.Next() {
		var m core.VideoMeta
		if err := rows.Scan(&m.VideoID, &m.Title, &m.URL, &m.Duration, &m.Language, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *Catalog) Delete(videoID string) error {
	_, err := c.db.Exec("DELETE FROM videos WHERE video_id = ?", videoID)
	return err
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
