package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"edulens/core"
)

// FileIndexStore keeps one JSON document per video under
// {dataDir}/embeddings. It is the default backend and the fallback when
// a database backend cannot connect.
type FileIndexStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileIndexStore(dataDir string) *FileIndexStore {
	dir := filepath.Join(dataDir, "embeddings")
	os.MkdirAll(dir, 0o755)
	return &FileIndexStore{dir: dir}
}

func (s *FileIndexStore) path(videoID string) string {
	return filepath.Join(s.dir, videoID+".json")
}

func (s *FileIndexStore) SaveIndex(ctx context.Context, idx *core.VideoIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path(idx.VideoID), idx)
}

func (s *FileIndexStore) LoadIndex(ctx context.Context, videoID string) (*core.VideoIndex, bool, error) {
	data, err := os.ReadFile(s.path(videoID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var idx core.VideoIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, false, fmt.Errorf("parse index for %s: %w", videoID, err)
	}
	return &idx, true, nil
}

func (s *FileIndexStore) DeleteIndex(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(videoID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileIndexStore) Close() error { return nil }
