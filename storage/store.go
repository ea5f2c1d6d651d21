package storage

import (
	"context"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
)

// IndexStore persists per-video embedding indexes. Retrieval always runs
// in-memory over a loaded index, so every backend only needs whole-index
// save and load.
type IndexStore interface {
	SaveIndex(ctx context.Context, idx *core.VideoIndex) error
	// LoadIndex returns (nil, false, nil) when the video has no index.
	LoadIndex(ctx context.Context, videoID string) (*core.VideoIndex, bool, error)
	DeleteIndex(ctx context.Context, videoID string) error
	Close() error
}

// NewIndexStore picks the backend from config. Backends that fail to
// connect degrade to the file store with a warning rather than aborting
// startup.
func NewIndexStore(cfg *config.Config) IndexStore {
	switch cfg.Store {
	case "pgvector":
		s, err := NewPgVectorStore(cfg)
		if err != nil {
			logger.L().Warnf("pgvector store unavailable, using file store: %v", err)
			return NewFileIndexStore(cfg.DataDir)
		}
		return s
	case "milvus":
		s, err := NewMilvusStore(cfg)
		if err != nil {
			logger.L().Warnf("milvus store unavailable, using file store: %v", err)
			return NewFileIndexStore(cfg.DataDir)
		}
		return s
	default:
		return NewFileIndexStore(cfg.DataDir)
	}
}
