package pipeline

import (
	"context"
	"time"

	"edulens/core"
	"edulens/storage"
)

// Indexer embeds chunks and persists the per-video index. The index is
// written once after the loop so readers never observe a half-built
// document.
type Indexer struct {
	store    storage.IndexStore
	embedder Embedder
}

func NewIndexer(store storage.IndexStore, embedder Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder}
}

const excerptChars = 240

func (ix *Indexer) IndexVideo(ctx context.Context, videoID string, chunks []core.Chunk, progress func(done, total int)) (*core.VideoIndex, error) {
	idx := &core.VideoIndex{
		VideoID:   videoID,
		CreatedAt: time.Now(),
		Vectors:   make([]core.EmbeddingRecord, 0, len(chunks)),
	}
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := ix.embedder.Embed(ctx, []string{c.Text})[0]
		excerpt := clipText(c.Text, excerptChars)
		idx.Vectors = append(idx.Vectors, core.EmbeddingRecord{
			ChunkID: c.ChunkID,
			Start:   c.Start,
			End:     c.End,
			Vector:  vec,
			Excerpt: excerpt,
		})
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}
	if err := ix.store.SaveIndex(ctx, idx); err != nil {
		return nil, err
	}
	return idx, nil
}
