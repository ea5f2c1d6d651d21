package pipeline

import (
	"context"
	"math"
	"sort"

	"edulens/core"
	"edulens/storage"
)

// CosineSim compares two vectors over their common prefix. The epsilon
// in the denominator keeps zero vectors from dividing by zero.
func CosineSim(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + 1e-9)
}

// Embedder is the slice of the provider manager retrieval needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
}

// Retriever answers semantic and time-range searches over a video's
// index. Scoring always runs in-memory over the loaded index so behavior
// is identical across storage backends.
type Retriever struct {
	store    storage.IndexStore
	embedder Embedder
}

func NewRetriever(store storage.IndexStore, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// SemanticSearch embeds the query and returns the topK most similar
// chunks, highest score first. A missing index yields an empty result.
func (r *Retriever) SemanticSearch(ctx context.Context, videoID, query string, topK int) ([]core.SourceChunk, error) {
	idx, ok, err := r.store.LoadIndex(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []core.SourceChunk{}, nil
	}
	qv := r.embedder.Embed(ctx, []string{query})[0]

	hits := make([]core.SourceChunk, 0, len(idx.Vectors))
	for _, rec := range idx.Vectors {
		hits = append(hits, core.SourceChunk{
			ChunkID: rec.ChunkID,
			Score:   CosineSim(rec.Vector, qv),
			Start:   rec.Start,
			End:     rec.End,
			Excerpt: rec.Excerpt,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// TimeRangeSearch returns chunks intersecting [start, end), scored by
// overlap length in seconds. Ties break on ascending start so results
// read in timeline order.
func (r *Retriever) TimeRangeSearch(ctx context.Context, videoID string, start, end float64, topK int) ([]core.SourceChunk, error) {
	idx, ok, err := r.store.LoadIndex(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []core.SourceChunk{}, nil
	}

	hits := []core.SourceChunk{}
	for _, rec := range idx.Vectors {
		if rec.End <= start || rec.Start >= end {
			continue
		}
		overlap := math.Min(rec.End, end) - math.Max(rec.Start, start)
		hits = append(hits, core.SourceChunk{
			ChunkID: rec.ChunkID,
			Score:   overlap,
			Start:   rec.Start,
			End:     rec.End,
			Excerpt: rec.Excerpt,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Start < hits[j].Start
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
