package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"edulens/config"
	"edulens/core"
)

const milvusDim = 768

// MilvusStore keeps indexes in a Milvus collection. Milvus requires a
// fixed vector width, so vectors are padded or trimmed to milvusDim on
// write; the bag-of-words fallback (512 wide) pads cleanly.
type MilvusStore struct {
	mu   sync.Mutex
	mc   client.Client
	coll string
}

func NewMilvusStore(cfg *config.Config) (*MilvusStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := client.NewClient(ctx, client.Config{Address: cfg.MilvusAddr})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	s := &MilvusStore{mc: mc, coll: cfg.MilvusCollection}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		mc.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("video_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("chunk_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(160))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("excerpt").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(milvusDim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusStore) SaveIndex(ctx context.Context, idx *core.VideoIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr := fmt.Sprintf("video_id == \"%s\"", idx.VideoID)
	if err := s.mc.Delete(ctx, s.coll, "", expr); err != nil {
		return fmt.Errorf("clear old index: %w", err)
	}
	if len(idx.Vectors) == 0 {
		return nil
	}

	videoIDs := make([]string, 0, len(idx.Vectors))
	chunkIDs := make([]string, 0, len(idx.Vectors))
	starts := make([]float64, 0, len(idx.Vectors))
	ends := make([]float64, 0, len(idx.Vectors))
	excerpts := make([]string, 0, len(idx.Vectors))
	vectors := make([][]float32, 0, len(idx.Vectors))
	for _, rec := range idx.Vectors {
		videoIDs = append(videoIDs, idx.VideoID)
		chunkIDs = append(chunkIDs, rec.ChunkID)
		starts = append(starts, rec.Start)
		ends = append(ends, rec.End)
		excerpts = append(excerpts, rec.Excerpt)
		vectors = append(vectors, fitDim(rec.Vector, milvusDim))
	}

	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnVarChar("excerpt", excerpts),
		entity.NewColumnFloatVector("vector", milvusDim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return s.mc.Flush(ctx, s.coll, false)
}

func (s *MilvusStore) LoadIndex(ctx context.Context, videoID string) (*core.VideoIndex, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr := fmt.Sprintf("video_id == \"%s\"", videoID)
	res, err := s.mc.Query(ctx, s.coll, nil, expr,
		[]string{"chunk_id", "start", "end", "excerpt", "vector"})
	if err != nil {
		return nil, false, fmt.Errorf("query index: %w", err)
	}

	cols := map[string]entity.Column{}
	for _, c := range res {
		cols[c.Name()] = c
	}
	chunkIDs, _ := cols["chunk_id"].(*entity.ColumnVarChar)
	starts, _ := cols["start"].(*entity.ColumnDouble)
	ends, _ := cols["end"].(*entity.ColumnDouble)
	excerpts, _ := cols["excerpt"].(*entity.ColumnVarChar)
	vectors, _ := cols["vector"].(*entity.ColumnFloatVector)
	if chunkIDs == nil || chunkIDs.Len() == 0 {
		return nil, false, nil
	}

	idx := &core.VideoIndex{VideoID: videoID, CreatedAt: time.Now()}
	for i := 0; i < chunkIDs.Len(); i++ {
		rec := core.EmbeddingRecord{ChunkID: chunkIDs.Data()[i]}
		if starts != nil && i < len(starts.Data()) {
			rec.Start = starts.Data()[i]
		}
		if ends != nil && i < len(ends.Data()) {
			rec.End = ends.Data()[i]
		}
		if excerpts != nil && i < len(excerpts.Data()) {
			rec.Excerpt = excerpts.Data()[i]
		}
		if vectors != nil && i < len(vectors.Data()) {
			rec.Vector = vectors.Data()[i]
		}
		idx.Vectors = append(idx.Vectors, rec)
	}
	return idx, true, nil
}

func (s *MilvusStore) DeleteIndex(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expr := fmt.Sprintf("video_id == \"%s\"", videoID)
	return s.mc.Delete(ctx, s.coll, "", expr)
}

func (s *MilvusStore) Close() error {
	return s.mc.Close()
}

func fitDim(v []float32, dim int) []float32 {
	if len(v) == dim {
		return v
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}
