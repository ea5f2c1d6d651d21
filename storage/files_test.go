package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edulens/core"
)

func TestFileIndexStoreRoundTrip(t *testing.T) {
	store := NewFileIndexStore(t.TempDir())
	ctx := context.Background()

	idx := &core.VideoIndex{
		VideoID:   "vid",
		CreatedAt: time.Now(),
		Vectors: []core.EmbeddingRecord{
			{ChunkID: "vid-0-120", Start: 0, End: 120, Vector: []float32{0.25, -0.5}, Excerpt: "hello"},
		},
	}
	if err := store.SaveIndex(ctx, idx); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.LoadIndex(ctx, "vid")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got.Vectors) != 1 || got.Vectors[0].ChunkID != "vid-0-120" {
		t.Errorf("loaded index wrong: %+v", got.Vectors)
	}
	if got.Vectors[0].Vector[1] != -0.5 {
		t.Errorf("vector values lost: %v", got.Vectors[0].Vector)
	}
}

func TestFileIndexStoreReplace(t *testing.T) {
	store := NewFileIndexStore(t.TempDir())
	ctx := context.Background()

	first := &core.VideoIndex{VideoID: "vid", Vectors: []core.EmbeddingRecord{
		{ChunkID: "old-1"}, {ChunkID: "old-2"},
	}}
	second := &core.VideoIndex{VideoID: "vid", Vectors: []core.EmbeddingRecord{
		{ChunkID: "new-1"},
	}}
	if err := store.SaveIndex(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveIndex(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, ok, _ := store.LoadIndex(ctx, "vid")
	if !ok || len(got.Vectors) != 1 || got.Vectors[0].ChunkID != "new-1" {
		t.Errorf("save should replace whole index, got %+v", got)
	}
}

func TestFileIndexStoreMissingAndDelete(t *testing.T) {
	store := NewFileIndexStore(t.TempDir())
	ctx := context.Background()

	if _, ok, err := store.LoadIndex(ctx, "ghost"); ok || err != nil {
		t.Errorf("missing index: ok=%v err=%v", ok, err)
	}
	if err := store.DeleteIndex(ctx, "ghost"); err != nil {
		t.Errorf("deleting missing index should be a no-op, got %v", err)
	}

	idx := &core.VideoIndex{VideoID: "vid"}
	store.SaveIndex(ctx, idx)
	if err := store.DeleteIndex(ctx, "vid"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.LoadIndex(ctx, "vid"); ok {
		t.Error("index still present after delete")
	}
}

func TestArtifactsSessions(t *testing.T) {
	a, err := NewArtifacts(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	px := core.ParallelXCache{VideoID: "vid", ChunkTlDr: map[string]string{"c1": "digest"}}
	if err := a.SaveSession("vid", "parallelx", px); err != nil {
		t.Fatal(err)
	}

	var got core.ParallelXCache
	ok, err := a.LoadSession("vid", "parallelx", &got)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.ChunkTlDr["c1"] != "digest" {
		t.Errorf("session content wrong: %+v", got)
	}

	var missing core.ParallelXCache
	if ok, err := a.LoadSession("other", "parallelx", &missing); ok || err != nil {
		t.Errorf("missing session: ok=%v err=%v", ok, err)
	}

	if err := a.DeleteSessions("vid"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := a.LoadSession("vid", "parallelx", &got); ok {
		t.Error("session still present after delete")
	}
}

func TestArtifactsTranscriptPathAndScratch(t *testing.T) {
	dir := t.TempDir()
	a, err := NewArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}

	tr := core.Transcript{VideoID: "vid", Duration: 10, Segments: []core.Segment{{Start: 0, End: 10, Text: "hi"}}}
	if err := a.SaveJSON(a.TranscriptPath("vid"), tr); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "transcripts", "vid.json")); err != nil {
		t.Errorf("transcript not at expected path: %v", err)
	}

	scratch, err := a.ScratchDir("vid")
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(scratch, "audio.wav"), []byte("x"), 0o644)
	a.CleanScratch("vid")
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Error("scratch dir survived cleanup")
	}

	if err := a.DeleteTranscript("vid"); err != nil {
		t.Fatal(err)
	}
	if err := a.DeleteTranscript("vid"); err != nil {
		t.Errorf("double delete should be a no-op, got %v", err)
	}
}
