package pipeline

import (
	"context"
	"testing"
	"time"

	"edulens/config"
	"edulens/core"
	"edulens/storage"
)

func waitForTerminal(t *testing.T, jobs *core.JobStore, jobID string) core.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		j, ok := jobs.Get(jobID)
		if ok && (j.Status == core.JobDone || j.Status == core.JobError) {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return core.Job{}
}

// seedArtifacts writes a complete artifact set so a run can take the
// idempotent skip path without touching acquisition.
func seedArtifacts(t *testing.T, artifacts *storage.Artifacts, store storage.IndexStore, videoID string) {
	t.Helper()
	tr := core.Transcript{
		VideoID:  videoID,
		Language: "en",
		Duration: 240,
		Segments: []core.Segment{{Start: 0, End: 240, Text: "all of it"}},
	}
	if err := artifacts.SaveJSON(artifacts.TranscriptPath(videoID), tr); err != nil {
		t.Fatal(err)
	}
	err := store.SaveIndex(context.Background(), &core.VideoIndex{
		VideoID:   videoID,
		CreatedAt: time.Now(),
		Vectors:   []core.EmbeddingRecord{{ChunkID: videoID + "-0-120", Start: 0, End: 120, Excerpt: "all of it"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = artifacts.SaveSession(videoID, "parallelx", core.ParallelXCache{
		VideoID:   videoID,
		ChunkTlDr: map[string]string{videoID + "-0-120": "digest"},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func orchestratorFixture(t *testing.T) (*Orchestrator, *core.JobStore, *storage.Artifacts, storage.IndexStore) {
	t.Helper()
	dir := t.TempDir()
	artifacts, err := storage.NewArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := storage.OpenCatalog(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { catalog.Close() })
	store := storage.NewFileIndexStore(dir)
	jobs := core.NewJobStore()
	cfg := &config.Config{ChunkSeconds: 120, ChunkOverlapSeconds: 10, ChunkMaxChars: 2000, SliceMaxParts: 10}

	orch := NewOrchestrator(cfg, jobs, artifacts, catalog, store, nil, nil, nil, nil)
	return orch, jobs, artifacts, store
}

func TestProcessSkipsWhenArtifactsComplete(t *testing.T) {
	orch, jobs, artifacts, store := orchestratorFixture(t)
	seedArtifacts(t, artifacts, store, "vid")

	jobID := orch.Process("vid", false)
	j := waitForTerminal(t, jobs, jobID)
	if j.Status != core.JobDone {
		t.Fatalf("status = %s (error: %s)", j.Status, j.Error)
	}
	if j.Progress != 100 || j.Stage != "Ready" {
		t.Errorf("job = %+v", j)
	}
}

func TestProcessReturnsActiveJobID(t *testing.T) {
	orch, jobs, _, _ := orchestratorFixture(t)
	first := jobs.Create("vid")

	got := orch.Process("vid", false)
	if got != first {
		t.Errorf("new job %s created while %s active", got, first)
	}
}

func TestEnsureProcessingWithIndex(t *testing.T) {
	orch, _, artifacts, store := orchestratorFixture(t)
	seedArtifacts(t, artifacts, store, "vid")

	if orch.EnsureProcessing(context.Background(), "vid") {
		t.Error("indexed video should not re-trigger processing")
	}
}

func TestPurgeRemovesEverything(t *testing.T) {
	orch, _, artifacts, store := orchestratorFixture(t)
	seedArtifacts(t, artifacts, store, "vid")
	ctx := context.Background()

	if err := orch.Purge(ctx, "vid"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := store.LoadIndex(ctx, "vid"); ok {
		t.Error("index survived purge")
	}
	if _, ok, _ := orch.LoadTranscript("vid"); ok {
		t.Error("transcript survived purge")
	}
	var px core.ParallelXCache
	if ok, _ := artifacts.LoadSession("vid", "parallelx", &px); ok {
		t.Error("session cache survived purge")
	}
}

func TestCachedSummaryRoundTrip(t *testing.T) {
	orch, _, artifacts, _ := orchestratorFixture(t)

	if _, ok := orch.CachedSummary("vid"); ok {
		t.Error("summary reported before caching")
	}
	err := artifacts.SaveSession("vid", "summary", core.ToolResult{Text: "detailed"})
	if err != nil {
		t.Fatal(err)
	}
	res, ok := orch.CachedSummary("vid")
	if !ok || res.Text != "detailed" {
		t.Errorf("cached = %+v ok=%v", res, ok)
	}
}
