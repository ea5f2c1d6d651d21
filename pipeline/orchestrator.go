package pipeline

import (
	"context"
	"fmt"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
	"edulens/storage"
	"edulens/transcript"
)

// Orchestrator drives the full processing run for a video: transcript
// acquisition, chunking, embedding, digest precompute, and the initial
// summary. Submitting a video returns a job id immediately; the run
// itself reports progress through the job store.
type Orchestrator struct {
	cfg       *config.Config
	jobs      *core.JobStore
	artifacts *storage.Artifacts
	catalog   *storage.Catalog
	store     storage.IndexStore
	acquirer  *transcript.Acquirer
	indexer   *Indexer
	slicer    *FastSlicer
	generator *Generator
}

func NewOrchestrator(
	cfg *config.Config,
	jobs *core.JobStore,
	artifacts *storage.Artifacts,
	catalog *storage.Catalog,
	store storage.IndexStore,
	acquirer *transcript.Acquirer,
	indexer *Indexer,
	slicer *FastSlicer,
	generator *Generator,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		jobs:      jobs,
		artifacts: artifacts,
		catalog:   catalog,
		store:     store,
		acquirer:  acquirer,
		indexer:   indexer,
		slicer:    slicer,
		generator: generator,
	}
}

// Process submits a video for background processing and returns the job
// id. A video with an active job is not re-submitted; the running job's
// id comes back instead.
func (o *Orchestrator) Process(videoID string, forceRefresh bool) string {
	if j, ok := o.jobs.LatestForVideo(videoID); ok && (j.Status == core.JobQueued || j.Status == core.JobProcessing) {
		return j.JobID
	}
	jobID := o.jobs.Create(videoID)
	go o.run(jobID, videoID, forceRefresh)
	return jobID
}

// EnsureProcessing kicks off a run when the video has no index and no
// active job. Used by the query path so asking about an unknown video
// bootstraps it.
func (o *Orchestrator) EnsureProcessing(ctx context.Context, videoID string) bool {
	if o.jobs.Active(videoID) {
		return true
	}
	if _, ok, _ := o.store.LoadIndex(ctx, videoID); ok {
		return false
	}
	o.Process(videoID, false)
	return true
}

func (o *Orchestrator) run(jobID, videoID string, forceRefresh bool) {
	ctx := context.Background()
	log := logger.WithJob(jobID, videoID)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("processing panicked: %v", r)
			o.fail(jobID, fmt.Errorf("internal failure: %v", r))
		}
	}()

	o.stage(jobID, "Initializing", 5)

	if !forceRefresh && o.artifactsComplete(ctx, videoID) {
		log.Info("artifacts already present, skipping recompute")
		o.stage(jobID, "Ready", 100)
		o.finish(jobID)
		return
	}

	t, meta, err := o.obtainTranscript(ctx, jobID, videoID, forceRefresh)
	if err != nil {
		// acquisition failures degrade to an empty transcript; the job
		// still completes and downstream answers are heuristic or empty
		log.Warnf("acquisition failed, continuing with empty transcript: %v", err)
		t = &core.Transcript{VideoID: videoID, Segments: []core.Segment{}}
		if saveErr := o.artifacts.SaveJSON(o.artifacts.TranscriptPath(videoID), t); saveErr != nil {
			o.fail(jobID, fmt.Errorf("save transcript: %w", saveErr))
			return
		}
		meta = core.VideoMeta{VideoID: videoID}
	}

	o.stage(jobID, "Structuring", 40)
	chunks := MakeChunks(t, ChunkOptions{
		Seconds:  o.cfg.ChunkSeconds,
		Overlap:  o.cfg.ChunkOverlapSeconds,
		MaxChars: o.cfg.ChunkMaxChars,
	})

	o.stage(jobID, "Indexing", 40)
	_, err = o.indexer.IndexVideo(ctx, videoID, chunks, func(done, total int) {
		o.stage(jobID, "Indexing", 40+done*30/total)
	})
	if err != nil {
		o.fail(jobID, fmt.Errorf("index video: %w", err))
		return
	}

	if len(chunks) > 0 {
		o.stage(jobID, "Context Building", 70)
		err = o.slicer.Precompute(ctx, videoID, chunks, func(done, total int) {
			o.stage(jobID, "Context Building", 70+done*10/total)
		})
		if err != nil {
			log.Warnf("digest precompute failed: %v", err)
		}

		o.stage(jobID, "Summarizing", 85)
		o.cacheInitialSummary(ctx, videoID)
	}

	if err := o.catalog.Upsert(meta); err != nil {
		log.Warnf("catalog upsert failed: %v", err)
	}

	o.stage(jobID, "Ready", 100)
	o.finish(jobID)
	log.Info("processing complete")
}

// obtainTranscript reuses a cached transcript unless forced, otherwise
// runs acquisition with progress mapped into the 5-35 window.
func (o *Orchestrator) obtainTranscript(ctx context.Context, jobID, videoID string, forceRefresh bool) (*core.Transcript, core.VideoMeta, error) {
	if !forceRefresh {
		var cached core.Transcript
		ok, err := o.artifacts.LoadJSON(o.artifacts.TranscriptPath(videoID), &cached)
		if err == nil && ok && len(cached.Segments) > 0 {
			meta, found, _ := o.catalog.Get(videoID)
			if !found {
				meta = core.VideoMeta{VideoID: videoID, Duration: cached.Duration, Language: cached.Language}
			}
			return &cached, meta, nil
		}
	}

	o.stage(jobID, "Transcribing", 5)
	t, meta, err := o.acquirer.Acquire(ctx, videoID, func(note string, pct int) {
		o.stage(jobID, "Transcribing: "+note, 5+pct*30/100)
	})
	if err != nil {
		return nil, meta, fmt.Errorf("acquire transcript: %w", err)
	}
	if err := o.artifacts.SaveJSON(o.artifacts.TranscriptPath(videoID), t); err != nil {
		return nil, meta, fmt.Errorf("save transcript: %w", err)
	}
	return t, meta, nil
}

func (o *Orchestrator) artifactsComplete(ctx context.Context, videoID string) bool {
	var t core.Transcript
	ok, err := o.artifacts.LoadJSON(o.artifacts.TranscriptPath(videoID), &t)
	if err != nil || !ok || len(t.Segments) == 0 {
		return false
	}
	if _, ok, err := o.store.LoadIndex(ctx, videoID); err != nil || !ok {
		return false
	}
	var px core.ParallelXCache
	ok, err = o.artifacts.LoadSession(videoID, "parallelx", &px)
	return err == nil && ok
}

// cacheInitialSummary stores a detailed summary so the first UI read is
// instant. Failure here never fails the job.
func (o *Orchestrator) cacheInitialSummary(ctx context.Context, videoID string) {
	res, err := o.generator.Run(ctx, ToolSummary, Request{VideoID: videoID, Level: "detailed"})
	if err != nil {
		logger.WithVideo(videoID).Warnf("initial summary failed: %v", err)
		return
	}
	if err := o.artifacts.SaveSession(videoID, "summary", res); err != nil {
		logger.WithVideo(videoID).Warnf("cache summary failed: %v", err)
	}
}

// CachedSummary returns the summary stored at the end of processing.
func (o *Orchestrator) CachedSummary(videoID string) (core.ToolResult, bool) {
	var res core.ToolResult
	ok, err := o.artifacts.LoadSession(videoID, "summary", &res)
	return res, err == nil && ok
}

// Purge removes every artifact for a video: transcript, index, session
// caches, and the catalog row.
func (o *Orchestrator) Purge(ctx context.Context, videoID string) error {
	if err := o.store.DeleteIndex(ctx, videoID); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	if err := o.artifacts.DeleteTranscript(videoID); err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	if err := o.artifacts.DeleteSessions(videoID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := o.catalog.Delete(videoID); err != nil {
		return fmt.Errorf("delete catalog row: %w", err)
	}
	return nil
}

// LoadTranscript reads the saved transcript for a video.
func (o *Orchestrator) LoadTranscript(videoID string) (*core.Transcript, bool, error) {
	var t core.Transcript
	ok, err := o.artifacts.LoadJSON(o.artifacts.TranscriptPath(videoID), &t)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &t, true, nil
}

// HasIndex reports whether the video has a persisted index.
func (o *Orchestrator) HasIndex(ctx context.Context, videoID string) bool {
	_, ok, _ := o.store.LoadIndex(ctx, videoID)
	return ok
}

func (o *Orchestrator) stage(jobID, stage string, progress int) {
	o.jobs.Update(jobID, func(j *core.Job) {
		j.Status = core.JobProcessing
		j.Stage = stage
		j.Progress = progress
	})
}

func (o *Orchestrator) finish(jobID string) {
	o.jobs.Update(jobID, func(j *core.Job) {
		j.Status = core.JobDone
		j.Stage = "Ready"
		j.Progress = 100
	})
}

func (o *Orchestrator) fail(jobID string, err error) {
	o.jobs.Update(jobID, func(j *core.Job) {
		j.Status = core.JobError
		j.Error = err.Error()
	})
}
