package server

import (
	"context"
	"net/http"

	"edulens/config"
	"edulens/core"
	"edulens/pipeline"
	"edulens/providers"
)

// Pipeline is the orchestrator surface the handlers need.
type Pipeline interface {
	Process(videoID string, forceRefresh bool) string
	EnsureProcessing(ctx context.Context, videoID string) bool
	Purge(ctx context.Context, videoID string) error
	LoadTranscript(videoID string) (*core.Transcript, bool, error)
	HasIndex(ctx context.Context, videoID string) bool
	CachedSummary(videoID string) (core.ToolResult, bool)
}

// ToolRunner runs one AI tool.
type ToolRunner interface {
	Run(ctx context.Context, tool pipeline.Tool, req pipeline.Request) (core.ToolResult, error)
}

// Slicer answers fast time-bounded summaries.
type Slicer interface {
	FastSliceSummary(ctx context.Context, videoID string, start, end float64) (core.ToolResult, error)
}

// HealthSource reports generation backend reachability.
type HealthSource interface {
	Health(ctx context.Context) []providers.ProviderHealth
}

// VideoLister lists the processed-video catalog.
type VideoLister interface {
	List() ([]core.VideoMeta, error)
}

type Server struct {
	cfg     *config.Config
	jobs    *core.JobStore
	pipe    Pipeline
	tools   ToolRunner
	slicer  Slicer
	health  HealthSource
	catalog VideoLister
}

func New(cfg *config.Config, jobs *core.JobStore, pipe Pipeline, tools ToolRunner, slicer Slicer, health HealthSource, catalog VideoLister) *Server {
	return &Server{
		cfg:     cfg,
		jobs:    jobs,
		pipe:    pipe,
		tools:   tools,
		slicer:  slicer,
		health:  health,
		catalog: catalog,
	}
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/video/process", s.handleProcess)
	mux.HandleFunc("/video/status", s.handleStatus)
	mux.HandleFunc("/video/transcript", s.handleTranscript)
	mux.HandleFunc("/video/subtitles", s.handleSubtitles)
	mux.HandleFunc("/video/purge", s.handlePurge)
	mux.HandleFunc("/video/list", s.handleList)

	mux.HandleFunc("/ai/query", s.toolHandler(pipeline.ToolQA))
	mux.HandleFunc("/ai/summary", s.toolHandler(pipeline.ToolSummary))
	mux.HandleFunc("/ai/notes", s.toolHandler(pipeline.ToolNotes))
	mux.HandleFunc("/ai/flashcards", s.toolHandler(pipeline.ToolFlashcards))
	mux.HandleFunc("/ai/quiz", s.toolHandler(pipeline.ToolQuiz))
	mux.HandleFunc("/ai/mindmap", s.toolHandler(pipeline.ToolMindmap))
	mux.HandleFunc("/ai/slice", s.handleSlice)
	mux.HandleFunc("/ai/health", s.handleHealth)

	return Chain(mux,
		Recover(),
		RequestID(),
		AccessLog(),
		RateLimit(s.cfg.RequestsPerMinute, s.cfg.RateBurst),
	)
}

// writeError maps AppError codes; everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*core.AppError); ok {
		core.WriteJSON(w, appErr.Code, appErr)
		return
	}
	core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
