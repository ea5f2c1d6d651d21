package server

import (
	"encoding/json"
	"net/http"

	"edulens/core"
	"edulens/pipeline"
)

type aiRequest struct {
	VideoID   string  `json:"videoId"`
	Query     string  `json:"query"`
	Level     string  `json:"level"`
	Mode      string  `json:"mode"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	TimeRange *struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"timeRange"`
}

// toolHandler builds the POST handler for one AI tool. Every response is
// a well-formed envelope; generation failures surface as heuristic
// content, not HTTP errors.
func (s *Server) toolHandler(tool pipeline.Tool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		var req aiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, core.InvalidInput("toolHandler", "invalid JSON body"))
			return
		}
		if req.VideoID == "" {
			writeError(w, core.InvalidInput("toolHandler", "videoId is required"))
			return
		}
		if tool == pipeline.ToolQA && req.Query == "" {
			writeError(w, core.InvalidInput("toolHandler", "query is required"))
			return
		}

		// a query against an unindexed video bootstraps processing and
		// answers with a placeholder instead of blocking or erroring
		if !s.pipe.HasIndex(r.Context(), req.VideoID) {
			s.pipe.EnsureProcessing(r.Context(), req.VideoID)
			core.WriteJSON(w, http.StatusAccepted, normalize(core.ToolResult{
				Text: "Processing video in background. Ask again in a moment.",
				Mode: "processing",
			}))
			return
		}

		if tool == pipeline.ToolSummary && req.Level == "detailed" {
			if cached, ok := s.pipe.CachedSummary(req.VideoID); ok {
				core.WriteJSON(w, http.StatusOK, normalize(cached))
				return
			}
		}

		preq := pipeline.Request{
			VideoID: req.VideoID,
			Query:   req.Query,
			Level:   req.Level,
			Mode:    req.Mode,
		}
		if req.TimeRange != nil {
			preq.TimeRange = &pipeline.TimeRange{Start: req.TimeRange.Start, End: req.TimeRange.End}
		}

		res, err := s.tools.Run(r.Context(), tool, preq)
		if err != nil {
			writeError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, normalize(res))
	}
}

func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req aiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.InvalidInput("handleSlice", "invalid JSON body"))
		return
	}
	if req.VideoID == "" {
		writeError(w, core.InvalidInput("handleSlice", "videoId is required"))
		return
	}
	start, end := req.Start, req.End
	if req.TimeRange != nil {
		start, end = req.TimeRange.Start, req.TimeRange.End
	}
	if end <= start {
		writeError(w, core.InvalidInput("handleSlice", "end must be greater than start"))
		return
	}

	if !s.pipe.HasIndex(r.Context(), req.VideoID) {
		s.pipe.EnsureProcessing(r.Context(), req.VideoID)
		core.WriteJSON(w, http.StatusAccepted, normalize(core.ToolResult{
			Text: "Processing video in background. Ask again in a moment.",
			Mode: "processing",
		}))
		return
	}

	res, err := s.slicer.FastSliceSummary(r.Context(), req.VideoID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, normalize(res))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": s.health.Health(r.Context()),
		"store":     s.cfg.Store,
	})
}

// normalize guarantees the envelope always carries sourceChunks, even
// when empty.
func normalize(res core.ToolResult) core.ToolResult {
	if res.SourceChunks == nil {
		res.SourceChunks = []core.SourceChunk{}
	}
	return res
}
