package server

import (
	"encoding/json"
	"net/http"

	"edulens/core"
	"edulens/transcript"
)

type processRequest struct {
	URL          string `json:"url"`
	VideoID      string `json:"videoId"`
	ForceRefresh bool   `json:"forceRefresh"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.InvalidInput("handleProcess", "invalid JSON body"))
		return
	}
	input := req.URL
	if input == "" {
		input = req.VideoID
	}
	videoID := transcript.ExtractVideoID(input)
	if videoID == "" {
		writeError(w, core.InvalidInput("handleProcess", "missing or unrecognized url/videoId"))
		return
	}

	jobID := s.pipe.Process(videoID, req.ForceRefresh)
	core.WriteJSON(w, http.StatusAccepted, map[string]string{
		"jobId":   jobID,
		"videoId": videoID,
		"status":  string(core.JobQueued),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if jobID := r.URL.Query().Get("jobId"); jobID != "" {
		j, ok := s.jobs.Get(jobID)
		if !ok {
			writeError(w, core.NotFound("handleStatus", "unknown job id"))
			return
		}
		core.WriteJSON(w, http.StatusOK, statusBody(j))
		return
	}

	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeError(w, core.InvalidInput("handleStatus", "videoId or jobId is required"))
		return
	}
	j, ok := s.jobs.LatestForVideo(videoID)
	if !ok {
		// a video the store has never seen is idle, not an error
		core.WriteJSON(w, http.StatusOK, map[string]any{
			"videoId":  videoID,
			"status":   "idle",
			"progress": 0,
		})
		return
	}
	core.WriteJSON(w, http.StatusOK, statusBody(j))
}

func statusBody(j core.Job) map[string]any {
	body := map[string]any{
		"jobId":      j.JobID,
		"videoId":    j.VideoID,
		"status":     j.Status,
		"stage":      j.Stage,
		"progress":   j.Progress,
		"elapsedSec": j.Elapsed(),
	}
	if j.Error != "" {
		body["error"] = j.Error
	}
	return body
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeError(w, core.InvalidInput("handleTranscript", "videoId is required"))
		return
	}
	t, ok, err := s.pipe.LoadTranscript(videoID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, core.NotFound("handleTranscript", "no transcript for this video"))
		return
	}
	core.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeError(w, core.InvalidInput("handleSubtitles", "videoId is required"))
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "srt"
	}
	if format != "srt" && format != "vtt" {
		writeError(w, core.InvalidInput("handleSubtitles", "format must be srt or vtt"))
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.URL.Query().Get("track")
	}
	if lang == "" {
		lang = "en"
	}
	if lang != "en" && lang != "orig" {
		writeError(w, core.InvalidInput("handleSubtitles", "lang must be en or orig"))
		return
	}

	t, ok, err := s.pipe.LoadTranscript(videoID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, core.NotFound("handleSubtitles", "no transcript for this video"))
		return
	}
	segments := t.Segments
	if lang == "orig" {
		if len(t.OriginalSegments) == 0 {
			writeError(w, core.NotFound("handleSubtitles", "no original-language track for this video"))
			return
		}
		segments = t.OriginalSegments
	}

	var body, contentType string
	if format == "vtt" {
		body = transcript.RenderVTT(segments)
		contentType = "text/vtt; charset=utf-8"
	} else {
		body = transcript.RenderSRT(segments)
		contentType = "application/x-subrip; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID == "" {
		writeError(w, core.InvalidInput("handlePurge", "videoId is required"))
		return
	}
	if err := s.pipe.Purge(r.Context(), req.VideoID); err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"videoId": req.VideoID, "purged": true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.List()
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"videos": videos})
}
