package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"edulens/config"
	"edulens/core"
	"edulens/pipeline"
	"edulens/providers"
)

type stubPipeline struct {
	transcript  *core.Transcript
	hasIndex    bool
	processed   []string
	ensured     []string
	purged      []string
	cachedSumm  *core.ToolResult
	purgeFailed error
}

func (p *stubPipeline) Process(videoID string, force bool) string {
	p.processed = append(p.processed, videoID)
	return "job-123"
}

func (p *stubPipeline) EnsureProcessing(ctx context.Context, videoID string) bool {
	p.ensured = append(p.ensured, videoID)
	return true
}

func (p *stubPipeline) Purge(ctx context.Context, videoID string) error {
	p.purged = append(p.purged, videoID)
	return p.purgeFailed
}

func (p *stubPipeline) LoadTranscript(videoID string) (*core.Transcript, bool, error) {
	if p.transcript == nil || p.transcript.VideoID != videoID {
		return nil, false, nil
	}
	return p.transcript, true, nil
}

func (p *stubPipeline) HasIndex(ctx context.Context, videoID string) bool { return p.hasIndex }

func (p *stubPipeline) CachedSummary(videoID string) (core.ToolResult, bool) {
	if p.cachedSumm == nil {
		return core.ToolResult{}, false
	}
	return *p.cachedSumm, true
}

type stubTools struct {
	result core.ToolResult
	calls  []pipeline.Tool
}

func (t *stubTools) Run(ctx context.Context, tool pipeline.Tool, req pipeline.Request) (core.ToolResult, error) {
	t.calls = append(t.calls, tool)
	return t.result, nil
}

type stubSlicer struct {
	result core.ToolResult
}

func (s *stubSlicer) FastSliceSummary(ctx context.Context, videoID string, start, end float64) (core.ToolResult, error) {
	return s.result, nil
}

type stubHealth struct{}

func (stubHealth) Health(ctx context.Context) []providers.ProviderHealth {
	return []providers.ProviderHealth{{Name: "ollama", Available: true}}
}

type stubCatalog struct {
	videos []core.VideoMeta
}

func (c *stubCatalog) List() ([]core.VideoMeta, error) { return c.videos, nil }

func testServer(pipe *stubPipeline, tools *stubTools) (*Server, http.Handler) {
	cfg := &config.Config{Store: "file", RequestsPerMinute: 6000, RateBurst: 100}
	s := New(cfg, core.NewJobStore(), pipe, tools, &stubSlicer{result: core.ToolResult{Text: "slice", Mode: "parallelx"}}, stubHealth{}, &stubCatalog{})
	return s, s.Handler()
}

func postJSON(h http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProcessValidation(t *testing.T) {
	pipe := &stubPipeline{}
	_, h := testServer(pipe, &stubTools{})

	w := postJSON(h, "/video/process", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: code = %d", w.Code)
	}

	w = postJSON(h, "/video/process", map[string]string{"url": "not a video"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad url: code = %d", w.Code)
	}
	if len(pipe.processed) != 0 {
		t.Error("invalid input reached the pipeline")
	}
}

func TestProcessAcceptsURLAndBareID(t *testing.T) {
	pipe := &stubPipeline{}
	_, h := testServer(pipe, &stubTools{})

	w := postJSON(h, "/video/process", map[string]string{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("code = %d", w.Code)
	}
	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["videoId"] != "dQw4w9WgXcQ" || resp["jobId"] != "job-123" {
		t.Errorf("resp = %v", resp)
	}

	w = postJSON(h, "/video/process", map[string]string{"videoId": "dQw4w9WgXcQ"})
	if w.Code != http.StatusAccepted {
		t.Errorf("bare id: code = %d", w.Code)
	}
}

func TestStatusIdleAndJob(t *testing.T) {
	pipe := &stubPipeline{}
	s, h := testServer(pipe, &stubTools{})

	w := get(h, "/video/status?videoId=unknown11x")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "idle" {
		t.Errorf("unknown video status = %v", body["status"])
	}

	jobID := s.jobs.Create("dQw4w9WgXcQ")
	s.jobs.Update(jobID, func(j *core.Job) {
		j.Status = core.JobProcessing
		j.Stage = "Indexing"
		j.Progress = 55
	})
	w = get(h, "/video/status?videoId=dQw4w9WgXcQ")
	json.NewDecoder(w.Body).Decode(&body)
	if body["stage"] != "Indexing" || body["progress"] != float64(55) {
		t.Errorf("job status body = %v", body)
	}

	w = get(h, "/video/status?jobId=nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown job: code = %d", w.Code)
	}
}

func TestTranscriptEndpoints(t *testing.T) {
	pipe := &stubPipeline{transcript: &core.Transcript{
		VideoID:  "vid",
		Language: "en",
		Duration: 10,
		Segments: []core.Segment{{Start: 0, End: 10, Text: "hello"}},
	}}
	_, h := testServer(pipe, &stubTools{})

	if w := get(h, "/video/transcript"); w.Code != http.StatusBadRequest {
		t.Errorf("missing videoId: code = %d", w.Code)
	}
	if w := get(h, "/video/transcript?videoId=ghost"); w.Code != http.StatusNotFound {
		t.Errorf("missing transcript: code = %d", w.Code)
	}
	if w := get(h, "/video/transcript?videoId=vid"); w.Code != http.StatusOK {
		t.Errorf("found transcript: code = %d", w.Code)
	}
}

func TestSubtitles(t *testing.T) {
	pipe := &stubPipeline{transcript: &core.Transcript{
		VideoID:  "vid",
		Language: "en",
		Duration: 10,
		Segments: []core.Segment{{Start: 0, End: 4, Text: "hello"}},
	}}
	_, h := testServer(pipe, &stubTools{})

	w := get(h, "/video/subtitles?videoId=vid")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "00:00:00,000 --> 00:00:04,000") {
		t.Errorf("srt body:\n%s", w.Body.String())
	}

	w = get(h, "/video/subtitles?videoId=vid&format=vtt")
	if !strings.HasPrefix(w.Body.String(), "WEBVTT") {
		t.Error("vtt body missing header")
	}

	if w := get(h, "/video/subtitles?videoId=vid&format=ass"); w.Code != http.StatusBadRequest {
		t.Errorf("bad format: code = %d", w.Code)
	}
	if w := get(h, "/video/subtitles?videoId=vid&lang=orig"); w.Code != http.StatusNotFound {
		t.Errorf("missing orig track: code = %d", w.Code)
	}
	if w := get(h, "/video/subtitles?videoId=ghost"); w.Code != http.StatusNotFound {
		t.Errorf("missing transcript: code = %d", w.Code)
	}
}

func TestSubtitlesOriginalLanguageTrack(t *testing.T) {
	pipe := &stubPipeline{transcript: &core.Transcript{
		VideoID:          "vid",
		Language:         "en",
		Duration:         10,
		Segments:         []core.Segment{{Start: 0, End: 4, Text: "hello"}},
		OriginalSegments: []core.Segment{{Start: 0, End: 4, Text: "hola"}},
	}}
	_, h := testServer(pipe, &stubTools{})

	w := get(h, "/video/subtitles?videoId=vid&lang=orig")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hola") || strings.Contains(w.Body.String(), "hello") {
		t.Errorf("orig track body:\n%s", w.Body.String())
	}

	// track remains accepted as an alias
	w = get(h, "/video/subtitles?videoId=vid&track=orig")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hola") {
		t.Errorf("track alias: code = %d body:\n%s", w.Code, w.Body.String())
	}

	if w := get(h, "/video/subtitles?videoId=vid&lang=fr"); w.Code != http.StatusBadRequest {
		t.Errorf("bad lang: code = %d", w.Code)
	}
}

func TestQueryBootstrapsUnindexedVideo(t *testing.T) {
	pipe := &stubPipeline{hasIndex: false}
	tools := &stubTools{}
	_, h := testServer(pipe, tools)

	w := postJSON(h, "/ai/query", map[string]string{"videoId": "vid", "query": "what is this about?"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("code = %d", w.Code)
	}
	var res core.ToolResult
	json.NewDecoder(w.Body).Decode(&res)
	if !strings.Contains(res.Text, "Processing video in background") {
		t.Errorf("placeholder text = %q", res.Text)
	}
	if len(res.SourceChunks) != 0 {
		t.Errorf("placeholder should carry no source chunks, got %d", len(res.SourceChunks))
	}
	if len(pipe.ensured) != 1 || pipe.ensured[0] != "vid" {
		t.Errorf("background processing not triggered: %v", pipe.ensured)
	}
	if len(tools.calls) != 0 {
		t.Error("tool ran before index existed")
	}
}

func TestQueryRunsToolWhenIndexed(t *testing.T) {
	pipe := &stubPipeline{hasIndex: true}
	tools := &stubTools{result: core.ToolResult{
		Text:         "an answer",
		SourceChunks: []core.SourceChunk{{ChunkID: "c1", Start: 0, End: 120}},
	}}
	_, h := testServer(pipe, tools)

	w := postJSON(h, "/ai/query", map[string]string{"videoId": "vid", "query": "what?"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var res core.ToolResult
	json.NewDecoder(w.Body).Decode(&res)
	if res.Text != "an answer" || len(res.SourceChunks) != 1 {
		t.Errorf("res = %+v", res)
	}
	if len(tools.calls) != 1 || tools.calls[0] != pipeline.ToolQA {
		t.Errorf("tool calls = %v", tools.calls)
	}
}

func TestQueryValidation(t *testing.T) {
	_, h := testServer(&stubPipeline{hasIndex: true}, &stubTools{})

	if w := postJSON(h, "/ai/query", map[string]string{"query": "no video"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing videoId: code = %d", w.Code)
	}
	if w := postJSON(h, "/ai/query", map[string]string{"videoId": "vid"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing query: code = %d", w.Code)
	}
}

func TestDetailedSummaryUsesCache(t *testing.T) {
	pipe := &stubPipeline{hasIndex: true, cachedSumm: &core.ToolResult{Text: "cached detailed summary"}}
	tools := &stubTools{}
	_, h := testServer(pipe, tools)

	w := postJSON(h, "/ai/summary", map[string]string{"videoId": "vid", "level": "detailed"})
	var res core.ToolResult
	json.NewDecoder(w.Body).Decode(&res)
	if res.Text != "cached detailed summary" {
		t.Errorf("text = %q", res.Text)
	}
	if len(tools.calls) != 0 {
		t.Error("cached summary should skip generation")
	}
}

func TestSliceValidation(t *testing.T) {
	_, h := testServer(&stubPipeline{hasIndex: true}, &stubTools{})

	w := postJSON(h, "/ai/slice", map[string]any{"videoId": "vid", "start": 100, "end": 50})
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: code = %d", w.Code)
	}

	w = postJSON(h, "/ai/slice", map[string]any{"videoId": "vid", "start": 0, "end": 300})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var res core.ToolResult
	json.NewDecoder(w.Body).Decode(&res)
	if res.Mode != "parallelx" {
		t.Errorf("mode = %q", res.Mode)
	}
}

func TestPurge(t *testing.T) {
	pipe := &stubPipeline{}
	_, h := testServer(pipe, &stubTools{})

	if w := postJSON(h, "/video/purge", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing videoId: code = %d", w.Code)
	}
	w := postJSON(h, "/video/purge", map[string]string{"videoId": "vid"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if len(pipe.purged) != 1 || pipe.purged[0] != "vid" {
		t.Errorf("purged = %v", pipe.purged)
	}
}

func TestHealth(t *testing.T) {
	_, h := testServer(&stubPipeline{}, &stubTools{})
	w := get(h, "/ai/health")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["store"] != "file" {
		t.Errorf("store = %v", body["store"])
	}
}
