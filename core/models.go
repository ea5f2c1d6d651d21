package core

import "time"

// Segment is the atomic unit of a transcript. Times are seconds from the
// start of the video.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the canonical per-video transcript. OriginalSegments is
// populated only when the transcript was translated to English.
type Transcript struct {
	VideoID          string    `json:"videoId"`
	Language         string    `json:"language"`
	OriginalLanguage string    `json:"originalLanguage"`
	Duration         float64   `json:"duration"`
	Segments         []Segment `json:"segments"`
	OriginalSegments []Segment `json:"originalSegments,omitempty"`
}

// Chunk is a time-windowed slice of a transcript. ChunkID is deterministic
// from the video id and the window bounds, so re-chunking with the same
// parameters reproduces the same ids.
type Chunk struct {
	ChunkID string            `json:"chunkId"`
	Start   float64           `json:"start"`
	End     float64           `json:"end"`
	Text    string            `json:"text"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// EmbeddingRecord is one indexed chunk: its vector plus enough metadata to
// answer retrieval queries without reloading the transcript.
type EmbeddingRecord struct {
	ChunkID string    `json:"chunkId"`
	Start   float64   `json:"start"`
	End     float64   `json:"end"`
	Vector  []float32 `json:"vector"`
	Excerpt string    `json:"excerpt"`
}

// VideoIndex is the per-video vector index. It is written whole by the
// indexing pass and read-only everywhere else.
type VideoIndex struct {
	VideoID   string            `json:"videoId"`
	CreatedAt time.Time         `json:"createdAt"`
	Vectors   []EmbeddingRecord `json:"vectors"`
}

// ParallelXCache holds the precomputed per-chunk digests for a video.
type ParallelXCache struct {
	VideoID   string            `json:"videoId"`
	ChunkTlDr map[string]string `json:"chunkTlDr"`
}

// SourceChunk is a retrieval hit as surfaced to callers.
type SourceChunk struct {
	ChunkID string  `json:"chunkId"`
	Score   float64 `json:"score"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Excerpt string  `json:"excerpt"`
}

// TokenUsage counts prompt and completion tokens for one generation call.
type TokenUsage struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// ToolResult is the envelope every AI tool returns. Mode is empty for a
// normal generated response, "heuristic" when assembled without a model,
// and "parallelx" for the fast-slice path.
type ToolResult struct {
	Text              string        `json:"text"`
	SourceChunks      []SourceChunk `json:"sourceChunks"`
	CreditUseEstimate TokenUsage    `json:"creditUseEstimate"`
	Mode              string        `json:"mode,omitempty"`
}

// VideoMeta is the catalog row for one video.
type VideoMeta struct {
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Duration  float64   `json:"duration"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobError      JobStatus = "error"
)

// Job tracks one background processing run for a video.
type Job struct {
	JobID    string    `json:"jobId"`
	VideoID  string    `json:"videoId"`
	Status   JobStatus `json:"status"`
	Stage    string    `json:"stage"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
	StartTs  time.Time `json:"startTs"`
}

// Elapsed reports whole seconds since the job started.
func (j *Job) Elapsed() int {
	if j.StartTs.IsZero() {
		return 0
	}
	return int(time.Since(j.StartTs).Seconds())
}
