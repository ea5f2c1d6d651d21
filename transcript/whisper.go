package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
)

// ASRProvider turns one audio file into timed segments. Times are
// relative to the start of the given file; callers shift them.
type ASRProvider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) ([]core.Segment, string, error)
}

// PickASRProvider resolves the configured backend, falling back to the
// mock provider with a warning when nothing usable is configured.
func PickASRProvider(cfg *config.Config) ASRProvider {
	switch cfg.ASRProvider {
	case "whispercpp":
		if cfg.WhisperBin != "" && cfg.WhisperModel != "" {
			return &WhisperCppASR{bin: cfg.WhisperBin, model: cfg.WhisperModel}
		}
	case "api":
		if cfg.HasRemoteAPI() {
			return NewAPIWhisperASR(cfg)
		}
	case "mock":
		return &MockASR{}
	case "":
		if cfg.WhisperBin != "" && cfg.WhisperModel != "" {
			return &WhisperCppASR{bin: cfg.WhisperBin, model: cfg.WhisperModel}
		}
		if cfg.HasRemoteAPI() {
			return NewAPIWhisperASR(cfg)
		}
	}
	logger.L().Warn("no speech-to-text backend configured, using mock transcripts")
	return &MockASR{}
}

// WhisperCppASR shells out to a whisper.cpp binary and reads its JSON
// output. Offsets in the output are milliseconds.
type WhisperCppASR struct {
	bin   string
	model string
}

func (w *WhisperCppASR) Name() string { return "whispercpp" }

type whisperCppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (w *WhisperCppASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, string, error) {
	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	cmd := exec.CommandContext(ctx, w.bin,
		"-m", w.model,
		"-f", audioPath,
		"-oj",
		"-of", outBase,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, "", fmt.Errorf("whisper.cpp failed: %v: %s", err, truncate(string(out), 400))
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, "", fmt.Errorf("read whisper.cpp output: %w", err)
	}
	var parsed whisperCppOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, "", fmt.Errorf("parse whisper.cpp output: %w", err)
	}

	segs := make([]core.Segment, 0, len(parsed.Transcription))
	for _, t := range parsed.Transcription {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		segs = append(segs, core.Segment{
			Start: float64(t.Offsets.From) / 1000,
			End:   float64(t.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return segs, parsed.Result.Language, nil
}

// APIWhisperASR sends audio to an OpenAI-compatible transcription
// endpoint and uses the verbose response's segment timings.
type APIWhisperASR struct {
	client *openai.Client
}

func NewAPIWhisperASR(cfg *config.Config) *APIWhisperASR {
	oc := openai.DefaultConfig(cfg.GroqAPIKey)
	oc.BaseURL = cfg.GroqBaseURL
	return &APIWhisperASR{client: openai.NewClientWithConfig(oc)}
}

func (a *APIWhisperASR) Name() string { return "api" }

func (a *APIWhisperASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    "whisper-large-v3",
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, "", fmt.Errorf("transcription API: %w", err)
	}
	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: text})
	}
	return segs, resp.Language, nil
}

// MockASR produces a deterministic placeholder transcript so the rest of
// the pipeline can run without any audio tooling installed.
type MockASR struct{}

func (m *MockASR) Name() string { return "mock" }

func (m *MockASR) Transcribe(ctx context.Context, audioPath string) ([]core.Segment, string, error) {
	base := filepath.Base(audioPath)
	segs := make([]core.Segment, 0, 4)
	for i := 0; i < 4; i++ {
		start := float64(i * 5)
		segs = append(segs, core.Segment{
			Start: start,
			End:   start + 5,
			Text:  fmt.Sprintf("Mock transcript line %d for %s.", i+1, base),
		})
	}
	return segs, "en", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
