package transcript

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
	"edulens/storage"
)

// Acquirer produces the canonical transcript for a video: platform
// captions when available, otherwise audio download plus speech-to-text,
// plus translation to English when the speech is in another language.
type Acquirer struct {
	cfg       *config.Config
	asr       ASRProvider
	gen       Generator
	artifacts *storage.Artifacts
}

func NewAcquirer(cfg *config.Config, asr ASRProvider, gen Generator, artifacts *storage.Artifacts) *Acquirer {
	return &Acquirer{cfg: cfg, asr: asr, gen: gen, artifacts: artifacts}
}

// Progress reports stage transitions during acquisition. pct is within
// the caller's transcription window.
type Progress func(note string, pct int)

// Acquire builds the transcript. The returned metadata is best-effort:
// when yt-dlp cannot reach the platform the pipeline still proceeds with
// an id-only record.
func (a *Acquirer) Acquire(ctx context.Context, videoID string, progress Progress) (*core.Transcript, core.VideoMeta, error) {
	if progress == nil {
		progress = func(string, int) {}
	}

	meta, err := FetchMetadata(ctx, a.cfg, videoID)
	if err != nil {
		logger.WithVideo(videoID).Warnf("metadata fetch failed: %v", err)
		meta = core.VideoMeta{VideoID: videoID, URL: watchURL(videoID)}
	}
	progress("Fetching captions", 10)

	scratch, err := a.artifacts.ScratchDir(videoID)
	if err != nil {
		return nil, meta, errors.Wrap(err, "scratch dir")
	}
	defer a.artifacts.CleanScratch(videoID)

	segments, language, err := a.obtainSegments(ctx, videoID, scratch, progress)
	if err != nil {
		return nil, meta, err
	}
	if len(segments) == 0 {
		return nil, meta, fmt.Errorf("no speech found for video %s", videoID)
	}

	t := &core.Transcript{
		VideoID:  videoID,
		Language: normalizeLang(language),
		Duration: meta.Duration,
		Segments: segments,
	}
	if t.Duration <= 0 {
		t.Duration = segments[len(segments)-1].End
	}
	if meta.Duration <= 0 {
		meta.Duration = t.Duration
	}

	if t.Language != "" && t.Language != "en" {
		progress("Translating transcript", 90)
		original := make([]core.Segment, len(t.Segments))
		copy(original, t.Segments)
		t.OriginalSegments = original
		t.OriginalLanguage = t.Language
		t.Segments = TranslateSegments(ctx, a.gen, t.Segments, a.cfg.TranslateBatchChars)
		t.Language = "en"
	}
	if meta.Language == "" {
		meta.Language = t.Language
	}
	return t, meta, nil
}

func (a *Acquirer) obtainSegments(ctx context.Context, videoID, scratch string, progress Progress) ([]core.Segment, string, error) {
	segs, ok, err := FetchCaptions(ctx, a.cfg, videoID, scratch)
	if err != nil {
		logger.WithVideo(videoID).Warnf("caption fetch failed: %v", err)
	}
	if ok {
		return segs, "en", nil
	}

	progress("Downloading audio", 20)
	audioPath, err := DownloadAudio(ctx, a.cfg, videoID, scratch)
	if err != nil {
		return nil, "", errors.Wrap(err, "download audio")
	}

	progress("Transcribing audio", 40)
	return TranscribeParallel(ctx, a.cfg, a.asr, audioPath, scratch)
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return ""
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "english" {
		return "en"
	}
	return lang
}
