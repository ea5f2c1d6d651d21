package transcript

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
)

// audioPart is one slice of the source audio. Start is the slice's
// offset in the full recording; slices after the first begin overlapSec
// early so no speech is lost on a cut boundary.
type audioPart struct {
	Index  int
	Start  float64
	Length float64
}

// planParts computes the slice layout for a recording. Short recordings
// come back as a single full-length part.
func planParts(duration, segLen, overlap float64) []audioPart {
	if duration <= segLen || segLen <= 0 {
		return []audioPart{{Index: 0, Start: 0, Length: duration}}
	}
	var parts []audioPart
	for pos := 0.0; pos < duration; pos += segLen {
		start := pos
		length := segLen
		if start > 0 {
			start -= overlap
			length += overlap
		}
		if start+length > duration {
			length = duration - start
		}
		parts = append(parts, audioPart{Index: len(parts), Start: start, Length: length})
	}
	return parts
}

type partResult struct {
	part     audioPart
	segments []core.Segment
	language string
}

// TranscribeParallel splits the audio, runs the ASR backend over the
// slices with bounded concurrency, then merges the shifted results back
// into one ordered transcript.
func TranscribeParallel(ctx context.Context, cfg *config.Config, asr ASRProvider, audioPath, scratchDir string) ([]core.Segment, string, error) {
	duration, err := probeDuration(ctx, cfg.FFProbePath, audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("probe audio duration: %w", err)
	}

	parts := planParts(duration, cfg.SegmentSeconds, cfg.SegmentOverlapSeconds)
	if len(parts) == 1 {
		return asr.Transcribe(ctx, audioPath)
	}
	logger.L().WithField("parts", len(parts)).Info("transcribing audio in parallel")

	results := make([]partResult, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ASRConcurrency)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			slicePath := filepath.Join(scratchDir, fmt.Sprintf("part-%03d%s", p.Index, filepath.Ext(audioPath)))
			if err := sliceAudio(gctx, cfg.FFmpegPath, audioPath, slicePath, p.Start, p.Length); err != nil {
				return fmt.Errorf("slice part %d: %w", p.Index, err)
			}
			segs, lang, err := asr.Transcribe(gctx, slicePath)
			if err != nil {
				return fmt.Errorf("transcribe part %d: %w", p.Index, err)
			}
			results[p.Index] = partResult{part: p, segments: segs, language: lang}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	merged := mergeParts(results, cfg.SegmentOverlapSeconds)
	language := ""
	for _, r := range results {
		if r.language != "" {
			language = r.language
			break
		}
	}
	return merged, language, nil
}

// mergeParts shifts each part's segments to absolute time and drops the
// leading segments that fall inside the previous part's coverage.
func mergeParts(results []partResult, overlap float64) []core.Segment {
	var merged []core.Segment
	for _, r := range results {
		for _, s := range r.segments {
			abs := core.Segment{
				Start: s.Start + r.part.Start,
				End:   s.End + r.part.Start,
				Text:  s.Text,
			}
			// parts after the first re-hear the overlap window
			if r.part.Index > 0 && abs.Start < r.part.Start+overlap {
				continue
			}
			merged = append(merged, abs)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}

func probeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

func sliceAudio(ctx context.Context, ffmpeg, src, dst string, start, length float64) error {
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", length),
		"-i", src,
		"-acodec", "copy",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, truncate(string(out), 400))
	}
	return nil
}
