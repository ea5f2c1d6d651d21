package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"edulens/config"
	"edulens/core"
	"edulens/logger"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/shorts/|/embed/|youtu\.be/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`),
}

// ExtractVideoID pulls the 11-character id out of a YouTube URL, or
// accepts a bare id. Returns "" when nothing matches.
func ExtractVideoID(input string) string {
	input = strings.TrimSpace(input)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1]
		}
	}
	return ""
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

type ytDlpInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Language string  `json:"language"`
}

// FetchMetadata asks yt-dlp for the video's title and duration without
// downloading anything.
func FetchMetadata(ctx context.Context, cfg *config.Config, videoID string) (core.VideoMeta, error) {
	cmd := exec.CommandContext(ctx, cfg.YtDlpPath, "--dump-json", "--skip-download", watchURL(videoID))
	out, err := cmd.Output()
	if err != nil {
		return core.VideoMeta{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	var info ytDlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return core.VideoMeta{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return core.VideoMeta{
		VideoID:  videoID,
		Title:    info.Title,
		URL:      watchURL(videoID),
		Duration: info.Duration,
		Language: info.Language,
	}, nil
}

// FetchCaptions tries to get English captions (manual first, then
// auto-generated) without downloading media. Returns ok=false when the
// video has none.
func FetchCaptions(ctx context.Context, cfg *config.Config, videoID, scratchDir string) ([]core.Segment, bool, error) {
	outTmpl := filepath.Join(scratchDir, "captions.%(ext)s")
	cmd := exec.CommandContext(ctx, cfg.YtDlpPath,
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", "en,en-US,en-GB",
		"--sub-format", "vtt",
		"-o", outTmpl,
		watchURL(videoID),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, false, fmt.Errorf("yt-dlp captions: %v: %s", err, truncate(string(out), 400))
	}

	matches, _ := filepath.Glob(filepath.Join(scratchDir, "captions.*.vtt"))
	if len(matches) == 0 {
		return nil, false, nil
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, false, err
	}
	segs := ParseVTT(string(data))
	if len(segs) == 0 {
		return nil, false, nil
	}
	logger.WithVideo(videoID).WithField("segments", len(segs)).Info("using platform captions")
	return segs, true, nil
}

// DownloadAudio extracts the audio track to a wav file in scratchDir.
func DownloadAudio(ctx context.Context, cfg *config.Config, videoID, scratchDir string) (string, error) {
	outPath := filepath.Join(scratchDir, "audio.wav")
	cmd := exec.CommandContext(ctx, cfg.YtDlpPath,
		"-x", "--audio-format", "wav",
		"--ffmpeg-location", cfg.FFmpegPath,
		"-o", filepath.Join(scratchDir, "audio.%(ext)s"),
		watchURL(videoID),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp audio: %v: %s", err, truncate(string(out), 400))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio file missing after download: %w", err)
	}
	return outPath, nil
}
