package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"edulens/core"
)

// clipText caps s at max bytes, backing up so a multi-byte rune is never
// split.
func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// ChunkOptions controls the sliding window. Zero values fall back to the
// caller's configured defaults before reaching MakeChunks.
type ChunkOptions struct {
	Seconds  float64
	Overlap  float64
	MaxChars int
}

// MakeChunks slides a window of Seconds width across the transcript,
// stepping back Overlap seconds between windows. A chunk's text is the
// concatenation of every segment intersecting its window, truncated to
// MaxChars. Chunk ids are deterministic: videoId-start-end with floored
// bounds, so re-chunking the same transcript reproduces the same ids.
func MakeChunks(t *core.Transcript, opts ChunkOptions) []core.Chunk {
	if t == nil || t.Duration <= 0 || len(t.Segments) == 0 {
		return []core.Chunk{}
	}

	chunks := []core.Chunk{}
	windowStart := 0.0
	for windowStart < t.Duration {
		windowEnd := windowStart + opts.Seconds
		if windowEnd > t.Duration {
			windowEnd = t.Duration
		}

		var parts []string
		for _, s := range t.Segments {
			if s.Start < windowEnd && s.End > windowStart {
				parts = append(parts, s.Text)
			}
		}
		text := strings.Join(parts, " ")
		if opts.MaxChars > 0 {
			text = clipText(text, opts.MaxChars)
		}

		chunks = append(chunks, core.Chunk{
			ChunkID: fmt.Sprintf("%s-%d-%d", t.VideoID, int(windowStart), int(windowEnd)),
			Start:   windowStart,
			End:     windowEnd,
			Text:    text,
			Meta:    map[string]string{},
		})

		if windowEnd == t.Duration {
			break
		}
		windowStart = windowEnd - opts.Overlap
		if windowStart < 0 {
			windowStart = 0
		}
	}
	return chunks
}
