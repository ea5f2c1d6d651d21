package transcript

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"edulens/core"
	"edulens/logger"
	"edulens/providers"
)

// Generator is the slice of the provider manager translation needs.
type Generator interface {
	Generate(ctx context.Context, mode string, req providers.GenRequest) providers.GenResult
}

const translateSystem = "You translate subtitles to English. Reply with the same numbered lines, one translation per line, and nothing else."

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)\)\s*(.*)$`)

// TranslateSegments translates segment texts to English in batches,
// keeping timings untouched. Lines the model fails to return keep their
// original text so the transcript never loses coverage.
func TranslateSegments(ctx context.Context, gen Generator, segments []core.Segment, batchChars int) []core.Segment {
	out := make([]core.Segment, len(segments))
	copy(out, segments)

	for _, batch := range planBatches(segments, batchChars) {
		prompt := renderBatch(segments, batch)
		res := gen.Generate(ctx, "auto", providers.GenRequest{
			System:    translateSystem,
			Prompt:    prompt,
			MaxTokens: 1200,
		})
		if res.Provider == "none" {
			logger.L().Warn("translation unavailable, keeping original text")
			return out
		}
		applyBatch(out, batch, res.Text)
	}
	return out
}

// planBatches groups segment indexes so each batch's rendered text stays
// under the character limit. A single oversized segment still gets its
// own batch.
func planBatches(segments []core.Segment, batchChars int) [][]int {
	var batches [][]int
	var cur []int
	size := 0
	for i, s := range segments {
		n := len(s.Text) + 8
		if size+n > batchChars && len(cur) > 0 {
			batches = append(batches, cur)
			cur = nil
			size = 0
		}
		cur = append(cur, i)
		size += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

func renderBatch(segments []core.Segment, batch []int) string {
	var b strings.Builder
	b.WriteString("Translate these subtitle lines to English:\n\n")
	for n, idx := range batch {
		fmt.Fprintf(&b, "%d) %s\n", n+1, strings.TrimSpace(segments[idx].Text))
	}
	return b.String()
}

func applyBatch(out []core.Segment, batch []int, response string) {
	for _, line := range strings.Split(response, "\n") {
		m := numberedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(batch) {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text != "" {
			out[batch[n-1]].Text = text
		}
	}
}
