package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"edulens/core"
)

// RenderSRT writes segments in SubRip format.
func RenderSRT(segments []core.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(s.Start), srtTimestamp(s.End), strings.TrimSpace(s.Text))
	}
	return b.String()
}

// RenderVTT writes segments in WebVTT format.
func RenderVTT(segments []core.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			vttTimestamp(s.Start), vttTimestamp(s.End), strings.TrimSpace(s.Text))
	}
	return b.String()
}

func srtTimestamp(sec float64) string {
	h, m, s, ms := splitClock(sec)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTimestamp(sec float64) string {
	h, m, s, ms := splitClock(sec)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitClock(sec float64) (int, int, int, int) {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	ms := int((sec - float64(total)) * 1000)
	return total / 3600, (total % 3600) / 60, total % 60, ms
}

var (
	vttCueRe = regexp.MustCompile(`(\d{1,2}:)?\d{2}:\d{2}\.\d{3}\s+-->\s+(\d{1,2}:)?\d{2}:\d{2}\.\d{3}`)
	vttTagRe = regexp.MustCompile(`<[^>]+>`)
)

// ParseVTT reads a WebVTT document into segments. Styling tags are
// stripped and consecutive cues repeating the same text (as auto
// captions do) are collapsed.
func ParseVTT(content string) []core.Segment {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var segs []core.Segment
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !vttCueRe.MatchString(line) {
			i++
			continue
		}
		fields := strings.Fields(line)
		start := parseVTTTime(fields[0])
		end := parseVTTTime(fields[2])
		i++

		var textLines []string
		for i < len(lines) {
			t := strings.TrimSpace(lines[i])
			if t == "" {
				break
			}
			t = strings.TrimSpace(vttTagRe.ReplaceAllString(t, ""))
			if t != "" {
				textLines = append(textLines, t)
			}
			i++
		}
		text := strings.Join(textLines, " ")
		if text == "" {
			continue
		}
		if n := len(segs); n > 0 && segs[n-1].Text == text {
			segs[n-1].End = end
			continue
		}
		segs = append(segs, core.Segment{Start: start, End: end, Text: text})
	}
	return segs
}

// parseVTTTime accepts HH:MM:SS.mmm or MM:SS.mmm.
func parseVTTTime(ts string) float64 {
	parts := strings.Split(ts, ":")
	var h, m float64
	var rest string
	switch len(parts) {
	case 3:
		h, _ = strconv.ParseFloat(parts[0], 64)
		m, _ = strconv.ParseFloat(parts[1], 64)
		rest = parts[2]
	case 2:
		m, _ = strconv.ParseFloat(parts[0], 64)
		rest = parts[1]
	default:
		return 0
	}
	s, _ := strconv.ParseFloat(rest, 64)
	return h*3600 + m*60 + s
}
