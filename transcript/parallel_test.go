package transcript

import (
	"sort"
	"testing"

	"edulens/core"
)

func TestPlanPartsShortRecording(t *testing.T) {
	parts := planParts(100, 180, 2)
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	if parts[0].Start != 0 || parts[0].Length != 100 {
		t.Errorf("part = %+v", parts[0])
	}
}

func TestPlanPartsOverlapLayout(t *testing.T) {
	parts := planParts(500, 180, 2)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	if parts[0].Start != 0 || parts[0].Length != 180 {
		t.Errorf("part 0 = %+v", parts[0])
	}
	// later parts rewind by the overlap
	if parts[1].Start != 178 || parts[1].Length != 182 {
		t.Errorf("part 1 = %+v", parts[1])
	}
	if parts[2].Start != 358 {
		t.Errorf("part 2 = %+v", parts[2])
	}
	last := parts[2]
	if last.Start+last.Length != 500 {
		t.Errorf("last part ends at %v, want 500", last.Start+last.Length)
	}
}

func TestMergePartsShiftsAndDropsOverlap(t *testing.T) {
	results := []partResult{
		{
			part: audioPart{Index: 0, Start: 0, Length: 180},
			segments: []core.Segment{
				{Start: 0, End: 5, Text: "one"},
				{Start: 175, End: 180, Text: "tail"},
			},
		},
		{
			part: audioPart{Index: 1, Start: 178, Length: 182},
			segments: []core.Segment{
				{Start: 0, End: 2, Text: "tail again"}, // inside the overlap window
				{Start: 4, End: 9, Text: "two"},
			},
		},
	}
	merged := mergeParts(results, 2)

	for _, s := range merged {
		if s.Text == "tail again" {
			t.Error("overlap duplicate not dropped")
		}
	}
	var two *core.Segment
	for i := range merged {
		if merged[i].Text == "two" {
			two = &merged[i]
		}
	}
	if two == nil {
		t.Fatal("segment from second part missing")
	}
	if two.Start != 182 || two.End != 187 {
		t.Errorf("second part segment not shifted: %+v", two)
	}
	if !sort.SliceIsSorted(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start }) {
		t.Error("merged segments not sorted by start")
	}
}

func TestMergePartsReordersLateArrivals(t *testing.T) {
	// results indexed by part, but a later part may carry earlier text when
	// the first part produced nothing
	results := []partResult{
		{part: audioPart{Index: 0, Start: 0, Length: 180}, segments: nil},
		{
			part:     audioPart{Index: 1, Start: 178, Length: 182},
			segments: []core.Segment{{Start: 10, End: 12, Text: "late"}},
		},
	}
	merged := mergeParts(results, 2)
	if len(merged) != 1 || merged[0].Start != 188 {
		t.Errorf("merged = %+v", merged)
	}
}
