package transcript

import (
	"context"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?start=10", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  dQw4w9WgXcQ  ", "dQw4w9WgXcQ"},
		{"not a video id", ""},
		{"", ""},
		{"tooshort", ""},
	}
	for _, c := range cases {
		if got := ExtractVideoID(c.in); got != c.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMockASRIsDeterministic(t *testing.T) {
	m := &MockASR{}
	a, langA, err := m.Transcribe(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatal(err)
	}
	b, langB, _ := m.Transcribe(context.Background(), "/tmp/audio.wav")
	if langA != "en" || langB != "en" {
		t.Errorf("languages: %q, %q", langA, langB)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("segment %d differs", i)
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i].Start < a[i-1].Start {
			t.Error("mock segments not ordered")
		}
	}
}
