package core

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
)

// WriteJSON writes v as a JSON response without escaping HTML, so excerpt
// text survives round-trips unmangled.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}

// FormatTime renders seconds as MM:SS.
func FormatTime(sec float64) string {
	sec = math.Max(sec, 0)
	m := int(sec) / 60
	s := int(sec) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatTimeRange renders a [start, end) pair as MM:SS-MM:SS.
func FormatTimeRange(start, end float64) string {
	return FormatTime(start) + "-" + FormatTime(end)
}

func MustJSON(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}
