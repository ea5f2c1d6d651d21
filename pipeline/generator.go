package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"edulens/core"
	"edulens/providers"
)

// Tool names one generation surface. Each tool pairs a prompt builder
// with a heuristic formatter so the generated and fallback paths stay
// symmetric.
type Tool string

const (
	ToolQA         Tool = "qa"
	ToolSummary    Tool = "summary"
	ToolNotes      Tool = "notes"
	ToolFlashcards Tool = "flashcards"
	ToolQuiz       Tool = "quiz"
	ToolMindmap    Tool = "mindmap"
)

const systemPrompt = "You are a study assistant. Use ONLY the provided transcript chunks and timestamps to answer. Always respond in English, even if the transcript language is not English. If the answer requires outside knowledge, say 'Out of scope'. Give bullets with timestamps and a short TL;DR at the top."

// TimeRange is a [Start, End) window in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

var (
	firstMinutesRe  = regexp.MustCompile(`first\s+(\d{1,3})\s*(?:min|minutes)`)
	clockRangeRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(?:-|to|–|—)\s*(\d{1,2}):(\d{2})`)
	betweenMinsRe   = regexp.MustCompile(`between\s+(\d{1,3})\s*(?:min|minutes)\s*(?:and|to)\s*(\d{1,3})`)
	minutesRangeRe  = regexp.MustCompile(`(\d{1,3})\s*(?:min|minutes)\s*(?:-|to|–|—)\s*(\d{1,3})`)
)

// ParseTimeRange recognizes the documented time phrasings: "first N
// minutes", "MM:SS to MM:SS", "between N and M minutes", and "N to M
// minutes". Anything else returns nil; the contract is deliberately
// narrow.
func ParseTimeRange(query string) *TimeRange {
	s := strings.ToLower(query)
	if m := firstMinutesRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return &TimeRange{Start: 0, End: float64(n * 60)}
	}
	if m := clockRangeRe.FindStringSubmatch(s); m != nil {
		am, _ := strconv.Atoi(m[1])
		as, _ := strconv.Atoi(m[2])
		bm, _ := strconv.Atoi(m[3])
		bs, _ := strconv.Atoi(m[4])
		return &TimeRange{Start: float64(am*60 + as), End: float64(bm*60 + bs)}
	}
	if m := betweenMinsRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		return &TimeRange{Start: float64(a * 60), End: float64(b * 60)}
	}
	if m := minutesRangeRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		return &TimeRange{Start: float64(a * 60), End: float64(b * 60)}
	}
	return nil
}

// LLM is the slice of the provider manager generation needs.
type LLM interface {
	Generate(ctx context.Context, mode string, req providers.GenRequest) providers.GenResult
}

// Request carries the per-call inputs shared by every tool.
type Request struct {
	VideoID   string
	Query     string
	Level     string // summary only: "short" or "detailed"
	TimeRange *TimeRange
	Mode      string // provider mode, plus "fast" to force the slice path on qa
}

// Generator runs the AI tools over a video's index.
type Generator struct {
	retriever *Retriever
	llm       LLM
	slicer    *FastSlicer
}

func NewGenerator(retriever *Retriever, llm LLM, slicer *FastSlicer) *Generator {
	return &Generator{retriever: retriever, llm: llm, slicer: slicer}
}

type toolProfile struct {
	searchQuery string
	instruction string
	maxTokens   int
	temperature float32
	heuristic   func(hits []core.SourceChunk) string
}

var toolProfiles = map[Tool]toolProfile{
	ToolSummary: {
		searchQuery: "overall summary of the video",
		instruction: "Provide a %s summary of the content using only the context. Include bullets with timestamps and a TL;DR.",
		maxTokens:   600,
		temperature: 0.3,
		heuristic:   heuristicBullets("TL;DR: Offline heuristic summary (LLM unavailable).\n\n", 12),
	},
	ToolNotes: {
		searchQuery: "chapters and notes",
		instruction: "Generate organized notes (chapters -> bullets) with timestamps.",
		maxTokens:   900,
		temperature: 0.2,
		heuristic:   heuristicBullets("Heuristic notes (LLM unavailable):\n", 10),
	},
	ToolFlashcards: {
		searchQuery: "key terms and definitions",
		instruction: "Produce flashcards as a list {term, question, answer, timestamp}.",
		maxTokens:   800,
		temperature: 0.3,
		heuristic:   heuristicBullets("Heuristic flashcards (LLM unavailable), key excerpts:\n", 10),
	},
	ToolQuiz: {
		searchQuery: "create quiz questions",
		instruction: "Generate a mixed quiz (MCQ/TF/Short) with answers and difficulty tags.",
		maxTokens:   900,
		temperature: 0.4,
		heuristic:   heuristicNumbered("Heuristic quiz (LLM unavailable). Use these moments to craft questions:\n", 8),
	},
	ToolMindmap: {
		searchQuery: "mindmap structure",
		instruction: "Return a JSON mindmap: nodes [{title, depth, timestamp}] only.",
		maxTokens:   700,
		temperature: 0.2,
		heuristic:   heuristicMindmap,
	},
}

// Run dispatches to the qa flow or a profile tool.
func (g *Generator) Run(ctx context.Context, tool Tool, req Request) (core.ToolResult, error) {
	if tool == ToolQA {
		return g.qa(ctx, req)
	}
	prof, ok := toolProfiles[tool]
	if !ok {
		return core.ToolResult{}, core.InvalidInput("generator.Run", fmt.Sprintf("unknown tool %q", tool))
	}

	hits, err := g.retriever.SemanticSearch(ctx, req.VideoID, prof.searchQuery, 12)
	if err != nil {
		return core.ToolResult{}, err
	}

	instruction := prof.instruction
	if tool == ToolSummary {
		level := req.Level
		if level == "" {
			level = "short"
		}
		instruction = fmt.Sprintf(prof.instruction, level)
		if level == "detailed" {
			prof.maxTokens = 1200
		}
	}

	prompt := fmt.Sprintf("%s\n\n%s\n\n[CONTEXT]\n%s", systemPrompt, instruction, buildContext(hits))
	res := g.llm.Generate(ctx, req.Mode, providers.GenRequest{
		Prompt:      prompt,
		MaxTokens:   prof.maxTokens,
		Temperature: prof.temperature,
	})
	if res.Provider == "none" || strings.TrimSpace(res.Text) == "" {
		return core.ToolResult{
			Text:         prof.heuristic(hits),
			SourceChunks: hits,
			Mode:         "heuristic",
		}, nil
	}
	return core.ToolResult{
		Text:              res.Text,
		SourceChunks:      hits,
		CreditUseEstimate: res.Usage,
	}, nil
}

func (g *Generator) qa(ctx context.Context, req Request) (core.ToolResult, error) {
	detected := req.TimeRange
	if detected == nil {
		detected = ParseTimeRange(req.Query)
	}

	var hits []core.SourceChunk
	var err error
	if detected != nil {
		start := detected.Start
		if start < 0 {
			start = 0
		}
		end := detected.End
		if end < start+1 {
			end = start + 1
		}
		if req.Mode == "fast" && g.slicer != nil {
			return g.slicer.FastSliceSummary(ctx, req.VideoID, start, end)
		}
		hits, err = g.retriever.TimeRangeSearch(ctx, req.VideoID, start, end, 12)
	} else {
		hits, err = g.retriever.SemanticSearch(ctx, req.VideoID, req.Query, 8)
	}
	if err != nil {
		return core.ToolResult{}, err
	}

	question := req.Query
	if detected != nil {
		question += fmt.Sprintf("\n\nFocus ONLY on %d-%d seconds.", int(detected.Start), int(detected.End))
	}
	prompt := fmt.Sprintf(
		"%s\n\n[CONTEXT CHUNKS]\n%s\n\nUser question: %s\n\nFormat required:\n- TL;DR (1-2 lines)\n- Answer (detailed, with inline timestamps like [12:32])\n- Key takeaways (3-8 bullets)\n- Suggested flashcards (term -> Q/A)",
		systemPrompt, buildContext(hits), question)

	res := g.llm.Generate(ctx, req.Mode, providers.GenRequest{
		Prompt:      prompt,
		MaxTokens:   900,
		Temperature: 0.2,
	})
	if res.Provider == "none" || strings.TrimSpace(res.Text) == "" {
		return core.ToolResult{
			Text:         qaHeuristic(hits),
			SourceChunks: hits,
			Mode:         "heuristic",
		}, nil
	}
	return core.ToolResult{
		Text:              res.Text,
		SourceChunks:      hits,
		CreditUseEstimate: res.Usage,
	}, nil
}

func buildContext(hits []core.SourceChunk) string {
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, fmt.Sprintf("chunk(%d-%d @ %.3f): %s", int(h.Start), int(h.End), h.Score, h.Excerpt))
	}
	return strings.Join(lines, "\n")
}

func qaHeuristic(hits []core.SourceChunk) string {
	n := len(hits)
	if n > 8 {
		n = 8
	}
	var b strings.Builder
	b.WriteString("TL;DR: Offline heuristic summary (LLM unavailable).\n\nKey points:\n")
	for _, h := range hits[:n] {
		fmt.Fprintf(&b, "- [%s] %s\n", core.FormatTimeRange(h.Start, h.End), h.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}

func heuristicBullets(header string, limit int) func([]core.SourceChunk) string {
	return func(hits []core.SourceChunk) string {
		if len(hits) > limit {
			hits = hits[:limit]
		}
		var b strings.Builder
		b.WriteString(header)
		for _, h := range hits {
			fmt.Fprintf(&b, "- [%s] %s\n", core.FormatTime(h.Start), h.Excerpt)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func heuristicNumbered(header string, limit int) func([]core.SourceChunk) string {
	return func(hits []core.SourceChunk) string {
		if len(hits) > limit {
			hits = hits[:limit]
		}
		var b strings.Builder
		b.WriteString(header)
		for i, h := range hits {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, core.FormatTime(h.Start), h.Excerpt)
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

func heuristicMindmap(hits []core.SourceChunk) string {
	if len(hits) > 12 {
		hits = hits[:12]
	}
	type node struct {
		Title     string `json:"title"`
		Depth     int    `json:"depth"`
		Timestamp int    `json:"timestamp"`
	}
	nodes := make([]node, 0, len(hits))
	for i, h := range hits {
		title := clipText(h.Excerpt, 60)
		nodes = append(nodes, node{Title: title, Depth: i%3 + 1, Timestamp: int(h.Start)})
	}
	return string(core.MustJSON(map[string]any{"nodes": nodes}))
}
