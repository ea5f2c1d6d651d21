package pipeline

import (
	"context"
	"fmt"
	"strings"

	"edulens/core"
	"edulens/providers"
	"edulens/storage"
)

// FastSlicer precomputes a tiny digest per chunk during indexing, then
// answers time-bounded requests by combining cached digests with one
// cheap synthesis call instead of a full-context generation.
type FastSlicer struct {
	store     storage.IndexStore
	artifacts *storage.Artifacts
	llm       LLM
	maxParts  int
}

func NewFastSlicer(store storage.IndexStore, artifacts *storage.Artifacts, llm LLM, maxParts int) *FastSlicer {
	return &FastSlicer{store: store, artifacts: artifacts, llm: llm, maxParts: maxParts}
}

// Precompute generates a 1-2 sentence digest for every chunk with the
// small model profile and persists the whole map at once.
func (f *FastSlicer) Precompute(ctx context.Context, videoID string, chunks []core.Chunk, progress func(done, total int)) error {
	out := core.ParallelXCache{VideoID: videoID, ChunkTlDr: map[string]string{}}
	for i, c := range chunks {
		text := clipText(c.Text, 1500)
		prompt := fmt.Sprintf("Summarize in 1-2 sentences with a timestamp hint: [%d-%d]\n\n%s", int(c.Start), int(c.End), text)
		res := f.llm.Generate(ctx, "auto", providers.GenRequest{
			Prompt:      prompt,
			MaxTokens:   120,
			Temperature: 0.2,
			Small:       true,
		})
		out.ChunkTlDr[c.ChunkID] = strings.TrimSpace(res.Text)
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}
	return f.artifacts.SaveSession(videoID, "parallelx", out)
}

func (f *FastSlicer) loadCache(videoID string) core.ParallelXCache {
	px := core.ParallelXCache{VideoID: videoID, ChunkTlDr: map[string]string{}}
	f.artifacts.LoadSession(videoID, "parallelx", &px)
	if px.ChunkTlDr == nil {
		px.ChunkTlDr = map[string]string{}
	}
	return px
}

// FastSliceSummary answers a [start, end) window from cached digests.
// Chunks without a digest contribute their raw excerpt instead, so the
// answer degrades rather than fails.
func (f *FastSlicer) FastSliceSummary(ctx context.Context, videoID string, start, end float64) (core.ToolResult, error) {
	px := f.loadCache(videoID)
	idx, ok, err := f.store.LoadIndex(ctx, videoID)
	if err != nil {
		return core.ToolResult{}, err
	}
	if !ok {
		return core.ToolResult{Text: "Index missing", SourceChunks: []core.SourceChunk{}}, nil
	}

	var parts []core.EmbeddingRecord
	for _, rec := range idx.Vectors {
		if rec.End <= start || rec.Start >= end {
			continue
		}
		parts = append(parts, rec)
		if len(parts) == f.maxParts {
			break
		}
	}

	lines := make([]string, 0, len(parts))
	sources := make([]core.SourceChunk, 0, len(parts))
	for i, p := range parts {
		digest := px.ChunkTlDr[p.ChunkID]
		if digest == "" {
			digest = fmt.Sprintf("Time %d-%d: %s", int(p.Start), int(p.End), p.Excerpt)
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, digest))
		sources = append(sources, core.SourceChunk{
			ChunkID: p.ChunkID,
			Start:   p.Start,
			End:     p.End,
			Excerpt: p.Excerpt,
		})
	}

	prompt := fmt.Sprintf("Combine the following mini-summaries into: (1) Concise Answer (<= 60s read) (2) Key Points (6-12 bullets with timestamps).\n\n%s", strings.Join(lines, "\n"))
	res := f.llm.Generate(ctx, "auto", providers.GenRequest{
		Prompt:      prompt,
		MaxTokens:   400,
		Temperature: 0.2,
		Small:       true,
	})
	text := res.Text
	if res.Provider == "none" || strings.TrimSpace(text) == "" {
		text = "TL;DR (cached digests):\n" + strings.Join(lines, "\n")
	}
	return core.ToolResult{
		Text:              text,
		SourceChunks:      sources,
		CreditUseEstimate: res.Usage,
		Mode:              "parallelx",
	}, nil
}
