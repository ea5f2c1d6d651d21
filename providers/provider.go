package providers

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"edulens/core"
)

// GenRequest is one generation call. Small selects the cheaper model on
// backends that have one; backends without ignore it.
type GenRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	Small       bool
}

// GenResult carries the generated text plus which backend produced it.
type GenResult struct {
	Text     string
	Provider string
	Usage    core.TokenUsage
}

// Provider is one generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenRequest) (GenResult, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SelectionInput holds everything the provider choice depends on, so the
// policy itself stays a pure function.
type SelectionInput struct {
	Mode            string // "auto", "online", "offline" ("remote"/"local" accepted too)
	HasRemoteKey    bool
	CreditBudget    int // 0 means unlimited
	CreditsUsed     int
	PreferOffline   bool
	EstimatedTokens int
}

// ChooseProvider picks which backend to try first. "offline" forces the
// local backend, "online" takes remote whenever a key is configured with
// no budget check; otherwise local wins whenever the remote backend is
// unusable, avoided, or would blow the credit budget.
func ChooseProvider(in SelectionInput) string {
	switch in.Mode {
	case "offline", "local":
		return "local"
	case "remote":
		return "remote"
	case "online":
		if in.HasRemoteKey {
			return "remote"
		}
		return "local"
	}
	if in.PreferOffline || !in.HasRemoteKey {
		return "local"
	}
	if in.CreditBudget > 0 && in.CreditsUsed+in.EstimatedTokens > in.CreditBudget {
		return "local"
	}
	return "remote"
}

// EstimateTokens is the pre-call cost estimate used against the credit
// budget: the completion cap plus a flat allowance for the prompt.
func EstimateTokens(maxTokens int) int {
	return maxTokens + 500
}

const fallbackDims = 512

var wordRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// FallbackEmbedding builds a deterministic bag-of-words vector when no
// embedding backend is reachable. The vocabulary is the text's own terms,
// capped at the vector size, each weighted by term frequency.
func FallbackEmbedding(text string) []float32 {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	vec := make([]float32, fallbackDims)
	if len(words) == 0 {
		return vec
	}
	freq := make(map[string]int)
	for _, w := range words {
		freq[w]++
	}
	terms := make([]string, 0, len(freq))
	for w := range freq {
		terms = append(terms, w)
	}
	sort.Strings(terms)
	if len(terms) > fallbackDims {
		terms = terms[:fallbackDims]
	}
	total := float32(len(words))
	for i, w := range terms {
		vec[i] = float32(freq[w]) / total
	}
	return vec
}
