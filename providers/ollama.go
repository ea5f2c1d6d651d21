package providers

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"edulens/config"
	"edulens/core"
)

// OllamaProvider talks to a local Ollama daemon through its
// OpenAI-compatible /v1 endpoint. It carries a main model, an optional
// small model for cheap digest calls, and an embedding model.
type OllamaProvider struct {
	client     *openai.Client
	model      string
	smallModel string
	embedModel string
}

func NewOllamaProvider(cfg *config.Config) *OllamaProvider {
	oc := openai.DefaultConfig("ollama") // the daemon ignores the key
	oc.BaseURL = strings.TrimRight(cfg.OllamaBaseURL, "/") + "/v1"
	return &OllamaProvider{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.OllamaModel,
		smallModel: cfg.OllamaSmallModel,
		embedModel: cfg.OllamaEmbedModel,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
	model := p.model
	if req.Small && p.smallModel != "" {
		model = p.smallModel
	}
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return GenResult{}, fmt.Errorf("ollama chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GenResult{}, fmt.Errorf("ollama returned no choices")
	}
	return GenResult{
		Text:     resp.Choices[0].Message.Content,
		Provider: p.Name(),
		Usage: core.TokenUsage{
			In:  resp.Usage.PromptTokens,
			Out: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *OllamaProvider) Models(ctx context.Context) ([]string, error) {
	resp, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embedModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("ollama embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
