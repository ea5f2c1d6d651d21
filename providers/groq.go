package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"edulens/config"
	"edulens/core"
)

// GroqProvider talks to Groq through its OpenAI-compatible API.
type GroqProvider struct {
	client *openai.Client
	model  string
}

func NewGroqProvider(cfg *config.Config) *GroqProvider {
	oc := openai.DefaultConfig(cfg.GroqAPIKey)
	oc.BaseURL = cfg.GroqBaseURL
	return &GroqProvider{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.GroqModel,
	}
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
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
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return GenResult{}, fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return GenResult{}, fmt.Errorf("groq returned no choices")
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

func (p *GroqProvider) Models(ctx context.Context) ([]string, error) {
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

// Embed is unsupported on this backend; callers fall through to the local
// embedder.
func (p *GroqProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("groq: embeddings not supported")
}
