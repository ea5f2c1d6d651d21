package providers

import (
	"context"
	"sync"
	"time"

	"edulens/config"
	"edulens/logger"
)

// Manager routes generation calls between the remote and local backends.
// Selection happens per call so budget exhaustion mid-run shifts later
// calls to the local backend. Every call that lands on a backend is
// retried with a doubling delay before the other backend is tried; if
// both fail the caller gets a usable sentinel result instead of an error.
type Manager struct {
	remote Provider
	local  Provider

	hasRemoteKey  bool
	creditBudget  int
	preferOffline bool

	attempts  int
	baseDelay time.Duration

	mu          sync.Mutex
	creditsUsed int
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		local:         NewOllamaProvider(cfg),
		hasRemoteKey:  cfg.HasRemoteAPI(),
		creditBudget:  cfg.CreditBudget,
		preferOffline: cfg.PreferOffline,
		attempts:      cfg.RetryAttempts,
		baseDelay:     time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
	}
	if m.hasRemoteKey {
		m.remote = NewGroqProvider(cfg)
	}
	return m
}

// CreditsUsed reports tokens consumed on the remote backend so far.
func (m *Manager) CreditsUsed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditsUsed
}

// Generate runs one generation call. Mode is "auto", "online", or
// "offline" ("remote"/"local" are accepted aliases).
// The chosen backend is retried, then the other backend is tried as a
// fallback. When neither backend answers the result carries provider
// "none" and a fixed notice text, never an error.
func (m *Manager) Generate(ctx context.Context, mode string, req GenRequest) GenResult {
	choice := ChooseProvider(SelectionInput{
		Mode:            mode,
		HasRemoteKey:    m.hasRemoteKey,
		CreditBudget:    m.creditBudget,
		CreditsUsed:     m.CreditsUsed(),
		PreferOffline:   m.preferOffline,
		EstimatedTokens: EstimateTokens(req.MaxTokens),
	})

	primary, secondary := m.pick(choice)
	for _, p := range []Provider{primary, secondary} {
		if p == nil {
			continue
		}
		res, err := m.generateWithRetry(ctx, p, req)
		if err == nil {
			m.recordUsage(res)
			return res
		}
		logger.L().WithField("provider", p.Name()).Warnf("generation failed, falling back: %v", err)
	}
	return GenResult{
		Text:     "AI provider unavailable",
		Provider: "none",
	}
}

// Embed vectorizes texts through the local embedding model. Texts that
// cannot be embedded get a deterministic bag-of-words vector so indexing
// never fails outright.
func (m *Manager) Embed(ctx context.Context, texts []string) [][]float32 {
	if m.local != nil {
		vecs, err := m.embedWithRetry(ctx, texts)
		if err == nil {
			return vecs
		}
		logger.L().Warnf("embedding backend failed, using bag-of-words fallback: %v", err)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = FallbackEmbedding(t)
	}
	return out
}

func (m *Manager) pick(choice string) (Provider, Provider) {
	if choice == "remote" && m.remote != nil {
		return m.remote, m.local
	}
	return m.local, m.remote
}

func (m *Manager) generateWithRetry(ctx context.Context, p Provider, req GenRequest) (GenResult, error) {
	var lastErr error
	delay := m.baseDelay
	for attempt := 0; attempt < m.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return GenResult{}, ctx.Err()
			}
			delay *= 2
		}
		res, err := p.Generate(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return GenResult{}, lastErr
}

func (m *Manager) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := m.baseDelay
	for attempt := 0; attempt < m.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
		vecs, err := m.local.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (m *Manager) recordUsage(res GenResult) {
	if res.Provider != "groq" {
		return
	}
	m.mu.Lock()
	m.creditsUsed += res.Usage.In + res.Usage.Out
	m.mu.Unlock()
}
