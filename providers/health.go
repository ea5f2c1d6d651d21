package providers

import (
	"context"
	"time"
)

// ProviderHealth is one backend's reachability report.
type ProviderHealth struct {
	Name      string   `json:"name"`
	Available bool     `json:"available"`
	Models    []string `json:"models,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type modelLister interface {
	Models(ctx context.Context) ([]string, error)
}

// Health probes each configured backend by listing its models.
func (m *Manager) Health(ctx context.Context) []ProviderHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []ProviderHealth
	for _, p := range []Provider{m.remote, m.local} {
		if p == nil {
			continue
		}
		h := ProviderHealth{Name: p.Name()}
		if lister, ok := p.(modelLister); ok {
			models, err := lister.Models(ctx)
			if err != nil {
				h.Error = err.Error()
			} else {
				h.Available = true
				h.Models = models
			}
		}
		out = append(out, h)
	}
	return out
}
