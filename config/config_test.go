package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()
	if cfg.ChunkSeconds != 120 || cfg.ChunkOverlapSeconds != 10 {
		t.Errorf("chunk defaults: %v / %v", cfg.ChunkSeconds, cfg.ChunkOverlapSeconds)
	}
	if cfg.SegmentSeconds != 180 || cfg.SegmentOverlapSeconds != 2 || cfg.ASRConcurrency != 4 {
		t.Errorf("asr defaults: %v / %v / %v", cfg.SegmentSeconds, cfg.SegmentOverlapSeconds, cfg.ASRConcurrency)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryBaseDelayMs != 300 {
		t.Errorf("retry defaults: %v / %v", cfg.RetryAttempts, cfg.RetryBaseDelayMs)
	}
	if cfg.Store != "file" {
		t.Errorf("store default: %q", cfg.Store)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE", "pgvector")
	t.Setenv("PREFER_OFFLINE_ONLY", "true")
	t.Setenv("GROQ_CREDIT_BUDGET", "5000")

	cfg := defaults()
	applyEnv(cfg)
	if cfg.Port != "9999" || cfg.Store != "pgvector" {
		t.Errorf("string overrides: %q / %q", cfg.Port, cfg.Store)
	}
	if !cfg.PreferOffline {
		t.Error("bool override not applied")
	}
	if cfg.CreditBudget != 5000 {
		t.Errorf("int override: %d", cfg.CreditBudget)
	}
}

func TestFillZeroDefaults(t *testing.T) {
	cfg := &Config{ChunkSeconds: 0, ChunkOverlapSeconds: 500, TopK: -1}
	fillZeroDefaults(cfg)
	if cfg.ChunkSeconds != 120 {
		t.Errorf("ChunkSeconds = %v", cfg.ChunkSeconds)
	}
	// overlap larger than the window is nonsense and gets reset
	if cfg.ChunkOverlapSeconds != 10 {
		t.Errorf("ChunkOverlapSeconds = %v", cfg.ChunkOverlapSeconds)
	}
	if cfg.TopK != 8 {
		t.Errorf("TopK = %v", cfg.TopK)
	}
}

func TestHasRemoteAPI(t *testing.T) {
	cfg := &Config{}
	if cfg.HasRemoteAPI() {
		t.Error("empty key should not count")
	}
	cfg.GroqAPIKey = "your_groq_api_key_here"
	if cfg.HasRemoteAPI() {
		t.Error("placeholder key should not count")
	}
	cfg.GroqAPIKey = "gsk_real"
	if !cfg.HasRemoteAPI() {
		t.Error("real key should count")
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.Store = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown store should fail")
	}
	cfg.Store = "pgvector"
	if err := cfg.Validate(); err == nil {
		t.Error("pgvector without a url should fail")
	}
	cfg.PostgresURL = "postgres://localhost/edulens"
	if err := cfg.Validate(); err != nil {
		t.Errorf("pgvector with url: %v", err)
	}
}
