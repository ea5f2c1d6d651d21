package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config collects everything the pipeline reads from the environment.
// config.json is loaded first, then individual environment variables
// override it. Provider selection inputs (keys, budget, offline
// preference) all live here so the selection policy stays a pure function.
type Config struct {
	Port    string `json:"port"`
	DataDir string `json:"data_dir"`
	Store   string `json:"store"` // "file", "pgvector", "milvus"

	// Remote generation backend (Groq, OpenAI-compatible API).
	GroqAPIKey   string `json:"groq_api_key"`
	GroqBaseURL  string `json:"groq_base_url"`
	GroqModel    string `json:"groq_model"`
	CreditBudget int    `json:"credit_budget"`

	// Local backend (Ollama, via its OpenAI-compatible endpoint).
	OllamaBaseURL    string `json:"ollama_base_url"`
	OllamaModel      string `json:"ollama_model"`
	OllamaSmallModel string `json:"ollama_small_model"`
	OllamaEmbedModel string `json:"ollama_embed_model"`
	PreferOffline    bool   `json:"prefer_offline"`

	PostgresURL      string `json:"postgres_url"`
	MilvusAddr       string `json:"milvus_addr"`
	MilvusCollection string `json:"milvus_collection"`

	// External tools for acquisition.
	YtDlpPath    string `json:"ytdlp_path"`
	FFmpegPath   string `json:"ffmpeg_path"`
	FFProbePath  string `json:"ffprobe_path"`
	WhisperBin   string `json:"whisper_bin"`
	WhisperModel string `json:"whisper_model"`
	ASRProvider  string `json:"asr_provider"` // "whispercpp", "api", "mock", "" = auto

	// Chunking and retrieval.
	ChunkSeconds        float64 `json:"chunk_seconds"`
	ChunkOverlapSeconds float64 `json:"chunk_overlap_seconds"`
	ChunkMaxChars       int     `json:"chunk_max_chars"`
	TopK                int     `json:"top_k"`

	// Parallel speech-to-text.
	SegmentSeconds        float64 `json:"segment_seconds"`
	SegmentOverlapSeconds float64 `json:"segment_overlap_seconds"`
	ASRConcurrency        int     `json:"asr_concurrency"`

	// Fast-slice summaries.
	SliceMaxParts int `json:"slice_max_parts"`

	TranslateBatchChars int `json:"translate_batch_chars"`

	RetryAttempts    int `json:"retry_attempts"`
	RetryBaseDelayMs int `json:"retry_base_delay_ms"`

	RequestsPerMinute int `json:"requests_per_minute"`
	RateBurst         int `json:"rate_burst"`
}

var globalConfig *Config

// Load reads config.json (if present), applies environment overrides, and
// caches the result for the process lifetime.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg := defaults()
	if data, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config.json: %w", err)
		}
	}
	applyEnv(cfg)
	fillZeroDefaults(cfg)

	globalConfig = cfg
	return globalConfig, nil
}

// Reset drops the cached config. Tests only.
func Reset() { globalConfig = nil }

func defaults() *Config {
	return &Config{
		Port:                  "8080",
		DataDir:               "data",
		Store:                 "file",
		GroqBaseURL:           "https://api.groq.com/openai/v1",
		GroqModel:             "llama-3.1-70b-versatile",
		OllamaBaseURL:         "http://localhost:11434",
		OllamaModel:           "llama3.2:3b",
		OllamaSmallModel:      "llama3.2:1b",
		OllamaEmbedModel:      "nomic-embed-text",
		MilvusCollection:      "video_chunks",
		YtDlpPath:             "yt-dlp",
		FFmpegPath:            "ffmpeg",
		FFProbePath:           "ffprobe",
		ChunkSeconds:          120,
		ChunkOverlapSeconds:   10,
		ChunkMaxChars:         2000,
		TopK:                  8,
		SegmentSeconds:        180,
		SegmentOverlapSeconds: 2,
		ASRConcurrency:        4,
		SliceMaxParts:         10,
		TranslateBatchChars:   1800,
		RetryAttempts:         3,
		RetryBaseDelayMs:      300,
		RequestsPerMinute:     120,
		RateBurst:             30,
	}
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	setStr(&cfg.Port, "PORT")
	setStr(&cfg.DataDir, "DATA_DIR")
	setStr(&cfg.Store, "STORE")
	setStr(&cfg.GroqAPIKey, "GROQ_API_KEY")
	setStr(&cfg.GroqBaseURL, "GROQ_BASE_URL")
	setStr(&cfg.GroqModel, "GROQ_MODEL")
	setInt(&cfg.CreditBudget, "GROQ_CREDIT_BUDGET")
	setStr(&cfg.OllamaBaseURL, "OLLAMA_HOST")
	setStr(&cfg.OllamaModel, "OLLAMA_MODEL")
	setStr(&cfg.OllamaSmallModel, "OLLAMA_SMALL_MODEL")
	setStr(&cfg.OllamaEmbedModel, "OLLAMA_EMBED_MODEL")
	setBool(&cfg.PreferOffline, "PREFER_OFFLINE_ONLY")
	setStr(&cfg.PostgresURL, "POSTGRES_URL")
	setStr(&cfg.MilvusAddr, "MILVUS_ADDR")
	setStr(&cfg.MilvusCollection, "MILVUS_COLLECTION")
	setStr(&cfg.YtDlpPath, "YTDLP_PATH")
	setStr(&cfg.FFmpegPath, "FFMPEG_PATH")
	setStr(&cfg.FFProbePath, "FFPROBE_PATH")
	setStr(&cfg.WhisperBin, "WHISPER_CPP_BIN")
	setStr(&cfg.WhisperModel, "WHISPER_MODEL")
	setStr(&cfg.ASRProvider, "ASR")
	setInt(&cfg.ASRConcurrency, "ASR_CONCURRENCY")
}

// fillZeroDefaults guards against a sparse config.json zeroing out knobs
// the pipeline divides by.
func fillZeroDefaults(cfg *Config) {
	def := defaults()
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = def.ChunkSeconds
	}
	if cfg.ChunkOverlapSeconds < 0 || cfg.ChunkOverlapSeconds >= cfg.ChunkSeconds {
		cfg.ChunkOverlapSeconds = def.ChunkOverlapSeconds
	}
	if cfg.ChunkMaxChars <= 0 {
		cfg.ChunkMaxChars = def.ChunkMaxChars
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = def.SegmentSeconds
	}
	if cfg.ASRConcurrency <= 0 {
		cfg.ASRConcurrency = def.ASRConcurrency
	}
	if cfg.SliceMaxParts <= 0 {
		cfg.SliceMaxParts = def.SliceMaxParts
	}
	if cfg.TranslateBatchChars <= 0 {
		cfg.TranslateBatchChars = def.TranslateBatchChars
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryBaseDelayMs <= 0 {
		cfg.RetryBaseDelayMs = def.RetryBaseDelayMs
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
}

// HasRemoteAPI reports whether the remote backend is usable at all.
func (c *Config) HasRemoteAPI() bool {
	key := strings.TrimSpace(c.GroqAPIKey)
	return key != "" && key != "your_groq_api_key_here"
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.DataDir) == "" {
		problems = append(problems, "data_dir is required")
	}
	switch c.Store {
	case "file", "pgvector", "milvus":
	default:
		problems = append(problems, fmt.Sprintf("unknown store %q", c.Store))
	}
	if c.Store == "pgvector" && strings.TrimSpace(c.PostgresURL) == "" {
		problems = append(problems, "postgres_url is required for pgvector store")
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
