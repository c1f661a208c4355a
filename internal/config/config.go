package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Answer generation
	LLMProvider     string `yaml:"llm_provider"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIModel     string `yaml:"openai_model"`

	// Remote LLM pacing
	LLMRequestsPerMinute int `yaml:"llm_rpm"`

	// Retrieval
	Embedder             string `yaml:"embedder"`
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`
	TopK                 int    `yaml:"top_k"`

	// Chunking
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	ChunkSeparator string `yaml:"chunk_separator"`

	// Highlighting
	HighlightThreshold float64 `yaml:"highlight_threshold"`
	ArtifactDir        string  `yaml:"artifact_dir"`

	// Uploaded PDFs
	DataDir        string `yaml:"data_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// State lifetimes
	JobTTL     time.Duration `yaml:"job_ttl"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Per-client HTTP rate limit
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		LLMProvider:          "extractive",
		AnthropicModel:       "claude-sonnet-4-5-20250929",
		OpenAIBaseURL:        "https://api.openai.com/v1",
		OpenAIModel:          "gpt-4o-mini",
		LLMRequestsPerMinute: 60,
		Embedder:             "tfidf",
		OpenAIEmbeddingModel: "text-embedding-3-small",
		TopK:                 4,
		ChunkSize:            900,
		ChunkOverlap:         200,
		ChunkSeparator:       "\n",
		HighlightThreshold:   0.6,
		ArtifactDir:          filepath.Join(os.TempDir(), "pdfqa", "artifacts"),
		DataDir:              filepath.Join(os.TempDir(), "pdfqa", "uploads"),
		MaxUploadBytes:       52428800, // 50MB
		WorkerCount:          2,
		MaxQueueSize:         50,
		JobTTL:               1 * time.Hour,
		SessionTTL:           2 * time.Hour,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		PDFFallbackPdftotext: true,
	}
}

// Load reads .env (if present), then the YAML file at path (or
// $PDFQA_CONFIG when path is empty), then environment variables.
// Later sources win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv("PDFQA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("PDFQA_API_KEY", c.APIKey)

	c.LLMProvider = envOr("LLM_PROVIDER", c.LLMProvider)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = envOr("OPENAI_MODEL", c.OpenAIModel)
	c.LLMRequestsPerMinute = envInt("LLM_RPM", c.LLMRequestsPerMinute)

	c.Embedder = envOr("EMBEDDER", c.Embedder)
	c.OpenAIEmbeddingModel = envOr("OPENAI_EMBEDDING_MODEL", c.OpenAIEmbeddingModel)
	c.TopK = envInt("TOP_K", c.TopK)

	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CHUNK_OVERLAP", c.ChunkOverlap)
	if v := os.Getenv("CHUNK_SEPARATOR"); v != "" {
		// Accept escaped forms like "\n" from .env files.
		if s, err := strconv.Unquote(`"` + v + `"`); err == nil {
			v = s
		}
		c.ChunkSeparator = v
	}

	c.HighlightThreshold = envFloat("HIGHLIGHT_THRESHOLD", c.HighlightThreshold)
	c.ArtifactDir = envOr("ARTIFACT_DIR", c.ArtifactDir)

	c.DataDir = envOr("DATA_DIR", c.DataDir)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.SessionTTL = envDuration("SESSION_TTL", c.SessionTTL)

	c.RateLimitRPS = envFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
}

func (c *Config) fillDefaults() {
	def := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = def.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = def.MaxUploadBytes
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = def.ChunkOverlap
	}
	if c.ChunkSeparator == "" {
		c.ChunkSeparator = def.ChunkSeparator
	}
	if c.LLMRequestsPerMinute <= 0 {
		c.LLMRequestsPerMinute = def.LLMRequestsPerMinute
	}
	if c.JobTTL <= 0 {
		c.JobTTL = def.JobTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = def.RateLimitBurst
	}
}

func (c Config) Validate() error {
	if c.HighlightThreshold < 0 || c.HighlightThreshold >= 1 {
		return fmt.Errorf("HIGHLIGHT_THRESHOLD must be in [0,1), got %v", c.HighlightThreshold)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	switch c.LLMProvider {
	case "extractive":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for LLM_PROVIDER=anthropic")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.Embedder {
	case "tfidf":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for EMBEDDER=openai")
		}
	default:
		return fmt.Errorf("unknown EMBEDDER %q", c.Embedder)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
