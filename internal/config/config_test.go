package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PDFQA_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChunkSize != 900 || cfg.ChunkOverlap != 200 || cfg.ChunkSeparator != "\n" {
		t.Errorf("unexpected chunking defaults: %d/%d/%q", cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkSeparator)
	}
	if cfg.HighlightThreshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", cfg.HighlightThreshold)
	}
	if cfg.LLMProvider != "extractive" || cfg.Embedder != "tfidf" {
		t.Errorf("expected offline providers, got %s/%s", cfg.LLMProvider, cfg.Embedder)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfqa.yaml")
	yml := "port: \"9000\"\ntop_k: 7\nhighlight_threshold: 0.75\nsession_ttl: 30m\nchunk_size: 500\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TOP_K", "3")
	t.Setenv("CHUNK_SEPARATOR", `\n\n`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port from file, got %q", cfg.Port)
	}
	if cfg.TopK != 3 {
		t.Errorf("expected env to override file, got top_k=%d", cfg.TopK)
	}
	if cfg.HighlightThreshold != 0.75 {
		t.Errorf("expected threshold from file, got %v", cfg.HighlightThreshold)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("expected chunk size from file, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkSeparator != "\n\n" {
		t.Errorf("expected unescaped separator, got %q", cfg.ChunkSeparator)
	}
}

func TestLoad_ConfigFromEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("worker_count: 6\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFQA_CONFIG", path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 6 {
		t.Errorf("expected worker_count 6, got %d", cfg.WorkerCount)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("top_k: [nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error for missing file")
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PDFQA_CONFIG", "")
	t.Setenv("WORKER_COUNT", "lots")
	t.Setenv("JOB_TTL", "-5m")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected non-positive ttl replaced by default, got %v", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"threshold too high", func(c *Config) { c.HighlightThreshold = 1 }, "HIGHLIGHT_THRESHOLD"},
		{"threshold negative", func(c *Config) { c.HighlightThreshold = -0.1 }, "HIGHLIGHT_THRESHOLD"},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"anthropic without key", func(c *Config) { c.LLMProvider = "anthropic" }, "ANTHROPIC_API_KEY"},
		{"openai without key", func(c *Config) { c.LLMProvider = "openai" }, "OPENAI_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "cohere" }, "LLM_PROVIDER"},
		{"openai embedder without key", func(c *Config) { c.Embedder = "openai" }, "OPENAI_API_KEY"},
		{"unknown embedder", func(c *Config) { c.Embedder = "bm25" }, "EMBEDDER"},
		{"anthropic with key", func(c *Config) { c.LLMProvider = "anthropic"; c.AnthropicAPIKey = "k" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}
