// Package app assembles the question-answering components from config.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/embedding"
	"github.com/dgallion1/pdfqa/internal/embedding/openai"
	"github.com/dgallion1/pdfqa/internal/embedding/tfidf"
	"github.com/dgallion1/pdfqa/internal/highlight"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/qa"
)

// Components are the long-lived pieces shared by the server and the CLI.
type Components struct {
	Answerer    llm.Answerer
	Stats       *llm.LLMStats
	Index       qa.IndexOptions
	Highlighter *highlight.Highlighter
	Assistant   *qa.Assistant
}

// Build wires Components from cfg. The artifact directory is created.
func Build(cfg config.Config, log *slog.Logger) (*Components, error) {
	stats := llm.NewLLMStats(time.Hour)
	answerer, err := llm.New(llm.Options{
		Provider:          cfg.LLMProvider,
		AnthropicAPIKey:   cfg.AnthropicAPIKey,
		AnthropicModel:    cfg.AnthropicModel,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		OpenAIModel:       cfg.OpenAIModel,
		RequestsPerMinute: cfg.LLMRequestsPerMinute,
	}, stats, log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	newEmbedder, err := embedderFactory(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.ArtifactDir, 0o700); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	h := highlight.NewHighlighter(nil, cfg.ArtifactDir, log)

	return &Components{
		Answerer: answerer,
		Stats:    stats,
		Index: qa.IndexOptions{
			Chunking: chunker.Config{
				ChunkSize:    cfg.ChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
				Separator:    cfg.ChunkSeparator,
			},
			NewEmbedder:       newEmbedder,
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
		},
		Highlighter: h,
		Assistant:   qa.NewAssistant(answerer, h, cfg.HighlightThreshold, cfg.TopK, log),
	}, nil
}

// Close releases remote clients.
func (c *Components) Close() {
	if closer, ok := c.Answerer.(interface{ Close() }); ok {
		closer.Close()
	}
}

func embedderFactory(cfg config.Config, log *slog.Logger) (func() embedding.Embedder, error) {
	switch cfg.Embedder {
	case "", "tfidf":
		// TF-IDF vocabularies are per document.
		return func() embedding.Embedder { return tfidf.NewEmbedder() }, nil
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIEmbeddingModel,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		return func() embedding.Embedder { return client }, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder)
	}
}
