package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pdfqa/internal/api"
	"github.com/dgallion1/pdfqa/internal/app"
	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/pipeline"
	"github.com/dgallion1/pdfqa/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfgPath := flag.String("config", "", "YAML config file (defaults to $PDFQA_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		log.Warn("PDFQA_API_KEY is empty, API authentication disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := app.Build(cfg, log)
	if err != nil {
		log.Error("initialize components", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline and session registry.
	orch := pipeline.NewOrchestrator(cfg, comps.Index, log)
	orch.Start(ctx)

	sessions := session.NewStore(cfg.SessionTTL, log)
	go sessions.Run(ctx, time.Minute)

	// Initialize HTTP server.
	srv := api.NewServer(orch, sessions, comps.Assistant, comps.Answerer, comps.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		cancel()
		sessions.CloseAll()
		comps.Close()
	}()

	log.Info("starting pdfqa", "port", cfg.Port, "llm", comps.Answerer.Model(), "embedder", cfg.Embedder)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
