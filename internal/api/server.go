package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/pipeline"
	"github.com/dgallion1/pdfqa/internal/qa"
	"github.com/dgallion1/pdfqa/internal/session"
)

// Server is the HTTP API server for pdfqa.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	sessions     *session.Store
	assistant    *qa.Assistant
	answerer     llm.Answerer
	stats        *llm.LLMStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, sessions *session.Store, assistant *qa.Assistant, answerer llm.Answerer, stats *llm.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		sessions:     sessions,
		assistant:    assistant,
		answerer:     answerer,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		r.Use(RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/status", s.handleSessionStatus)
			r.Post("/ask", s.handleAsk)
			r.Get("/artifacts/{turn}", s.handleArtifact)
			r.Post("/feedback", s.handleFeedback)
			r.Get("/export", s.handleExport)
			r.Delete("/history", s.handleClearHistory)
			r.Delete("/", s.handleDeleteSession)
		})
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
