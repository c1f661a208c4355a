package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil || s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":       s.answerer.Model(),
		"stats":       s.stats.Snapshot(),
		"sessions":    s.sessions.Len(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
