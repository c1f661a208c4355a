package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/session"
)

type askRequest struct {
	Question     string   `json:"question"`
	Threshold    *float64 `json:"threshold,omitempty"`
	DownloadLink bool     `json:"download_link,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	threshold := s.assistant.Threshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < 0 || threshold >= 1 {
			jsonError(w, "threshold must be in [0,1)", http.StatusBadRequest)
			return
		}
	}

	idx, err := sess.Index()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	ans, err := s.assistant.AskThreshold(r.Context(), sess, idx, req.Question, threshold)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.log.Error("ask failed", "session_id", sess.ID, "error", err)
		jsonError(w, "failed to answer question", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"turn":   ans.Turn,
		"answer": ans.Text,
		"pages":  ans.Pages,
	}
	if ans.ArtifactPath != "" {
		resp["artifact_url"] = fmt.Sprintf("/api/sessions/%s/artifacts/%d", sess.ID, ans.Turn)
		if req.DownloadLink {
			link, err := session.DownloadLink(ans.ArtifactPath, highlightedName(sess.PDFName))
			if err != nil {
				s.log.Warn("build download link", "session_id", sess.ID, "error", err)
			} else {
				resp["download_link"] = link
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	turn, err := strconv.Atoi(chi.URLParam(r, "turn"))
	if err != nil {
		jsonError(w, "turn must be an integer", http.StatusBadRequest)
		return
	}

	path, err := sess.ArtifactForTurn(turn)
	switch {
	case errors.Is(err, session.ErrNotAnswer):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		jsonError(w, session.ErrNoArtifact.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "failed to read artifact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", highlightedName(sess.PDFName)))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

type feedbackRequest struct {
	Turn     int  `json:"turn"`
	Positive bool `json:"positive"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4*1024)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := sess.SetFeedback(req.Turn, req.Positive)
	switch {
	case errors.Is(err, session.ErrNoTurn):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	feedback := "negative"
	if req.Positive {
		feedback = "positive"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"turn": req.Turn, "feedback": feedback})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	now := time.Now()
	data, err := sess.ExportJSON(now)
	if err != nil {
		jsonError(w, "failed to export chat history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.ExportFilename(now)))
	w.Write(data)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.sessions.Delete(id) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	s.log.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func highlightedName(pdfName string) string {
	return "highlighted_" + pdfName
}
