package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dgallion1/pdfqa/internal/parser"
	"github.com/dgallion1/pdfqa/internal/pipeline"
	"github.com/dgallion1/pdfqa/internal/session"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %q (only PDF)", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	if err := os.MkdirAll(s.cfg.DataDir, 0o700); err != nil {
		s.log.Error("create data dir", "error", err)
		jsonError(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	path := filepath.Join(s.cfg.DataDir, uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.log.Error("store upload", "error", err)
		jsonError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	sess := session.New(path, filename, true)
	s.sessions.Put(sess)

	job := pipeline.NewJob(uuid.NewString(), sess, filename, pipeline.ContentHashHex(data))
	if err := s.orchestrator.Submit(job); err != nil {
		s.sessions.Delete(sess.ID)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": sess.ID,
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/sessions/%s/status", sess.ID),
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	resp := map[string]any{
		"session_id": sess.ID,
		"pdf_name":   sess.PDFName,
		"turns":      len(sess.History()),
	}
	status := pipeline.StatusQueued
	if job := s.orchestrator.JobForSession(sess.ID); job != nil {
		snap := job.Snapshot()
		status = snap.Status
		resp["job_id"] = snap.ID
		resp["phase"] = snap.Phase
		resp["progress"] = snap.Progress
	}
	if idx, err := sess.Index(); err == nil {
		status = pipeline.StatusReady
		resp["stats"] = idx.Stats()
	}
	resp["status"] = status
	resp["ready"] = status == pipeline.StatusReady

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// session looks up the {sessionID} URL parameter, answering 404 itself when
// it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "sessionID")
	sess := s.sessions.Get(id)
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
