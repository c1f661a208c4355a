// Package session holds the per-user state of one PDF conversation: the
// retrieval index, chat history, feedback and highlighted artifacts.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdfqa/internal/doctree"
	"github.com/dgallion1/pdfqa/internal/vectorstore"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrNoTurn     = errors.New("no such turn")
	ErrNotAnswer  = errors.New("turn is not an assistant answer")
	ErrNotReady   = errors.New("document is still being processed")
	ErrNoArtifact = errors.New("turn has no highlighted document")
)

// Retriever is the searchable index built from the session's PDF.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error)
	Stats() doctree.Stats
}

// Turn is one chat message. Assistant turns carry the matched pages and
// the highlighted copy produced for them, if any.
type Turn struct {
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	Pages    []int     `json:"pages,omitempty"`
	Artifact string    `json:"-"`
	Time     time.Time `json:"time"`
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	ID      string
	PDFPath string
	PDFName string

	createdAt  time.Time
	lastUsed   time.Time
	ownsUpload bool

	index     Retriever
	history   []Turn
	feedback  map[int]bool
	artifacts map[string]string // question -> highlighted copy
	closed    bool
}

// New creates a session for the PDF at pdfPath. When ownsUpload is set the
// file is removed on Close.
func New(pdfPath, pdfName string, ownsUpload bool) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		PDFPath:    pdfPath,
		PDFName:    pdfName,
		createdAt:  now,
		lastUsed:   now,
		ownsUpload: ownsUpload,
		feedback:   make(map[int]bool),
		artifacts:  make(map[string]string),
	}
}

func (s *Session) touchLocked() { s.lastUsed = time.Now() }

// LastUsed reports when the session was last read or written.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SetIndex attaches the retrieval index once ingestion finishes.
func (s *Session) SetIndex(idx Retriever) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = idx
	s.touchLocked()
}

// Index returns the retrieval index, or ErrNotReady.
func (s *Session) Index() (Retriever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil, ErrNotReady
	}
	s.touchLocked()
	return s.index, nil
}

// AddQuestion appends a user turn and returns its index.
func (s *Session) AddQuestion(question string) int {
	return s.add(Turn{Role: RoleUser, Content: question, Time: time.Now()})
}

// AddAnswer appends an assistant turn and returns its index.
func (s *Session) AddAnswer(answer string, pages []int, artifact string) int {
	return s.add(Turn{
		Role:     RoleAssistant,
		Content:  answer,
		Pages:    slices.Clone(pages),
		Artifact: artifact,
		Time:     time.Now(),
	})
}

func (s *Session) add(t Turn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && t.Artifact != "" {
		// Close already ran, nothing else will remove it.
		os.Remove(t.Artifact)
		t.Artifact = ""
	}
	s.history = append(s.history, t)
	s.touchLocked()
	return len(s.history) - 1
}

// History returns a copy of the chat history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	for i, t := range s.history {
		t.Pages = slices.Clone(t.Pages)
		out[i] = t
	}
	return out
}

// Turn returns the turn at index i.
func (s *Session) Turn(i int) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.history) {
		return Turn{}, fmt.Errorf("%w: %d", ErrNoTurn, i)
	}
	t := s.history[i]
	t.Pages = slices.Clone(t.Pages)
	return t, nil
}

// SetArtifact records the highlighted copy produced for question. A copy
// previously produced for the same question is deleted first. On a closed
// session the new copy is deleted instead of recorded.
func (s *Session) SetArtifact(question, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if path != "" {
			os.Remove(path)
		}
		return
	}
	if prev, ok := s.artifacts[question]; ok && prev != path {
		os.Remove(prev)
	}
	if path == "" {
		delete(s.artifacts, question)
		return
	}
	s.artifacts[question] = path
}

// Artifact returns the highlighted copy recorded for question.
func (s *Session) Artifact(question string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.artifacts[question]
	return p, ok
}

// ArtifactForTurn returns the highlighted copy attached to an assistant turn.
// Artifacts replaced by a later answer to the same question are gone.
func (s *Session) ArtifactForTurn(i int) (string, error) {
	t, err := s.Turn(i)
	if err != nil {
		return "", err
	}
	if t.Role != RoleAssistant {
		return "", ErrNotAnswer
	}
	if t.Artifact == "" {
		return "", ErrNoArtifact
	}
	if _, err := os.Stat(t.Artifact); err != nil {
		return "", ErrNoArtifact
	}
	return t.Artifact, nil
}

// SetFeedback records a thumbs up or down for an assistant turn.
func (s *Session) SetFeedback(turn int, positive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn < 0 || turn >= len(s.history) {
		return fmt.Errorf("%w: %d", ErrNoTurn, turn)
	}
	if s.history[turn].Role != RoleAssistant {
		return ErrNotAnswer
	}
	s.feedback[turn] = positive
	s.touchLocked()
	return nil
}

// Feedback returns the feedback for a turn and whether any was given.
func (s *Session) Feedback(turn int) (positive, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	positive, ok = s.feedback[turn]
	return positive, ok
}

// ClearHistory drops the chat history and feedback. Artifacts stay on disk
// until Close.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.feedback = make(map[int]bool)
	s.touchLocked()
}

// Close removes every artifact and, if owned, the uploaded PDF.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for q, p := range s.artifacts {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		delete(s.artifacts, q)
	}
	for _, t := range s.history {
		if t.Artifact == "" {
			continue
		}
		if err := os.Remove(t.Artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if s.ownsUpload && s.PDFPath != "" {
		if err := os.Remove(s.PDFPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.index = nil
	return errors.Join(errs...)
}

type exportMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type export struct {
	PDFName     string          `json:"pdf_name"`
	Date        string          `json:"date"`
	ChatHistory []exportMessage `json:"chat_history"`
}

// ExportJSON renders the chat history for download.
func (s *Session) ExportJSON(now time.Time) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := export{
		PDFName:     s.PDFName,
		Date:        now.Format("2006-01-02 15:04:05"),
		ChatHistory: make([]exportMessage, 0, len(s.history)),
	}
	for _, t := range s.history {
		out.ChatHistory = append(out.ChatHistory, exportMessage{Role: t.Role, Content: t.Content})
	}
	return json.MarshalIndent(out, "", "  ")
}

// ExportFilename is the suggested file name for ExportJSON output.
func ExportFilename(now time.Time) string {
	return "chat_history_" + now.Format("20060102_150405") + ".json"
}

// DownloadLink returns an HTML anchor embedding the PDF at path as a
// base64 data URI.
func DownloadLink(path, filename string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if filename == "" {
		filename = "highlighted.pdf"
	}
	b64 := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf(`<a href="data:application/pdf;base64,%s" download="%s" target="_blank">View Highlighted PDF</a>`,
		b64, html.EscapeString(filename)), nil
}
