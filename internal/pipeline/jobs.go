package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/pdfqa/internal/session"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusChunking  JobStatus = "chunking"
	StatusEmbedding JobStatus = "embedding"
	StatusReady     JobStatus = "ready"
	StatusFailed    JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool { return s == StatusReady || s == StatusFailed }

// Job tracks the ingestion of one uploaded PDF into its session.
type Job struct {
	mu sync.Mutex

	ID        string `json:"job_id"`
	SessionID string `json:"session_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	session *session.Session
	errors  []string
	done    chan struct{}
}

// Progress tracks processing progress.
type Progress struct {
	Pages          int      `json:"pages"`
	Chars          int      `json:"chars"`
	TotalChunks    int      `json:"total_chunks"`
	ChunksEmbedded int      `json:"chunks_embedded"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job that will index sess.
func NewJob(id string, sess *session.Session, filename, contentHash string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		SessionID:   sess.ID,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: contentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
		session:     sess,
		done:        make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	bySession map[string]string
	ttl       time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs:      make(map[string]*Job),
		bySession: make(map[string]string),
		ttl:       ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	if job.SessionID != "" {
		s.bySession[job.SessionID] = job.ID
	}
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// ForSession returns the most recent job for a session.
func (s *JobStore) ForSession(sessionID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[s.bySession[sessionID]]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
			if s.bySession[job.SessionID] == id {
				delete(s.bySession, job.SessionID)
			}
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically. Terminal statuses release
// Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Done() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Done() && j.done != nil {
		close(j.done)
	}
}

// Wait returns a channel closed once the job reaches ready or failed.
func (j *Job) Wait() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done == nil {
		j.done = make(chan struct{})
		if j.Status.Done() {
			close(j.done)
		}
	}
	return j.done
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetDocumentStats records page and character counts.
func (j *Job) SetDocumentStats(pages, chars int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = pages
	j.Progress.Chars = chars
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// SetChunksEmbedded records embedding progress.
func (j *Job) SetChunksEmbedded(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksEmbedded = n
	j.UpdatedAt = time.Now()
}

// Session returns the session the job indexes.
func (j *Job) Session() *session.Session {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.session
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	SessionID   string    `json:"session_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		SessionID:   j.SessionID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
