package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/pdfqa/internal/session"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusChunking, "chunking"},
		{StatusEmbedding, "embedding"},
		{StatusReady, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_TerminalStatusIsFinal(t *testing.T) {
	job := NewJob("j", session.New("x.pdf", "x.pdf", false), "x.pdf", "")
	job.SetStatus(StatusFailed, "parsing")
	job.SetStatus(StatusReady, "done")
	if job.Status != StatusFailed {
		t.Errorf("expected failed to stick, got %q", job.Status)
	}
	select {
	case <-job.Wait():
	default:
		t.Error("expected Wait to be released")
	}
}

func TestJob_WaitOnZeroValueJob(t *testing.T) {
	job := &Job{ID: "bare", Status: StatusReady}
	select {
	case <-job.Wait():
	default:
		t.Error("expected Wait on finished job to be closed")
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse failed")
	job.AddError("embed failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse failed" {
		t.Errorf("expected first error %q, got %q", "parse failed", snap.Progress.Errors[0])
	}
}

func TestJob_Progress(t *testing.T) {
	job := &Job{ID: "progress", UpdatedAt: time.Now()}
	job.SetDocumentStats(3, 1200)
	job.SetTotalChunks(4)
	job.SetChunksEmbedded(2)

	p := job.Snapshot().Progress
	if p.Pages != 3 || p.Chars != 1200 {
		t.Errorf("unexpected document stats: %+v", p)
	}
	if p.TotalChunks != 4 || p.ChunksEmbedded != 2 {
		t.Errorf("unexpected chunk progress: %+v", p)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	sess := session.New("a.pdf", "a.pdf", false)
	job := NewJob("store-1", sess, "a.pdf", "")
	store.Put(job)

	if got := store.Get("store-1"); got == nil || got.ID != "store-1" {
		t.Fatalf("expected to get job back, got %v", got)
	}
	if got := store.ForSession(sess.ID); got != job {
		t.Errorf("expected job by session id")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", SessionID: "s-old", UpdatedAt: time.Now()}
	store.Put(expired)

	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.ForSession("s-old") != nil {
		t.Error("expected session index entry to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	store.Cleanup()
}
