package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/pdfdoc/pdftest"
	"github.com/dgallion1/pdfqa/internal/qa"
	"github.com/dgallion1/pdfqa/internal/session"
)

func testConfig(workers, queue int) config.Config {
	cfg := config.Defaults()
	cfg.WorkerCount = workers
	cfg.MaxQueueSize = queue
	return cfg
}

func waitJob(t *testing.T, job *Job) {
	t.Helper()
	select {
	case <-job.Wait():
	case <-time.After(10 * time.Second):
		t.Fatalf("job %s did not finish, status %s", job.ID, job.Snapshot().Status)
	}
}

func TestOrchestrator_IndexesSession(t *testing.T) {
	src := pdftest.Write(t, "guide.pdf", [][]string{
		{"Install the package.", "Run the setup wizard."},
		{"Restart when prompted."},
	})

	o := NewOrchestrator(testConfig(1, 4), qa.IndexOptions{}, nil)
	o.Start(context.Background())
	defer o.Stop()

	sess := session.New(src, "guide.pdf", false)
	job := NewJob("job-1", sess, "guide.pdf", "")
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitJob(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusReady {
		t.Fatalf("expected ready, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Pages != 2 || snap.Progress.TotalChunks == 0 {
		t.Errorf("unexpected progress: %+v", snap.Progress)
	}
	if snap.Progress.ChunksEmbedded != snap.Progress.TotalChunks {
		t.Errorf("expected all chunks embedded, got %d/%d", snap.Progress.ChunksEmbedded, snap.Progress.TotalChunks)
	}

	idx, err := sess.Index()
	if err != nil {
		t.Fatalf("expected session index, got %v", err)
	}
	if idx.Stats().Pages != 2 {
		t.Errorf("expected 2 pages in index stats, got %d", idx.Stats().Pages)
	}
	if o.JobForSession(sess.ID) != job || o.GetJob("job-1") != job {
		t.Error("expected job lookups to find the job")
	}
}

func TestOrchestrator_FailsOnBadPDF(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(bad, []byte("not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(testConfig(1, 4), qa.IndexOptions{}, nil)
	o.Start(context.Background())
	defer o.Stop()

	sess := session.New(bad, "bad.pdf", false)
	job := NewJob("job-bad", sess, "bad.pdf", "")
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitJob(t, job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Fatalf("expected failure while parsing, got %s/%s", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected an error message")
	}
	if _, err := sess.Index(); err == nil {
		t.Error("expected no index on failed session")
	}
}

func TestOrchestrator_FailsOnEmptyPDF(t *testing.T) {
	src := pdftest.Write(t, "blank.pdf", [][]string{{}})

	o := NewOrchestrator(testConfig(1, 4), qa.IndexOptions{}, nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("job-blank", session.New(src, "blank.pdf", false), "blank.pdf", "")
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitJob(t, job)
	if s := job.Snapshot().Status; s != StatusFailed {
		t.Fatalf("expected failed, got %s", s)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Workers are never started so the queue cannot drain.
	o := NewOrchestrator(testConfig(1, 1), qa.IndexOptions{}, nil)

	first := NewJob("a", session.New("a.pdf", "a.pdf", false), "a.pdf", "")
	second := NewJob("b", session.New("b.pdf", "b.pdf", false), "b.pdf", "")
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected rejected job to be failed, got %s/%s", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestWorker_ParseUsesUploadName(t *testing.T) {
	// Uploads are stored under a generated name; the title comes from the
	// name the client sent.
	src := pdftest.Write(t, "3f2a9c.pdf", [][]string{{"Chapter one."}})

	w := NewWorker(qa.IndexOptions{}, nil)
	tree, err := w.parse("Field Guide.pdf", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.Title != "Field Guide" {
		t.Errorf("expected title %q, got %q", "Field Guide", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Errorf("expected 1 page node, got %d", len(tree.Children))
	}

	if _, err := w.parse("notes.txt", src); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
