package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/doctree"
	"github.com/dgallion1/pdfqa/internal/parser"
	"github.com/dgallion1/pdfqa/internal/qa"
)

// Worker processes a single document job.
type Worker struct {
	index qa.IndexOptions
	log   *slog.Logger
}

func NewWorker(index qa.IndexOptions, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{index: index, log: log}
}

// Process parses, chunks and embeds the job's PDF, then attaches the
// resulting index to its session.
func (w *Worker) Process(ctx context.Context, job *Job) {
	sess := job.Session()
	log := w.log.With("job_id", job.ID, "session_id", job.SessionID)

	fail := func(phase string, err error) {
		log.Error("ingest failed", "phase", phase, "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		job.SetStatus(StatusFailed, phase)
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	tree, err := w.parse(job.Filename, sess.PDFPath)
	if errors.Is(err, parser.ErrNoText) {
		fail("parsing", qa.ErrEmptyDocument)
		return
	}
	if err != nil {
		fail("parsing", err)
		return
	}
	job.SetDocumentStats(len(tree.Children), utf8.RuneCountInString(tree.Text()))

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.ChunkTree(tree, w.index.Chunking)
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "pages", len(tree.Children), "chunks", len(chunks))

	// Phase 3: Embed and index
	job.SetStatus(StatusEmbedding, "embedding")
	idx, err := qa.NewIndex(ctx, tree, chunks, w.index.Embedder(), w.index.Storage(), job.SetChunksEmbedded)
	if err != nil {
		fail("embedding", err)
		return
	}

	sess.SetIndex(idx)
	job.SetStatus(StatusReady, "done")
	log.Info("document ready", "stats", idx.Stats())
}

func (w *Worker) parse(filename, path string) (*doctree.DocTree, error) {
	p, err := parser.ForFile(filename, w.index.FallbackPdftotext)
	if err != nil {
		return nil, err
	}
	tree, err := p.ParseFile(path)
	if tree != nil {
		tree.Title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	return tree, err
}
