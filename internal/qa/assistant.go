package qa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pdfqa/internal/highlight"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/session"
	"github.com/dgallion1/pdfqa/internal/vectorstore"
)

// Answer is the outcome of one question.
type Answer struct {
	Text string `json:"answer"`
	// Pages are 1-based page numbers of highlighted passages.
	Pages        []int                      `json:"pages"`
	ArtifactPath string                     `json:"-"`
	Turn         int                        `json:"turn"`
	Sources      []vectorstore.SearchResult `json:"-"`
}

// Assistant answers questions over a session's index and highlights the
// supporting passage in the session's PDF.
type Assistant struct {
	answerer    llm.Answerer
	highlighter *highlight.Highlighter
	threshold   float64
	topK        int
	log         *slog.Logger
}

func NewAssistant(answerer llm.Answerer, h *highlight.Highlighter, threshold float64, topK int, log *slog.Logger) *Assistant {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if topK <= 0 {
		topK = 4
	}
	return &Assistant{
		answerer:    answerer,
		highlighter: h,
		threshold:   threshold,
		topK:        topK,
		log:         log,
	}
}

// Threshold is the default highlight threshold.
func (a *Assistant) Threshold() float64 { return a.threshold }

// Ask answers question with the assistant's default threshold.
func (a *Assistant) Ask(ctx context.Context, sess *session.Session, idx session.Retriever, question string) (Answer, error) {
	return a.AskThreshold(ctx, sess, idx, question, a.threshold)
}

// AskThreshold retrieves context, asks the model, highlights the answer in
// the source PDF and records both turns in sess. A failed highlight is
// logged and leaves the answer without an artifact.
func (a *Assistant) AskThreshold(ctx context.Context, sess *session.Session, idx session.Retriever, question string, threshold float64) (Answer, error) {
	log := a.log.With("session_id", sess.ID)
	start := time.Now()

	results, err := idx.Search(ctx, question, a.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("search: %w", err)
	}
	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
	}

	text, err := a.answerer.Answer(ctx, question, contexts)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}

	sess.AddQuestion(question)
	ans := Answer{Text: text, Pages: []int{}, Sources: results}

	// An earlier artifact for the same question is replaced either way.
	res, err := a.highlighter.FindPageAndHighlight(ctx, sess.PDFPath, text, threshold)
	if err != nil {
		log.Warn("could not highlight pdf", "error", err)
	}
	sess.SetArtifact(question, res.ArtifactPath)
	if res.ArtifactPath != "" {
		ans.ArtifactPath = res.ArtifactPath
		for _, p := range res.Pages {
			ans.Pages = append(ans.Pages, p+1)
		}
	}

	ans.Turn = sess.AddAnswer(text, ans.Pages, ans.ArtifactPath)
	log.Info("question answered",
		"model", a.answerer.Model(),
		"sources", len(results),
		"pages", ans.Pages,
		"highlighted", ans.ArtifactPath != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ans, nil
}
