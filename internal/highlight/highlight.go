package highlight

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/pdfqa/internal/pdfdoc"
)

// DefaultThreshold is the similarity a unit must exceed to count as a match.
const DefaultThreshold = 0.6

// Fixed look of every highlight written.
var (
	HighlightColor   = pdfdoc.Yellow
	HighlightOpacity = 0.3
)

// Document is an open, annotatable source document.
type Document interface {
	NumPages() int
	Page(index int) (Page, error)
	Save(path string) error
	Close() error
}

// Page is one page of a Document. Index is 0-based.
type Page interface {
	Index() int
	Text() (string, error)
	FindBoxes(exact string) ([]pdfdoc.Rect, error)
	AddHighlight(box pdfdoc.Rect, color pdfdoc.Color, opacity float64) error
}

// Opener opens a Document by path.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Document, error)

func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }

// Match is the winning unit of one page.
type Match struct {
	Page  int     `json:"page"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Boxes int     `json:"boxes"`
}

// Result is the outcome of one highlight pass. ArtifactPath is empty when no
// page matched. Gaps lists matched pages where the unit could not be located
// on the page, so nothing visible was drawn there.
type Result struct {
	ArtifactPath string  `json:"artifact_path,omitempty"`
	Pages        []int   `json:"pages"`
	Matches      []Match `json:"matches"`
	Gaps         []int   `json:"gaps,omitempty"`
}

// Highlighter locates the passage supporting an answer and writes an
// annotated copy of the document. It holds no per-call state and is safe for
// concurrent use; every call opens its own Document.
type Highlighter struct {
	opener Opener
	dir    string
	log    *slog.Logger

	// BestOfPage scores every unit of a page and keeps the highest one
	// instead of stopping at the first unit over the threshold.
	BestOfPage bool
}

// NewHighlighter creates a Highlighter. A nil opener uses pdfdoc, an empty
// dir uses the system temp dir.
func NewHighlighter(opener Opener, dir string, log *slog.Logger) *Highlighter {
	if opener == nil {
		opener = PDFOpener
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Highlighter{opener: opener, dir: dir, log: log}
}

// FindPageAndHighlight is Highlighter.FindPageAndHighlight with PDF defaults,
// returning only the artifact path ("" for none) and matched pages.
func FindPageAndHighlight(ctx context.Context, sourcePath, answer string, threshold float64) (string, []int, error) {
	res, err := NewHighlighter(nil, "", nil).FindPageAndHighlight(ctx, sourcePath, answer, threshold)
	if err != nil {
		return "", nil, err
	}
	return res.ArtifactPath, res.Pages, nil
}

// FindPageAndHighlight scans every page of sourcePath in order, highlights
// the first unit per page whose similarity to answer exceeds threshold, and
// persists the annotated document to a new file when any page matched.
// The caller owns the returned artifact and must remove it.
func (h *Highlighter) FindPageAndHighlight(ctx context.Context, sourcePath, answer string, threshold float64) (Result, error) {
	query := Normalize(answer)

	doc, err := h.opener.Open(sourcePath)
	if err != nil {
		return Result{}, &DocumentOpenError{Path: sourcePath, Err: err}
	}
	defer func() {
		if err := doc.Close(); err != nil {
			h.log.Warn("close document", "path", sourcePath, "error", err)
		}
	}()

	res := Result{Pages: []int{}, Matches: []Match{}}
	for i := range doc.NumPages() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		page, err := doc.Page(i)
		if err != nil {
			return Result{}, fmt.Errorf("page %d: %w", i, err)
		}
		text, err := page.Text()
		if err != nil {
			return Result{}, fmt.Errorf("page %d text: %w", page.Index(), err)
		}

		unit, score, ok := h.pick(query, Segment(text), threshold)
		if !ok {
			continue
		}

		boxes, err := h.annotate(page, unit)
		if err != nil {
			return Result{}, err
		}
		res.Pages = append(res.Pages, page.Index())
		res.Matches = append(res.Matches, Match{Page: page.Index(), Text: unit.Original, Score: score, Boxes: boxes})
		if boxes == 0 {
			res.Gaps = append(res.Gaps, page.Index())
			h.log.Warn("matched unit not found on page",
				"path", sourcePath,
				"page", page.Index(),
				"score", score,
				"unit", truncate(unit.Original, 80),
			)
		}
	}

	if len(res.Pages) == 0 {
		return res, nil
	}

	path, err := h.persist(doc)
	if err != nil {
		return Result{}, err
	}
	res.ArtifactPath = path
	h.log.Info("highlighted document", "source", sourcePath, "artifact", path, "pages", res.Pages)
	return res, nil
}

func (h *Highlighter) pick(query string, units []Unit, threshold float64) (Unit, float64, bool) {
	var (
		best      Unit
		bestScore float64
		found     bool
	)
	for _, u := range units {
		score := Similarity(query, u.Normalized)
		if score <= threshold {
			continue
		}
		if !h.BestOfPage {
			return u, score, true
		}
		if !found || score > bestScore {
			best, bestScore, found = u, score, true
		}
	}
	return best, bestScore, found
}

func (h *Highlighter) annotate(page Page, unit Unit) (int, error) {
	boxes, err := page.FindBoxes(unit.Original)
	if err != nil {
		return 0, fmt.Errorf("page %d search: %w", page.Index(), err)
	}
	for _, b := range boxes {
		if err := page.AddHighlight(b, HighlightColor, HighlightOpacity); err != nil {
			return 0, fmt.Errorf("page %d highlight: %w", page.Index(), err)
		}
	}
	return len(boxes), nil
}

func (h *Highlighter) persist(doc Document) (string, error) {
	f, err := os.CreateTemp(h.dir, "highlighted-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := doc.Save(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return path, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
