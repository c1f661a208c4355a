package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dgallion1/pdfqa/internal/doctree"
	"github.com/dgallion1/pdfqa/internal/pdfdoc"
)

// ErrNoText is returned when a PDF yields no extractable text at all.
var ErrNoText = errors.New("no extractable text")

// PDFParser handles PDF files. It reads page text with the same layout
// reconstruction used for highlighting, then falls back to pdftotext if
// enabled and the first pass fails or comes back empty.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// The PDF reader needs random access, so spool to a temp file.
	tmp, err := os.CreateTemp("", "pdfqa-parse-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	tree, err := p.ParseFile(tmpPath)
	if err != nil {
		return nil, err
	}
	tree.Title = titleOf(filename)
	return tree, nil
}

// ParseFile parses the PDF at path. Every page gets a node, empty or not,
// so node order matches page numbers.
func (p *PDFParser) ParseFile(path string) (*doctree.DocTree, error) {
	pages, err := extractPages(path)
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		if alt, altErr := extractPdftotext(path); altErr == nil && !blank(alt) {
			pages, err = alt, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: titleOf(path)}
	for i, text := range pages {
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Page %d", i+1),
			Text:  strings.TrimSpace(text),
			Page:  i + 1,
		})
	}
	if blank(pages) {
		return tree, ErrNoText
	}
	return tree, nil
}

func extractPages(path string) ([]string, error) {
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := make([]string, doc.NumPages())
	for i := range pages {
		page, err := doc.Page(i)
		if err != nil {
			// One unreadable page should not sink the document.
			continue
		}
		pages[i], _ = page.Text()
	}
	return pages, nil
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates every page with a form feed.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

func titleOf(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
