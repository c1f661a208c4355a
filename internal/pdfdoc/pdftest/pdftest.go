// Package pdftest writes small text PDFs for tests.
package pdftest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

const (
	fontSize    = 12.0
	left        = 72.0
	top         = 72.0
	leading     = 14.0
	paragraphSp = 36.0
)

// Write renders pages into a PDF under t.TempDir and returns its path.
// Each page is a list of paragraphs; a "\n" inside a paragraph starts a new
// line at normal leading, paragraphs are set further apart.
func Write(t testing.TB, name string, pages [][]string) string {
	t.Helper()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", fontSize)
	for _, paras := range pages {
		pdf.AddPage()
		y := top
		for i, para := range paras {
			if i > 0 {
				y += paragraphSp - leading
			}
			for _, line := range strings.Split(para, "\n") {
				pdf.Text(left, y, line)
				y += leading
			}
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}
