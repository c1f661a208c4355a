package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/pdfqa/internal/pdfdoc/pdftest"
)

func TestPDFParser_OneNodePerPage(t *testing.T) {
	path := pdftest.Write(t, "report.pdf", [][]string{
		{"Introduction.", "Methods follow."},
		{},
		{"Results."},
	})

	p := &PDFParser{}
	tree, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "report" {
		t.Errorf("expected title %q, got %q", "report", tree.Title)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(tree.Children))
	}
	if tree.Children[0].Text != "Introduction.\n\nMethods follow." {
		t.Errorf("unexpected page 1 text: %q", tree.Children[0].Text)
	}
	if tree.Children[1].Text != "" {
		t.Errorf("expected empty page 2, got %q", tree.Children[1].Text)
	}
	if tree.Children[2].Page != 3 || tree.Children[2].Title != "Page 3" {
		t.Errorf("unexpected page 3 node: %+v", tree.Children[2])
	}
}

func TestPDFParser_ParseReader(t *testing.T) {
	path := pdftest.Write(t, "in.pdf", [][]string{{"Streamed content."}})
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	p := &PDFParser{}
	tree, err := p.Parse(f, "Upload Name.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Upload Name" {
		t.Errorf("expected title from filename, got %q", tree.Title)
	}
	if !strings.Contains(tree.Text(), "Streamed content.") {
		t.Errorf("expected page text, got %q", tree.Text())
	}
}

func TestPDFParser_NoText(t *testing.T) {
	path := pdftest.Write(t, "blank.pdf", [][]string{{}, {}})

	p := &PDFParser{}
	tree, err := p.ParseFile(path)
	if err != ErrNoText {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
	if len(tree.Children) != 2 {
		t.Errorf("expected page nodes even without text, got %d", len(tree.Children))
	}
}

func TestPDFParser_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := &PDFParser{}
	if _, err := p.ParseFile(path); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}

func TestForFile(t *testing.T) {
	if _, err := ForFile("a.PDF", false); err != nil {
		t.Errorf("expected pdf parser, got %v", err)
	}
	if _, err := ForFile("a.docx", false); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if !IsSupportedExtension("x.pdf") || IsSupportedExtension("x.txt") {
		t.Error("unexpected IsSupportedExtension result")
	}
}
