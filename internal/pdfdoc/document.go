// Package pdfdoc reads page text and glyph positions from PDF files and
// writes highlight annotations into copies of them.
package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
)

var ErrClosed = errors.New("pdfdoc: document closed")

// Document is an open PDF. Pages are laid out lazily and cached; highlights
// stay in memory until Save.
type Document struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	reader  *pdflib.Reader
	pages   map[int]*Page
	pending []annotation
	closed  bool
}

type annotation struct {
	page    int
	box     Rect
	color   Color
	opacity float64
}

// Open opens the PDF at path.
func Open(path string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdflib.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, err
	}
	return &Document{
		path:   path,
		file:   f,
		reader: r,
		pages:  make(map[int]*Page),
	}, nil
}

// Path returns the source file path.
func (d *Document) Path() string { return d.path }

// NumPages returns the page count.
func (d *Document) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0
	}
	return d.reader.NumPage()
}

// Page returns the page at the 0-based index.
func (d *Document) Page(index int) (*Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range [0,%d)", index, d.reader.NumPage())
	}
	if p, ok := d.pages[index]; ok {
		return p, nil
	}

	l, err := readLayout(d.reader.Page(index + 1))
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", index, err)
	}
	p := &Page{index: index, layout: l, doc: d}
	d.pages[index] = p
	return p, nil
}

func readLayout(p pdflib.Page) (l pageLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read content: %v", r)
		}
	}()
	if p.V.IsNull() {
		return pageLayout{}, nil
	}
	return buildLayout(p.Content().Text), nil
}

func (d *Document) addHighlight(a annotation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.pending = append(d.pending, a)
	return nil
}

// Pending returns the number of highlights not yet saved.
func (d *Document) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Save writes the document, with any pending highlights, to path. The
// source file is never modified.
func (d *Document) Save(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if len(d.pending) == 0 {
		return copyFile(d.path, path)
	}
	return writeAnnotated(d.path, path, d.pending)
}

// Close releases the underlying file. It is safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.pages = nil
	return d.file.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Page is one laid-out page of a Document.
type Page struct {
	index  int
	layout pageLayout
	doc    *Document
}

// Index returns the 0-based page index.
func (p *Page) Index() int { return p.index }

// Text returns the reconstructed page text. Paragraphs are separated by a
// blank line.
func (p *Page) Text() (string, error) { return p.layout.text, nil }

// FindBoxes returns the boxes covering every exact occurrence of s.
func (p *Page) FindBoxes(s string) ([]Rect, error) { return p.layout.boxes(s), nil }

// AddHighlight queues a highlight annotation over box.
func (p *Page) AddHighlight(box Rect, c Color, opacity float64) error {
	return p.doc.addHighlight(annotation{page: p.index, box: box, color: c, opacity: opacity})
}
