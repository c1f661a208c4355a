// Package qa builds a retrieval index over a PDF and answers questions
// against it, pointing back to the supporting pages.
package qa

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/doctree"
	"github.com/dgallion1/pdfqa/internal/embedding"
	"github.com/dgallion1/pdfqa/internal/embedding/tfidf"
	"github.com/dgallion1/pdfqa/internal/parser"
	"github.com/dgallion1/pdfqa/internal/vectorstore"
	"github.com/dgallion1/pdfqa/internal/vectorstore/memory"
)

// ErrEmptyDocument is returned when a PDF has no text to index.
var ErrEmptyDocument = errors.New("document has no extractable text")

// Index is the searchable form of one document.
type Index struct {
	title    string
	stats    doctree.Stats
	embedder embedding.Embedder
	store    vectorstore.Storage
}

// IndexOptions configures BuildIndex. Zero values fall back to the TF-IDF
// embedder, the in-memory store and the default chunker config.
type IndexOptions struct {
	Chunking          chunker.Config
	NewEmbedder       func() embedding.Embedder
	NewStorage        func() vectorstore.Storage
	FallbackPdftotext bool
}

// Embedder returns a fresh embedder for one document.
func (o IndexOptions) Embedder() embedding.Embedder {
	if o.NewEmbedder != nil {
		return o.NewEmbedder()
	}
	return tfidf.NewEmbedder()
}

// Storage returns a fresh vector store for one document.
func (o IndexOptions) Storage() vectorstore.Storage {
	if o.NewStorage != nil {
		return o.NewStorage()
	}
	return memory.NewStorage()
}

// BuildIndex parses, chunks and embeds the PDF at path.
func BuildIndex(ctx context.Context, path string, opts IndexOptions) (*Index, error) {
	p := &parser.PDFParser{FallbackPdftotext: opts.FallbackPdftotext}
	tree, err := p.ParseFile(path)
	if errors.Is(err, parser.ErrNoText) {
		return nil, ErrEmptyDocument
	}
	if err != nil {
		return nil, err
	}
	chunks := chunker.ChunkTree(tree, opts.Chunking)
	return NewIndex(ctx, tree, chunks, opts.Embedder(), opts.Storage(), nil)
}

// NewIndex embeds chunks with e and loads them into store. progress, if set,
// is called after each embedded chunk.
func NewIndex(ctx context.Context, tree *doctree.DocTree, chunks []doctree.Chunk, e embedding.Embedder, store vectorstore.Storage, progress func(done int)) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := e.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare %s embedder: %w", e.Name(), err)
	}
	vectors, err := embedding.EmbedAll(ctx, e, texts, progress)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	dim := e.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := store.Init(dim); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	return &Index{
		title:    tree.Title,
		stats:    chunker.Stats(tree, chunks),
		embedder: e,
		store:    store,
	}, nil
}

// Title is the document title.
func (x *Index) Title() string { return x.title }

// Stats reports page, character and chunk counts.
func (x *Index) Stats() doctree.Stats { return x.stats }

// Search returns the k chunks most similar to query.
func (x *Index) Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error) {
	v, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return x.store.Search(v, k)
}
