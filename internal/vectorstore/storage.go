// Package vectorstore holds chunk vectors and answers nearest-neighbour
// queries.
package vectorstore

import "github.com/dgallion1/pdfqa/internal/doctree"

// SearchResult is a stored chunk with its similarity to the query.
type SearchResult struct {
	Chunk doctree.Chunk
	Score float64
}

// Storage persists vectors and supports similarity search.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []doctree.Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Len() int
	Clear() error
}
