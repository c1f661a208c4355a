// Package memory is a brute-force in-memory vector store.
package memory

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/dgallion1/pdfqa/internal/doctree"
	"github.com/dgallion1/pdfqa/internal/vectorstore"
)

// Storage scores every stored vector by dot product. Vectors are expected
// to be L2-normalized, which makes the score the cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []doctree.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Upsert(chunks []doctree.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns up to topK chunks by descending score; equal scores keep
// insertion order.
func (s *Storage) Search(vector []float64, topK int) ([]vectorstore.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	if topK <= 0 {
		topK = 4
	}

	results := make([]vectorstore.SearchResult, len(s.vectors))
	for i, v := range s.vectors {
		results[i] = vectorstore.SearchResult{Chunk: s.chunks[i], Score: dot(v, vector)}
	}
	slices.SortStableFunc(results, func(a, b vectorstore.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}
