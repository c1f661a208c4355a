package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/doctree"
)

// Config controls chunking behavior. Sizes are in characters.
type Config struct {
	ChunkSize    int    // Target maximum chunk length.
	ChunkOverlap int    // Characters carried over between consecutive chunks.
	Separator    string // Text is split on this before merging.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    900,
		ChunkOverlap: 200,
		Separator:    "\n",
	}
}

type split struct {
	text string
	page int
	n    int // rune count
}

// ChunkTree splits every page on the separator and greedily merges the
// pieces into chunks of at most ChunkSize characters, carrying up to
// ChunkOverlap characters of trailing pieces into the next chunk. A single
// piece longer than ChunkSize becomes its own oversized chunk.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = min(def.ChunkOverlap, cfg.ChunkSize/2)
	}
	if cfg.Separator == "" {
		cfg.Separator = def.Separator
	}

	var splits []split
	for _, node := range tree.Children {
		for _, s := range strings.Split(node.Text, cfg.Separator) {
			if s == "" {
				continue
			}
			splits = append(splits, split{text: s, page: node.Page, n: utf8.RuneCountInString(s)})
		}
	}
	return merge(splits, cfg)
}

func merge(splits []split, cfg Config) []doctree.Chunk {
	sepLen := utf8.RuneCountInString(cfg.Separator)

	var (
		chunks  []doctree.Chunk
		current []split
		total   int
	)
	joinedLen := func(extra int) int {
		if len(current) == 0 {
			return extra
		}
		return total + sepLen + extra
	}
	emit := func() {
		texts := make([]string, len(current))
		for i, s := range current {
			texts[i] = s.text
		}
		text := strings.TrimSpace(strings.Join(texts, cfg.Separator))
		if text == "" {
			return
		}
		chunks = append(chunks, doctree.Chunk{
			Text:      text,
			Index:     len(chunks),
			PageStart: current[0].page,
			PageEnd:   current[len(current)-1].page,
		})
	}
	popFront := func() {
		total -= current[0].n
		if len(current) > 1 {
			total -= sepLen
		}
		current = current[1:]
	}

	for _, s := range splits {
		if len(current) > 0 && joinedLen(s.n) > cfg.ChunkSize {
			emit()
			// Keep trailing pieces as overlap while they fit.
			for len(current) > 0 && (total > cfg.ChunkOverlap || joinedLen(s.n) > cfg.ChunkSize) {
				popFront()
			}
		}
		total = joinedLen(s.n)
		current = append(current, s)
	}
	if len(current) > 0 {
		emit()
	}
	return chunks
}

// Stats summarizes a parsed tree and its chunks.
func Stats(tree *doctree.DocTree, chunks []doctree.Chunk) doctree.Stats {
	return doctree.Stats{
		Pages:  len(tree.Children),
		Chars:  utf8.RuneCountInString(tree.Text()),
		Chunks: len(chunks),
	}
}
