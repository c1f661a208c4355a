// Package embedding turns chunk text into vectors for retrieval.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedAll embeds texts in order, stopping at the first error. progress, if
// set, is called after each text.
func EmbedAll(ctx context.Context, e Embedder, texts []string, progress func(done int)) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if progress != nil {
			progress(len(out))
		}
	}
	return out, nil
}
