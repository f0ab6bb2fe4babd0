// Package search defines similarity search over embedded documents.
package search

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyEmbedding indicates an embedder returned no vector for an input.
var ErrEmptyEmbedding = errors.New("embedder returned no vector")

// Embedder converts text into embedding vectors. Implementations return one
// vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, embedder Embedder, text string) ([]float64, error) {
	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed query: %w", ErrEmptyEmbedding)
	}
	return vectors[0], nil
}
