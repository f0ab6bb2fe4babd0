package search

import "github.com/helixml/trialdex/domain/repository"

// WithEmbedding passes a pre-computed query vector through options.
func WithEmbedding(embedding []float64) repository.Option {
	return repository.WithParam("embedding", embedding)
}

// EmbeddingFrom extracts the query vector from a built query.
func EmbeddingFrom(q repository.Query) ([]float64, bool) {
	v, ok := q.Param("embedding")
	if !ok {
		return nil, false
	}
	emb, ok := v.([]float64)
	return emb, ok
}

// WithTopK sets how many nearest documents to return.
func WithTopK(k int) repository.Option {
	return repository.WithLimit(k)
}
