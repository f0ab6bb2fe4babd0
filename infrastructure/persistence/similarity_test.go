package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{"identical vectors", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0},
		{"opposite vectors", []float64{1, 0, 0}, []float64{-1, 0, 0}, -1.0},
		{"orthogonal vectors", []float64{1, 0, 0}, []float64{0, 1, 0}, 0.0},
		{"scaled vectors", []float64{2, 0}, []float64{5, 0}, 1.0},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 0, 0}, 0.0},
		{"empty vectors", []float64{}, []float64{}, 0.0},
		{"mismatched lengths", []float64{1, 0}, []float64{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestTopKSimilar(t *testing.T) {
	vectors := []StoredVector{
		NewStoredVector("a", []float64{0, 1}),
		NewStoredVector("b", []float64{1, 0}),
		NewStoredVector("c", []float64{1, 1}),
	}

	matches := TopKSimilar([]float64{1, 0}, vectors, 2)

	assert.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].ID())
	assert.Equal(t, "c", matches[1].ID())
	assert.Greater(t, matches[0].Similarity(), matches[1].Similarity())
}

func TestTopKSimilar_Bounds(t *testing.T) {
	vectors := []StoredVector{NewStoredVector("a", []float64{1})}

	assert.Len(t, TopKSimilar([]float64{1}, vectors, 5), 1)
	assert.Empty(t, TopKSimilar([]float64{1}, vectors, 0))
	assert.Empty(t, TopKSimilar([]float64{1}, nil, 3))
}

func TestTopKSimilar_TiesKeepInputOrder(t *testing.T) {
	vectors := []StoredVector{
		NewStoredVector("first", []float64{1, 0}),
		NewStoredVector("second", []float64{2, 0}),
	}

	matches := TopKSimilar([]float64{1, 0}, vectors, 2)

	assert.Equal(t, "first", matches[0].ID())
	assert.Equal(t, "second", matches[1].ID())
}
