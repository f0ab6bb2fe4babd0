package persistence

import (
	"math"
	"sort"
)

// StoredVector holds an embedding vector with the ID of its document.
type StoredVector struct {
	id        string
	embedding []float64
}

// NewStoredVector creates a new StoredVector.
func NewStoredVector(id string, embedding []float64) StoredVector {
	return StoredVector{
		id:        id,
		embedding: append([]float64(nil), embedding...),
	}
}

// ID returns the document ID.
func (v StoredVector) ID() string { return v.id }

// SimilarityMatch holds a document ID and its similarity score.
type SimilarityMatch struct {
	id         string
	similarity float64
}

// ID returns the document ID.
func (m SimilarityMatch) ID() string { return m.id }

// Similarity returns the similarity score.
func (m SimilarityMatch) Similarity() float64 { return m.similarity }

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 when the
// vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TopKSimilar returns the k vectors most similar to the query, highest first.
// Ties keep the input order.
func TopKSimilar(query []float64, vectors []StoredVector, k int) []SimilarityMatch {
	if len(vectors) == 0 || k <= 0 {
		return []SimilarityMatch{}
	}

	matches := make([]SimilarityMatch, len(vectors))
	for i, v := range vectors {
		matches[i] = SimilarityMatch{id: v.id, similarity: CosineSimilarity(query, v.embedding)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
