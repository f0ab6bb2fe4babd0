// Package provider generates text embeddings, either through an
// OpenAI-compatible HTTP endpoint or a local ONNX model.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixml/trialdex/domain/search"
)

// Common errors.
var (
	// ErrUnsupportedOperation indicates the provider cannot serve the request.
	ErrUnsupportedOperation = errors.New("operation not supported by this provider")

	// ErrModelNotFound indicates no local model exists in the model directory.
	ErrModelNotFound = errors.New("embedding model not found")
)

// Usage represents token usage information.
type Usage struct {
	promptTokens int
	totalTokens  int
}

// NewUsage creates a new Usage.
func NewUsage(prompt, total int) Usage {
	return Usage{promptTokens: prompt, totalTokens: total}
}

// PromptTokens returns the number of prompt tokens.
func (u Usage) PromptTokens() int { return u.promptTokens }

// TotalTokens returns the total number of tokens.
func (u Usage) TotalTokens() int { return u.totalTokens }

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		promptTokens: u.promptTokens + other.promptTokens,
		totalTokens:  u.totalTokens + other.totalTokens,
	}
}

// EmbeddingRequest represents a request for embeddings.
type EmbeddingRequest struct {
	texts []string
}

// NewEmbeddingRequest creates a new EmbeddingRequest.
func NewEmbeddingRequest(texts []string) EmbeddingRequest {
	return EmbeddingRequest{texts: append([]string(nil), texts...)}
}

// Texts returns the texts to embed.
func (r EmbeddingRequest) Texts() []string {
	return append([]string(nil), r.texts...)
}

// EmbeddingResponse represents an embedding response.
type EmbeddingResponse struct {
	embeddings [][]float64
	usage      Usage
}

// NewEmbeddingResponse creates a new EmbeddingResponse.
func NewEmbeddingResponse(embeddings [][]float64, usage Usage) EmbeddingResponse {
	return EmbeddingResponse{embeddings: copyVectors(embeddings), usage: usage}
}

// Embeddings returns the embedding vectors, one per input text.
func (r EmbeddingResponse) Embeddings() [][]float64 {
	return copyVectors(r.embeddings)
}

// Usage returns token usage information.
func (r EmbeddingResponse) Usage() Usage { return r.usage }

func copyVectors(vectors [][]float64) [][]float64 {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = append([]float64(nil), v...)
	}
	return out
}

// Embedder generates embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)

	// Capacity returns the maximum number of texts per Embed call.
	Capacity() int

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderError wraps provider errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil && e.cause.Error() != e.message {
		return e.operation + ": " + e.message + ": " + e.cause.Error()
	}
	return e.operation + ": " + e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if available.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the error message.
func (e *ProviderError) Message() string { return e.message }

// IsRateLimited returns true if the error is due to rate limiting.
func (e *ProviderError) IsRateLimited() bool { return e.statusCode == 429 }

// Batched adapts an Embedder to search.Embedder, splitting large inputs into
// calls no bigger than the provider's capacity.
type Batched struct {
	embedder Embedder
}

// NewBatched creates a Batched embedder.
func NewBatched(embedder Embedder) *Batched {
	return &Batched{embedder: embedder}
}

// Embed returns one vector per text, in input order.
func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	size := b.embedder.Capacity()
	if size <= 0 {
		size = len(texts)
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		resp, err := b.embedder.Embed(ctx, NewEmbeddingRequest(texts[start:end]))
		if err != nil {
			return nil, err
		}
		got := resp.Embeddings()
		if len(got) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(got), end-start)
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

// Close closes the underlying provider.
func (b *Batched) Close() error {
	return b.embedder.Close()
}

var _ search.Embedder = (*Batched)(nil)
