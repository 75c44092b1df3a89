// Package ai holds the contracts of the text generation and embedding
// collaborators together with helpers shared by every caller that parses
// their output.
package ai

import (
	"context"
)

const (
	// DefaultMaxTokens is used when a request leaves MaxTokens unset.
	DefaultMaxTokens = 1500
	// EmbeddingDimensions is the length of every profile vector.
	EmbeddingDimensions = 1536
)

// Request is a single text generation call.
type Request struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
}

// Tokens returns the effective output token limit.
func (r Request) Tokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Generator produces free-form text. Output is not guaranteed to be valid JSON.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
