package domain

import "context"

// EmbeddingResult is the outcome of one embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder produces dense vectors for the optional similarity blend.
// Failures are soft: callers proceed lexical-only.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
