package llm

import (
	"context"
)

// LLMClient produces one chat completion for a prompt. The provider
// implementations run at temperature 0, and the OpenAI client also sends a
// fixed seed, so retrieval fusion and analysis stay reproducible under test.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient produces fixed-dimension vectors. EmbedBatch issues one
// provider call for the whole batch.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RerankerClient orders documents by relevance to a query. Returned indices
// reference the input slice, most relevant first.
type RerankerClient interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}
