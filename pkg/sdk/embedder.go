package courtside

import "context"

// Embedder converts text to vector embeddings. It must produce vectors in the
// same space as the ones stored in the match index.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
