package retrieval

import (
	"context"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index returns up to topK records nearest to vector that satisfy filters,
// ordered by descending similarity. Implementations must be safe for concurrent use.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int, filters filter.Expression) ([]match.Record, error)
}
