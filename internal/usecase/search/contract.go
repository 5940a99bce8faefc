package search

import (
	"context"

	"github.com/kailas-cloud/courtside/internal/usecase/retrieval"
)

// Retriever finds match records for a question.
type Retriever interface {
	Search(ctx context.Context, q string, limit int) (retrieval.Result, error)
}
