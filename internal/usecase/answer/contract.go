package answer

import (
	"context"

	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/usecase/search"
)

// Searcher runs retrieval plus aggregation.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) (search.Result, error)
}

// Answerer composes a natural-language answer from grounding context.
type Answerer interface {
	Answer(ctx context.Context, question string, records []match.Record, report analysis.Report) (string, error)
}
