// Package answer turns a question into a grounded natural-language answer.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	"github.com/kailas-cloud/courtside/internal/domain/search/request"
	"github.com/kailas-cloud/courtside/internal/logger"
)

// MaxSources caps the records echoed back as sources.
const MaxSources = 3

// Result is an answer with the evidence it was built from.
type Result struct {
	SearchID     string         `json:"search_id"`
	Answer       string         `json:"answer"`
	Sources      []match.Record `json:"sources"`
	Confidence   float64        `json:"confidence"`
	TotalMatches int            `json:"total_matches"`
	QueryType    query.Kind     `json:"query_type"`
}

// Service answers questions over the match index.
type Service struct {
	searcher Searcher
	answerer Answerer
	limit    int
	logger   *zap.Logger
}

// New creates an answer service that retrieves request.DefaultLimit records per question.
func New(searcher Searcher, answerer Answerer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		searcher: searcher,
		answerer: answerer,
		limit:    request.DefaultLimit,
		logger:   log,
	}
}

// Answer searches for question and asks the answerer to explain the result.
func (s *Service) Answer(ctx context.Context, question string) (Result, error) {
	res, err := s.searcher.Search(ctx, question, s.limit)
	if err != nil {
		return Result{}, err
	}

	log := logger.FromContext(ctx, s.logger).With(zap.String("search_id", res.SearchID))

	text, err := s.answerer.Answer(ctx, question, res.Records, res.Analysis)
	if err != nil {
		log.Warn("Answerer failed", zap.Error(err))
		return Result{}, fmt.Errorf("answer: %w", err)
	}

	sources := res.Records
	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}

	out := Result{
		SearchID:     res.SearchID,
		Answer:       text,
		Sources:      sources,
		Confidence:   confidence(res.Records),
		TotalMatches: len(res.Records),
		QueryType:    query.Classify(question),
	}

	log.Info("Question answered",
		zap.String("query_type", string(out.QueryType)),
		zap.Int("total_matches", out.TotalMatches),
		zap.Float64("confidence", out.Confidence),
	)
	return out, nil
}

// confidence is the mean similarity of the records, 0 for none.
func confidence(records []match.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for i := range records {
		sum += records[i].Similarity
	}
	return sum / float64(len(records))
}
