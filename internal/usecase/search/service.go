// Package search is the facade over retrieval and aggregation.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	"github.com/kailas-cloud/courtside/internal/logger"
	"github.com/kailas-cloud/courtside/internal/telemetry"
)

// Result is everything a caller needs to answer a question.
type Result struct {
	SearchID string
	Records  []match.Record
	Parsed   query.Parsed
	Analysis analysis.Report
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator replaces the uuid search id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// Service runs retrieval, then aggregates the returned records.
type Service struct {
	retriever Retriever
	logger    *zap.Logger
	newID     func() string
}

// New creates a search service.
func New(retriever Retriever, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{retriever: retriever, logger: log, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search retrieves at most limit records for q and aggregates exactly those
// records. Every log line downstream carries the search id.
func (s *Service) Search(ctx context.Context, q string, limit int) (Result, error) {
	id := s.newID()
	ctx, log := logger.With(ctx, s.logger, zap.String("search_id", id))

	ctx, span := telemetry.Tracer.Start(ctx, "search")
	defer span.End()
	span.SetAttributes(attribute.String("search.id", id), attribute.Int("search.limit", limit))

	start := time.Now()

	ret, err := s.retriever.Search(ctx, q, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	report, err := s.aggregate(ctx, ret.Records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		log.Warn("Aggregation rejected retrieved records", zap.Error(err))
		return Result{}, err
	}

	log.Info("Search completed",
		zap.String("query", q),
		zap.Int("limit", limit),
		zap.Int("records", len(ret.Records)),
		zap.Int("head_to_head_pairs", len(report.HeadToHead)),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{
		SearchID: id,
		Records:  ret.Records,
		Parsed:   ret.Parsed,
		Analysis: report,
	}, nil
}

func (s *Service) aggregate(ctx context.Context, records []match.Record) (analysis.Report, error) {
	_, span := telemetry.Tracer.Start(ctx, "aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("aggregate.records", len(records)))

	report, err := analysis.Aggregate(records)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("aggregate: %w", err)
	}
	return report, nil
}
