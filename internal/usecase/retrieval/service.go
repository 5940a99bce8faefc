// Package retrieval turns a free-text question into match records: it parses
// intent, embeds the query once and queries the vector index, fanning out per
// year when the question names years.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
	"github.com/kailas-cloud/courtside/internal/domain/search/request"
	"github.com/kailas-cloud/courtside/internal/logger"
	"github.com/kailas-cloud/courtside/internal/metrics"
	"github.com/kailas-cloud/courtside/internal/telemetry"
)

// Defaults for Config zero values.
const (
	// DefaultPerYearCandidates is the over-fetch per year branch. Year is not
	// an index filter, so candidates are filtered by match id prefix afterwards;
	// a year with more than this many closer neighbors in other years loses recall.
	DefaultPerYearCandidates = 100
	DefaultFanOutConcurrency = 4
)

// Retrieval modes, used as metric labels.
const (
	ModeSingle  = "single"
	ModePerYear = "per_year"
)

// Config tunes the year fan-out.
type Config struct {
	PerYearCandidates int
	FanOutConcurrency int
	// StrictYears drops years outside query.MinYear..query.MaxYear before fan-out.
	StrictYears bool
}

func (c Config) withDefaults() Config {
	if c.PerYearCandidates <= 0 {
		c.PerYearCandidates = DefaultPerYearCandidates
	}
	if c.FanOutConcurrency <= 0 {
		c.FanOutConcurrency = DefaultFanOutConcurrency
	}
	return c
}

// Result is the outcome of one retrieval.
type Result struct {
	Records []match.Record
	Parsed  query.Parsed
}

// Service orchestrates query parsing, embedding and index queries.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	embedder Embedder
	index    Index
	cfg      Config
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder Embedder, index Index, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{embedder: embedder, index: index, cfg: cfg.withDefaults(), logger: log}
}

// Search returns at most limit records for q. With years in the query, the
// records are grouped per year in extraction order; within a group they keep
// index relevance order. Any collaborator failure fails the whole call.
func (s *Service) Search(ctx context.Context, q string, limit int) (Result, error) {
	req, err := request.New(q, limit)
	if err != nil {
		return Result{}, err
	}

	ctx, span := telemetry.Tracer.Start(ctx, "retrieval.search")
	defer span.End()

	start := time.Now()
	parsed := query.Parse(req.Query())
	years := parsed.Years()
	if s.cfg.StrictYears {
		years = parsed.ValidYears()
	}

	mode := ModeSingle
	if len(years) > 0 {
		mode = ModePerYear
	}
	span.SetAttributes(spanAttributes(parsed, years, mode)...)

	records, err := s.retrieve(ctx, req, parsed, years)
	if err != nil {
		err = s.classify(ctx, err)
		metrics.RetrievalDuration.WithLabelValues(mode, "error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.FromContext(ctx, s.logger).Warn("Retrieval failed",
			zap.String("mode", mode),
			zap.Strings("years", years),
			zap.Error(err),
		)
		return Result{}, err
	}

	if len(records) > req.Limit() {
		records = records[:req.Limit()]
	}

	duration := time.Since(start)
	metrics.RetrievalDuration.WithLabelValues(mode, "success").Observe(duration.Seconds())
	metrics.RetrievedRecords.Observe(float64(len(records)))
	span.SetAttributes(attribute.Int("retrieval.records", len(records)))

	logger.FromContext(ctx, s.logger).Debug("Retrieval completed",
		zap.String("mode", mode),
		zap.Strings("years", years),
		zap.Int("limit", req.Limit()),
		zap.Int("records", len(records)),
		zap.Duration("duration", duration),
	)

	return Result{Records: records, Parsed: parsed}, nil
}

func (s *Service) retrieve(
	ctx context.Context, req request.Request, parsed query.Parsed, years []string,
) ([]match.Record, error) {
	filters, err := buildFilter(parsed)
	if err != nil {
		return nil, err
	}

	emb, err := s.embedder.Embed(ctx, req.Query())
	if err != nil {
		return nil, domain.NewEmbedError(err)
	}
	if len(emb.Embedding) == 0 {
		return nil, domain.NewEmbedError(errors.New("provider returned an empty vector"))
	}

	if len(years) == 0 {
		return s.querySingle(ctx, emb.Embedding, req.Limit(), filters)
	}
	return s.queryYears(ctx, emb.Embedding, years, filters)
}

func (s *Service) querySingle(
	ctx context.Context, vector []float32, limit int, filters filter.Expression,
) ([]match.Record, error) {
	domain.UsageFromContext(ctx).AddIndexQuery()
	records, err := s.index.Query(ctx, vector, limit, filters)
	if err != nil {
		metrics.IndexQueriesTotal.WithLabelValues(ModeSingle, "error").Inc()
		return nil, domain.NewIndexError("", err)
	}
	metrics.IndexQueriesTotal.WithLabelValues(ModeSingle, "success").Inc()
	return records, nil
}

// queryYears issues one over-fetching index query per year. Branches run
// concurrently and write to their own slot; slots are concatenated in year
// order, so scheduling never changes the output. The first failure cancels
// the remaining branches and nothing partial is returned.
func (s *Service) queryYears(
	ctx context.Context, vector []float32, years []string, filters filter.Expression,
) ([]match.Record, error) {
	metrics.YearBranches.Observe(float64(len(years)))

	slots := make([][]match.Record, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FanOutConcurrency)

	for i, year := range years {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // sibling failure already reported
			}
			kept, err := s.queryYear(gctx, vector, year, filters)
			if err != nil {
				return err
			}
			slots[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // branches return domain errors
	}

	var total int
	for _, slot := range slots {
		total += len(slot)
	}
	records := make([]match.Record, 0, total)
	for _, slot := range slots {
		records = append(records, slot...)
	}
	return records, nil
}

func (s *Service) queryYear(
	ctx context.Context, vector []float32, year string, filters filter.Expression,
) ([]match.Record, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "retrieval.year_branch",
		trace.WithAttributes(attribute.String("year", year)))
	defer span.End()

	domain.UsageFromContext(ctx).AddIndexQuery()
	candidates, err := s.index.Query(ctx, vector, s.cfg.PerYearCandidates, filters)
	if err != nil {
		metrics.IndexQueriesTotal.WithLabelValues(ModePerYear, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "index query failed")
		return nil, domain.NewIndexError(year, err)
	}
	metrics.IndexQueriesTotal.WithLabelValues(ModePerYear, "success").Inc()

	kept := make([]match.Record, 0, len(candidates))
	for i := range candidates {
		if candidates[i].InYear(year) {
			kept = append(kept, candidates[i])
		}
	}
	span.SetAttributes(
		attribute.Int("retrieval.candidates", len(candidates)),
		attribute.Int("retrieval.kept", len(kept)),
	)
	return kept, nil
}

// classify reports caller cancellation as a single cancellation error,
// whichever branch observed it first.
func (s *Service) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("search cancelled: %w", ctxErr)
	}
	return err
}

// buildFilter turns the parsed tournament and round into equality constraints.
// Years never become filter constraints.
func buildFilter(parsed query.Parsed) (filter.Expression, error) {
	var conditions []filter.Condition
	if t, ok := parsed.Tournament(); ok {
		c, err := filter.NewEquals(filter.FieldTournament, t)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("tournament filter: %w", err)
		}
		conditions = append(conditions, c)
	}
	if r, ok := parsed.Round(); ok {
		c, err := filter.NewEquals(filter.FieldRound, string(r))
		if err != nil {
			return filter.Expression{}, fmt.Errorf("round filter: %w", err)
		}
		conditions = append(conditions, c)
	}
	expr, err := filter.NewExpression(conditions...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("build filter: %w", err)
	}
	return expr, nil
}

func spanAttributes(parsed query.Parsed, years []string, mode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("retrieval.mode", mode),
		attribute.StringSlice("query.years", years),
	}
	if t, ok := parsed.Tournament(); ok {
		attrs = append(attrs, attribute.String("query.tournament", t))
	}
	if r, ok := parsed.Round(); ok {
		attrs = append(attrs, attribute.String("query.round", string(r)))
	}
	return attrs
}
