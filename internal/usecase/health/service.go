// Package health reports whether courtside's collaborators are reachable.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentIndex     = "index"
	ComponentEmbedding = "embedding"
)

// DefaultCheckTimeout bounds each component probe.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	index     IndexChecker
	embedding EmbeddingChecker
	timeout   time.Duration
}

// New creates a Service. index and embedding can be nil.
func New(db DBPinger, index IndexChecker, embedding EmbeddingChecker) *Service {
	return &Service{db: db, index: index, embedding: embedding, timeout: DefaultCheckTimeout}
}

// Check runs health checks against all components.
// The index is only probed when the database answers.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := s.probe(ctx, ComponentDatabase, s.db.Ping, checks)

	if s.index != nil {
		if dbOK {
			s.probe(ctx, ComponentIndex, s.index.Ready, checks)
		} else {
			checks[ComponentIndex] = CheckError
		}
	}

	if s.embedding != nil {
		s.probe(ctx, ComponentEmbedding, s.embedding.HealthCheck, checks)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(
	ctx context.Context, name string, fn func(context.Context) error, checks map[string]CheckResult,
) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		logger.FromContext(ctx).Warn("Health check failed", zap.String("component", name), zap.Error(err))
		checks[name] = CheckError
		return false
	}
	checks[name] = CheckOK
	return true
}
