package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	"github.com/kailas-cloud/courtside/internal/domain/search/request"
	"github.com/kailas-cloud/courtside/internal/metrics"
	answeruc "github.com/kailas-cloud/courtside/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/courtside/internal/usecase/health"
	searchuc "github.com/kailas-cloud/courtside/internal/usecase/search"
)

// maxBodyBytes bounds request bodies; queries are capped well below this.
const maxBodyBytes = 64 << 10

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeEmbeddingFailure ErrorCode = "embedding_failure"
	CodeIndexFailure     ErrorCode = "index_query_failure"
	CodeMalformedRecord  ErrorCode = "malformed_record"
	CodeAnswerFailure    ErrorCode = "answer_failure"
	CodeTimeout          ErrorCode = "timeout"
	CodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Searcher runs a search.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) (searchuc.Result, error)
}

// Answerer answers a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (answeruc.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse is the reply of POST /v1/search.
type SearchResponse struct {
	SearchID string          `json:"search_id"`
	Parsed   query.Parsed    `json:"parsed"`
	Records  []match.Record  `json:"records"`
	Analysis analysis.Report `json:"analysis"`
	Total    int             `json:"total"`
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search API over HTTP.
type Server struct {
	search        Searcher
	answer        Answerer
	health        HealthChecker
	timeout       time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, answer Answerer, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		answer: answer,
		health: health,
		logger: logger,
	}
	// Order matters: retrieval errors match both ErrRetrievalFailure and
	// their stage sentinel, and a cancelled search wraps the context error.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway, CodeEmbeddingFailure),
		sentinelHandler(domain.ErrIndexQueryFailure, http.StatusBadGateway, CodeIndexFailure),
		sentinelHandler(domain.ErrMalformedRecord, http.StatusBadGateway, CodeMalformedRecord),
		sentinelHandler(domain.ErrAnswerFailure, http.StatusBadGateway, CodeAnswerFailure),
	}
	return s
}

// WithTimeout bounds each search and analyze call. Zero means no bound.
func (s *Server) WithTimeout(d time.Duration) *Server {
	s.timeout = d
	return s
}

// requestContext attaches usage accounting and the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, *domain.SearchUsage, context.CancelFunc) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	if s.timeout <= 0 {
		return ctx, usage, func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, usage, cancel
}

// Router builds the chi router with the middleware stack.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/analyze", s.Analyze)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	limit, err := request.ClampLimit(req.Limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.search.Search(ctx, req.Query, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	records := res.Records
	if records == nil {
		records = []match.Record{}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		SearchID: res.SearchID,
		Parsed:   res.Parsed,
		Records:  records,
		Analysis: res.Analysis,
		Total:    len(records),
	})
}

// Analyze handles POST /v1/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.answer.Answer(ctx, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if res.Sources == nil {
		res.Sources = []match.Record{}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.SearchUsage) {
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens()))
	w.Header().Set("X-Index-Queries", strconv.Itoa(usage.IndexQueries()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Invalid arguments are caller mistakes and are echoed in full.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	sentinels := []error{
		context.DeadlineExceeded,
		domain.ErrEmbeddingFailure,
		domain.ErrIndexQueryFailure,
		domain.ErrMalformedRecord,
		domain.ErrAnswerFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, CodeInternal, safeDomainMessage(err))
}
