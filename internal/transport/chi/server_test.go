package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/analysis"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/query"
	"github.com/kailas-cloud/courtside/internal/domain/search/request"
	answeruc "github.com/kailas-cloud/courtside/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/courtside/internal/usecase/health"
	searchuc "github.com/kailas-cloud/courtside/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	result searchuc.Result
	err    error
	query  string
	limit  int
	panics bool
}

func (m *mockSearcher) Search(ctx context.Context, q string, limit int) (searchuc.Result, error) {
	if m.panics {
		panic("boom")
	}
	m.query, m.limit = q, limit
	domain.UsageFromContext(ctx).AddEmbedding(12)
	domain.UsageFromContext(ctx).AddIndexQuery()
	return m.result, m.err
}

type deadlineSearcher struct{}

func (deadlineSearcher) Search(ctx context.Context, _ string, _ int) (searchuc.Result, error) {
	<-ctx.Done()
	return searchuc.Result{}, fmt.Errorf("search cancelled: %w", ctx.Err())
}

type mockAnswerer struct {
	result answeruc.Result
	err    error
}

func (m *mockAnswerer) Answer(_ context.Context, _ string) (answeruc.Result, error) {
	return m.result, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestServer(s *mockSearcher, a *mockAnswerer, h *mockHealth) http.Handler {
	if a == nil {
		a = &mockAnswerer{}
	}
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewServer(s, a, h, zap.NewNop()).Router(nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

// --- Search ---

func TestSearch_OK(t *testing.T) {
	rec := match.Record{
		MatchID: "2019-540_701", WinnerName: "Djokovic", LoserName: "Federer",
		TournamentName: "Wimbledon", Surface: match.SurfaceGrass, Round: match.RoundFinal,
	}
	report, err := analysis.Aggregate([]match.Record{rec})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	s := &mockSearcher{result: searchuc.Result{
		SearchID: "id-1",
		Records:  []match.Record{rec},
		Parsed:   query.Parse("Who won Wimbledon in 2019?"),
		Analysis: report,
	}}
	h := newTestServer(s, nil, nil)

	rr := do(t, h, http.MethodPost, "/v1/search", `{"query":"Who won Wimbledon in 2019?","limit":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if s.limit != 3 || s.query != "Who won Wimbledon in 2019?" {
		t.Errorf("searcher got query=%q limit=%d", s.query, s.limit)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "12" || rr.Header().Get("X-Index-Queries") != "1" {
		t.Errorf("usage headers: %v", rr.Header())
	}

	var body struct {
		SearchID string `json:"search_id"`
		Parsed   struct {
			Years      []string `json:"years"`
			Tournament string   `json:"tournament"`
			Round      string   `json:"round"`
		} `json:"parsed"`
		Records  []match.Record  `json:"records"`
		Analysis analysis.Report `json:"analysis"`
		Total    int             `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SearchID != "id-1" || body.Total != 1 || len(body.Records) != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
	if len(body.Parsed.Years) != 1 || body.Parsed.Years[0] != "2019" ||
		body.Parsed.Tournament != "Wimbledon" || body.Parsed.Round != "F" {
		t.Errorf("parsed = %+v", body.Parsed)
	}
	if body.Analysis.TotalMatches != 1 {
		t.Errorf("analysis total = %d", body.Analysis.TotalMatches)
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	s := &mockSearcher{}
	rr := do(t, newTestServer(s, nil, nil), http.MethodPost, "/v1/search", `{"query":"nadal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if s.limit != request.DefaultLimit {
		t.Errorf("limit = %d, want %d", s.limit, request.DefaultLimit)
	}
	if !strings.Contains(rr.Body.String(), `"records":[]`) {
		t.Errorf("empty records must encode as []: %s", rr.Body.String())
	}
}

func TestSearch_LimitAboveMax(t *testing.T) {
	s := &mockSearcher{}
	body := fmt.Sprintf(`{"query":"nadal","limit":%d}`, request.MaxLimit+1)
	rr := do(t, newTestServer(s, nil, nil), http.MethodPost, "/v1/search", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if s.query != "" {
		t.Error("searcher must not be called")
	}
}

func TestSearch_BadBody(t *testing.T) {
	for _, body := range []string{`{`, `{"query":"x","unknown":1}`, `[]`} {
		rr := do(t, newTestServer(&mockSearcher{}, nil, nil), http.MethodPost, "/v1/search", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rr.Code)
		}
		if decodeError(t, rr).Code != CodeBadRequest {
			t.Errorf("body %s: wrong code", body)
		}
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid", fmt.Errorf("%w: query is required", domain.ErrInvalidArgument), http.StatusBadRequest, CodeBadRequest},
		{"embed", domain.NewEmbedError(errors.New("401")), http.StatusBadGateway, CodeEmbeddingFailure},
		{"index", domain.NewIndexError("2016", errors.New("conn reset")), http.StatusBadGateway, CodeIndexFailure},
		{"malformed", fmt.Errorf("aggregate: %w", domain.ErrMalformedRecord), http.StatusBadGateway, CodeMalformedRecord},
		{"deadline", fmt.Errorf("search cancelled: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{"index deadline", domain.NewIndexError("", context.DeadlineExceeded), http.StatusGatewayTimeout, CodeTimeout},
		{"unknown", errors.New("redis password is hunter2"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, newTestServer(&mockSearcher{err: tc.err}, nil, nil),
				http.MethodPost, "/v1/search", `{"query":"q"}`)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			e := decodeError(t, rr)
			if e.Code != tc.code {
				t.Errorf("code = %q, want %q", e.Code, tc.code)
			}
			if strings.Contains(e.Message, "hunter2") || strings.Contains(e.Message, "conn reset") {
				t.Errorf("internal detail leaked: %q", e.Message)
			}
		})
	}
}

// --- Analyze ---

func TestAnalyze_OK(t *testing.T) {
	a := &mockAnswerer{result: answeruc.Result{
		SearchID: "id-2", Answer: "Djokovic.", Confidence: 0.8, TotalMatches: 1, QueryType: query.KindTournament,
	}}
	rr := do(t, newTestServer(&mockSearcher{}, a, nil), http.MethodPost, "/v1/analyze", `{"query":"Who won Wimbledon?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var got answeruc.Result
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Answer != "Djokovic." || got.QueryType != query.KindTournament || got.Sources == nil {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestAnalyze_AnswerFailure(t *testing.T) {
	a := &mockAnswerer{err: fmt.Errorf("answer: %w", domain.ErrAnswerFailure)}
	rr := do(t, newTestServer(&mockSearcher{}, a, nil), http.MethodPost, "/v1/analyze", `{"query":"q"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeError(t, rr).Code != CodeAnswerFailure {
		t.Error("wrong code")
	}
}

// --- Health, metrics, routing ---

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		h := &mockHealth{report: healthuc.Report{
			Status: tc.status,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckOK},
		}}
		rr := do(t, newTestServer(&mockSearcher{}, nil, h), http.MethodGet, "/health", "")
		if rr.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.status, rr.Code, tc.want)
		}
		if !strings.Contains(rr.Body.String(), `"database":"ok"`) {
			t.Errorf("body = %s", rr.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestServer(&mockSearcher{}, nil, nil), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRouting(t *testing.T) {
	h := newTestServer(&mockSearcher{}, nil, nil)
	if rr := do(t, h, http.MethodGet, "/v1/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/search", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: %d", rr.Code)
	}
}

func TestRouter_AuthEnabled(t *testing.T) {
	h := NewServer(&mockSearcher{}, &mockAnswerer{}, &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		zap.NewNop()).Router([]string{"secret"})

	if rr := do(t, h, http.MethodPost, "/v1/search", `{"query":"q"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health must stay open: %d", rr.Code)
	}
}

func TestSearch_Timeout(t *testing.T) {
	srv := NewServer(deadlineSearcher{}, &mockAnswerer{}, &mockHealth{}, zap.NewNop()).
		WithTimeout(10 * time.Millisecond)

	rr := do(t, srv.Router(nil), http.MethodPost, "/v1/search", `{"query":"q"}`)
	if rr.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rr.Code)
	}
}

func TestRecoverer_PanicBecomesJSON500(t *testing.T) {
	rr := do(t, newTestServer(&mockSearcher{panics: true}, nil, nil), http.MethodPost, "/v1/search", `{"query":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeError(t, rr).Code != CodeInternal {
		t.Error("wrong code")
	}
}

func TestRequestIDHeader(t *testing.T) {
	rr := do(t, newTestServer(&mockSearcher{}, nil, nil), http.MethodGet, "/health", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
