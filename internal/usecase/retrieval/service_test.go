package retrieval

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
)

func TestSearch_InvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		q     string
		limit int
	}{
		{"zero limit", "who won wimbledon", 0},
		{"negative limit", "who won wimbledon", -3},
		{"empty query", "", 5},
		{"blank query", "   ", 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, emb, idx := newTestService(t, Config{})
			_, err := svc.Search(context.Background(), tc.q, tc.limit)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if emb.calls != 0 || idx.callCount() != 0 {
				t.Errorf("no collaborator may be called: embed=%d index=%d", emb.calls, idx.callCount())
			}
		})
	}
}

func TestSearch_NoYears_SingleQuery(t *testing.T) {
	svc, emb, idx := newTestService(t, Config{})
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		return []match.Record{rec("2019-540_701", "Djokovic", "Federer"), rec("2008-540_701", "Nadal", "Federer")}, nil
	}

	res, err := svc.Search(context.Background(), "Who won Wimbledon?", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.calls != 1 || emb.lastText != "Who won Wimbledon?" {
		t.Errorf("embed calls=%d text=%q; want one call with the raw query", emb.calls, emb.lastText)
	}
	if idx.callCount() != 1 {
		t.Fatalf("index calls = %d, want 1", idx.callCount())
	}
	call := idx.calls[0]
	if call.topK != 7 {
		t.Errorf("topK = %d, want limit 7", call.topK)
	}
	if v, ok := call.filters.Value(filter.FieldTournament); !ok || v != "Wimbledon" {
		t.Errorf("tournament filter = %q, %v", v, ok)
	}
	if v, ok := call.filters.Value(filter.FieldRound); !ok || v != "F" {
		t.Errorf("round filter = %q, %v", v, ok)
	}
	if len(res.Records) != 2 {
		t.Errorf("records = %d, want 2 (accepted as-is)", len(res.Records))
	}
	if got, _ := res.Parsed.Tournament(); got != "Wimbledon" {
		t.Errorf("parsed tournament = %q", got)
	}
}

func TestSearch_NoIntent_EmptyFilter(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})

	res, err := svc.Search(context.Background(), "tell me about tennis", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("expected empty result, got %d", len(res.Records))
	}
	if !idx.calls[0].filters.IsEmpty() {
		t.Errorf("expected empty filter, got %v", idx.calls[0].filters.Conditions())
	}
}

func TestSearch_Years_FanOutAndPrefixFilter(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		// The index ignores years; every branch sees the same neighborhood.
		return []match.Record{
			rec("2018-540_701", "Djokovic", "Anderson"),
			rec("2019-540_701", "Djokovic", "Federer"),
			rec("2017-540_701", "Federer", "Cilic"),
			rec("2019-540_601", "Federer", "Nadal"),
		}, nil
	}

	res, err := svc.Search(context.Background(), "Wimbledon finals in 2019 and 2018", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2019-540_701", "2019-540_601", "2018-540_701"}
	if got := ids(res.Records); !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
	if idx.callCount() != 2 {
		t.Fatalf("index calls = %d, want one per year", idx.callCount())
	}
	for _, c := range idx.calls {
		if c.topK != DefaultPerYearCandidates {
			t.Errorf("topK = %d, want %d", c.topK, DefaultPerYearCandidates)
		}
	}
}

func TestSearch_YearsNeverInFilter(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})

	if _, err := svc.Search(context.Background(), "US Open 2016 final", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range idx.calls {
		for _, cond := range c.filters.Conditions() {
			if cond.Key() != filter.FieldTournament && cond.Key() != filter.FieldRound {
				t.Errorf("unexpected filter key %q", cond.Key())
			}
		}
	}
}

func TestSearch_YearOrderSurvivesConcurrency(t *testing.T) {
	svc, _, idx := newTestService(t, Config{FanOutConcurrency: 3})

	// Earlier-started branches finish later, so completion order is reversed.
	var seq atomic.Int32
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		n := seq.Add(1)
		time.Sleep(time.Duration(4-n) * 15 * time.Millisecond)
		return []match.Record{
			rec("2018-1_1", "A", "B"),
			rec("2016-1_1", "C", "D"),
			rec("2015-1_1", "E", "F"),
		}, nil
	}

	for range 5 {
		seq.Store(0)
		res, err := svc.Search(context.Background(), "2015 2016 2018", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"2015-1_1", "2016-1_1", "2018-1_1"}
		if got := ids(res.Records); !reflect.DeepEqual(got, want) {
			t.Fatalf("records = %v, want %v", got, want)
		}
	}
}

func TestSearch_LimitLaw(t *testing.T) {
	many := make([]match.Record, 0, 40)
	for i := range 40 {
		many = append(many, rec(fmt.Sprintf("2019-%d_1", i), "A", "B"))
	}

	for _, q := range []string{"grass court finals", "finals in 2019"} {
		for _, limit := range []int{1, 3, 25, 100} {
			svc, _, idx := newTestService(t, Config{})
			idx.queryFn = func(_ context.Context, topK int, _ filter.Expression) ([]match.Record, error) {
				if topK < len(many) {
					return many[:topK], nil
				}
				return many, nil
			}

			res, err := svc.Search(context.Background(), q, limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Records) > limit {
				t.Errorf("%q limit=%d: got %d records", q, limit, len(res.Records))
			}
			if want := min(limit, len(many)); len(res.Records) != want {
				t.Errorf("%q limit=%d: got %d records, want %d", q, limit, len(res.Records), want)
			}
		}
	}
}

func TestSearch_TruncationKeepsEarlierYears(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		return []match.Record{
			rec("2010-1_1", "A", "B"), rec("2010-1_2", "A", "C"),
			rec("2011-1_1", "A", "D"), rec("2011-1_2", "A", "E"),
		}, nil
	}

	res, err := svc.Search(context.Background(), "2011 vs 2010", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2011-1_1", "2011-1_2", "2010-1_1"}
	if got := ids(res.Records); !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
}

func TestSearch_EmbedFailure(t *testing.T) {
	svc, emb, idx := newTestService(t, Config{})
	emb.err = fmt.Errorf("provider down: %w", domain.ErrEmbeddingFailure)

	_, err := svc.Search(context.Background(), "who won in 2019", 5)
	if !errors.Is(err, domain.ErrEmbeddingFailure) || !errors.Is(err, domain.ErrRetrievalFailure) {
		t.Fatalf("expected embedding retrieval failure, got %v", err)
	}
	var re *domain.RetrievalError
	if !errors.As(err, &re) || re.Stage != domain.StageEmbed {
		t.Errorf("expected embed stage, got %+v", re)
	}
	if idx.callCount() != 0 {
		t.Errorf("index must not be queried after an embed failure, got %d calls", idx.callCount())
	}
}

func TestSearch_EmptyVectorIsEmbedFailure(t *testing.T) {
	svc, emb, _ := newTestService(t, Config{})
	emb.vec = nil

	_, err := svc.Search(context.Background(), "nadal", 5)
	if !errors.Is(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestSearch_YearBranchFailureFailsWholeSearch(t *testing.T) {
	svc, _, idx := newTestService(t, Config{FanOutConcurrency: 1})
	boom := errors.New("index unreachable")
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		if idx.callCount() == 2 {
			return nil, boom
		}
		return []match.Record{rec("2015-1_1", "A", "B"), rec("2016-1_1", "A", "B")}, nil
	}

	res, err := svc.Search(context.Background(), "2015 and 2016 and 2017", 10)
	if !errors.Is(err, domain.ErrIndexQueryFailure) || !errors.Is(err, boom) {
		t.Fatalf("expected index failure wrapping cause, got %v", err)
	}
	var re *domain.RetrievalError
	if !errors.As(err, &re) || re.Year != "2016" {
		t.Errorf("expected failing year 2016, got %+v", re)
	}
	if res.Records != nil {
		t.Errorf("no partial records expected, got %v", ids(res.Records))
	}
	if idx.callCount() > 2 {
		t.Errorf("remaining branches should be skipped, got %d calls", idx.callCount())
	}
}

func TestSearch_SingleQueryFailure(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		return nil, errors.New("syntax error")
	}

	_, err := svc.Search(context.Background(), "nadal on clay", 5)
	var re *domain.RetrievalError
	if !errors.As(err, &re) || re.Stage != domain.StageIndex || re.Year != "" {
		t.Fatalf("expected index stage without year, got %v", err)
	}
}

func TestSearch_Cancellation(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	idx.queryFn = func(ctx context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	res, err := svc.Search(ctx, "finals of 2012 2013 2014", 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrIndexQueryFailure) {
		t.Error("cancellation must surface as a single cancellation error")
	}
	if res.Records != nil {
		t.Error("no partial records expected")
	}
}

func TestSearch_NoMatchingYearIsSuccess(t *testing.T) {
	svc, _, idx := newTestService(t, Config{})
	idx.queryFn = func(_ context.Context, _ int, _ filter.Expression) ([]match.Record, error) {
		return []match.Record{rec("2019-1_1", "A", "B")}, nil
	}

	res, err := svc.Search(context.Background(), "who won in 1999", 5)
	if err != nil {
		t.Fatalf("empty results are success: %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("expected no records, got %v", ids(res.Records))
	}
}

func TestSearch_StrictYears(t *testing.T) {
	svc, _, idx := newTestService(t, Config{StrictYears: true})

	res, err := svc.Search(context.Background(), "finals 2030 and 2019", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.callCount() != 1 {
		t.Errorf("expected only 2019 to be queried, got %d calls", idx.callCount())
	}
	if !reflect.DeepEqual(res.Parsed.Years(), []string{"2030", "2019"}) {
		t.Errorf("parsed years must stay intact, got %v", res.Parsed.Years())
	}
}

func TestSearch_StrictYearsAllOutOfRangeFallsBackToSingle(t *testing.T) {
	svc, _, idx := newTestService(t, Config{StrictYears: true})

	if _, err := svc.Search(context.Background(), "who wins in 2031", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.callCount() != 1 || idx.calls[0].topK != 4 {
		t.Errorf("expected one limit-sized query, got %+v", idx.calls)
	}
}

func TestSearch_CustomPerYearCandidates(t *testing.T) {
	svc, _, idx := newTestService(t, Config{PerYearCandidates: 250})

	if _, err := svc.Search(context.Background(), "2020", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.calls[0].topK != 250 {
		t.Errorf("topK = %d, want 250", idx.calls[0].topK)
	}
}

func TestSearch_CountsUsage(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx, usage := domain.NewContextWithUsage(context.Background())

	if _, err := svc.Search(ctx, "2001 2002 2003", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.IndexQueries() != 3 {
		t.Errorf("index queries = %d, want 3", usage.IndexQueries())
	}
}
