package retrieval

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/match"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
)

type mockEmbedder struct {
	vec      []float32
	err      error
	calls    int
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 4}, nil
}

type indexCall struct {
	topK    int
	filters filter.Expression
}

// mockIndex records calls; queryFn is invoked concurrently during year fan-out.
type mockIndex struct {
	mu      sync.Mutex
	calls   []indexCall
	queryFn func(ctx context.Context, topK int, filters filter.Expression) ([]match.Record, error)
}

func (m *mockIndex) Query(
	ctx context.Context, _ []float32, topK int, filters filter.Expression,
) ([]match.Record, error) {
	m.mu.Lock()
	m.calls = append(m.calls, indexCall{topK: topK, filters: filters})
	m.mu.Unlock()
	if m.queryFn != nil {
		return m.queryFn(ctx, topK, filters)
	}
	return nil, nil
}

func (m *mockIndex) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestService(t *testing.T, cfg Config) (*Service, *mockEmbedder, *mockIndex) {
	t.Helper()
	emb := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	idx := &mockIndex{}
	return New(emb, idx, cfg, zap.NewNop()), emb, idx
}

// rec builds a final-round record; id starts with the year.
func rec(id, winner, loser string) match.Record {
	return match.Record{
		MatchID:        id,
		WinnerName:     winner,
		LoserName:      loser,
		TournamentName: "Wimbledon",
		Surface:        match.SurfaceGrass,
		Round:          match.RoundFinal,
	}
}

func ids(records []match.Record) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = records[i].MatchID
	}
	return out
}
