package matchindex

import (
	"context"
	"testing"

	"github.com/kailas-cloud/courtside/internal/db"
	"github.com/kailas-cloud/courtside/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return true, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, ""), ms
}

func mustEquals(t *testing.T, key, value string) filter.Condition {
	t.Helper()
	c, err := filter.NewEquals(key, value)
	if err != nil {
		t.Fatalf("NewEquals: %v", err)
	}
	return c
}
