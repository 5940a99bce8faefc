package domain

import (
	"context"
	"sync/atomic"
)

type usageKey struct{}

// SearchUsage counts the collaborator calls made while serving one search.
// The transport layer attaches it to the request context and reports it in
// response headers; retrieval increments it. Index queries from the year
// fan-out run concurrently, so counters are atomic.
type SearchUsage struct {
	embeddingTokens atomic.Int64
	embedCalls      atomic.Int64
	indexQueries    atomic.Int64
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *SearchUsage) {
	u := &SearchUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil when none was attached.
func UsageFromContext(ctx context.Context) *SearchUsage {
	u, _ := ctx.Value(usageKey{}).(*SearchUsage)
	return u
}

// AddEmbedding records one embedding call and its tokens (0 on cache hit).
func (u *SearchUsage) AddEmbedding(tokens int) {
	if u == nil {
		return
	}
	u.embedCalls.Add(1)
	u.embeddingTokens.Add(int64(tokens))
}

// AddIndexQuery records one vector index query.
func (u *SearchUsage) AddIndexQuery() {
	if u != nil {
		u.indexQueries.Add(1)
	}
}

// EmbeddingTokens returns the tokens consumed by embedding calls.
func (u *SearchUsage) EmbeddingTokens() int { return int(u.embeddingTokens.Load()) }

// EmbedCalls returns the number of embedding calls.
func (u *SearchUsage) EmbedCalls() int { return int(u.embedCalls.Load()) }

// IndexQueries returns the number of index queries issued.
func (u *SearchUsage) IndexQueries() int { return int(u.indexQueries.Load()) }
