package db

import (
	"context"
	"time"
)

// Store is the database facade used by the composition root.
// Consumers depend on the narrow sub-interfaces below.
type Store interface {
	Pinger
	KVStore
	IndexInspector
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexInspector checks that an FT index is present. Index creation belongs to ingestion.
type IndexInspector interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs vector similarity search over an FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
