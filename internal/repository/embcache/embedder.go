// Package embcache memoizes query embeddings in the key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/db"
	"github.com/kailas-cloud/courtside/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// DefaultTTL applies when the configured TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Option customizes a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL sets the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheCounter attaches a counter vec with label "result" ("hit"/"miss").
func WithCacheCounter(cv *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.cacheTotal = cv }
}

// CachedEmbedder caches embeddings keyed by model and text.
// Repeated questions skip the provider round trip.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. model namespaces keys so a model switch
// never serves vectors from the previous embedding space.
func New(inner domain.Embedder, s store, model string, logger *zap.Logger, opts ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		store:  s,
		model:  model,
		ttl:    DefaultTTL,
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit reports zero tokens since nothing was consumed.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if len(result.Embedding) > 0 {
		c.putToCache(ctx, key, result.Embedding)
	}
	return result, nil
}

// HealthCheck forwards to the inner embedder.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn("Dropping corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
