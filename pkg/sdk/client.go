package courtside

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/db"
	dbRedis "github.com/kailas-cloud/courtside/internal/db/redis"
	"github.com/kailas-cloud/courtside/internal/domain"
	"github.com/kailas-cloud/courtside/internal/domain/search/request"
	"github.com/kailas-cloud/courtside/internal/metrics"
	"github.com/kailas-cloud/courtside/internal/repository/embcache"
	"github.com/kailas-cloud/courtside/internal/repository/matchindex"
	openaiTransport "github.com/kailas-cloud/courtside/internal/transport/openai"
	answeruc "github.com/kailas-cloud/courtside/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/courtside/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/courtside/internal/usecase/health"
	"github.com/kailas-cloud/courtside/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/courtside/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, q string, limit int) (searchuc.Result, error)
}

type answerUseCase interface {
	Answer(ctx context.Context, question string) (answeruc.Result, error)
}

// Client is the courtside SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	answerSvc answerUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("courtside: database address required (use WithRedis or WithValkey)")
	}
	if cfg.embedder == nil && cfg.openAI == nil {
		return nil, errors.New("courtside: query embedder required (use WithOpenAI or WithEmbedder)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("courtside: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("courtside: database not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	// Transport metrics are package-level collectors; registering is idempotent.
	metrics.Register()

	embedder := buildEmbedder(store, cfg)
	index := matchindex.New(store, cfg.indexName)

	retrievalSvc := retrieval.New(embedder, index, retrieval.Config{
		PerYearCandidates: cfg.perYearCandidates,
		FanOutConcurrency: cfg.fanOutConcurrency,
		StrictYears:       cfg.strictYears,
	}, cfg.logger)
	searchSvc := searchuc.New(retrievalSvc, cfg.logger)

	c := &Client{
		store:     store,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, index, healthCheckerOf(embedder)),
		obs:       obs,
	}

	if cfg.chat != nil {
		answerer := openaiTransport.NewAnswerer(&openaiTransport.AnswererConfig{
			Config: openaiTransport.Config{
				APIKey:  cfg.chat.apiKey,
				BaseURL: cfg.chat.baseURL,
				Model:   cfg.chat.model,
				Logger:  cfg.logger,
			},
		})
		c.answerSvc = answeruc.New(searchSvc, answerer, cfg.logger)
	}
	return c
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(store db.KVStore, cfg *clientConfig) domain.Embedder {
	var (
		embedder domain.Embedder
		provider = "custom"
		model    = "custom"
	)
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	} else {
		provider, model = "openai", cfg.openAI.model
		embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.openAI.apiKey,
			BaseURL:    cfg.openAI.baseURL,
			Model:      model,
			Dimensions: cfg.dimensions,
			Provider:   provider,
			Logger:     cfg.logger,
		})
	}

	if cfg.cacheTTL > 0 {
		embedder = embcache.New(embedder, store, model, cfg.logger,
			embcache.WithTTL(cfg.cacheTTL),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provider, model, cfg.logger)

	if cfg.instruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.instruction)
	}
	return embedder
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search retrieves up to limit matches for q and summarizes them.
// A zero limit uses the default of 5.
func (c *Client) Search(ctx context.Context, q string, limit int) (_ SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	if limit == 0 {
		limit = request.DefaultLimit
	}

	res, err := c.searchSvc.Search(ctx, q, limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	return SearchResult{
		ID:       res.SearchID,
		Parsed:   res.Parsed,
		Matches:  res.Records,
		Analysis: res.Analysis,
	}, nil
}

// Answer composes a natural-language answer to question from the matches it retrieves.
func (c *Client) Answer(ctx context.Context, question string) (_ Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("answer", start, err) }()

	if c.answerSvc == nil {
		return Answer{}, ErrAnswerNotConfigured
	}
	res, err := c.answerSvc.Answer(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}
	return res, nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// HealthCheck delegates when the custom embedder can report health.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

type embeddingHealth struct {
	embedder domain.Embedder
}

func (h embeddingHealth) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func healthCheckerOf(e domain.Embedder) healthuc.EmbeddingChecker {
	return embeddingHealth{embedder: e}
}
