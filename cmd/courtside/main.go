package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courtside/internal/config"
	"github.com/kailas-cloud/courtside/internal/db"
	dbRedis "github.com/kailas-cloud/courtside/internal/db/redis"
	"github.com/kailas-cloud/courtside/internal/domain"
	logpkg "github.com/kailas-cloud/courtside/internal/logger"
	"github.com/kailas-cloud/courtside/internal/metrics"
	"github.com/kailas-cloud/courtside/internal/repository/embcache"
	"github.com/kailas-cloud/courtside/internal/repository/matchindex"
	"github.com/kailas-cloud/courtside/internal/telemetry"
	chiTransport "github.com/kailas-cloud/courtside/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/courtside/internal/transport/openai"
	answeruc "github.com/kailas-cloud/courtside/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/courtside/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/courtside/internal/usecase/health"
	"github.com/kailas-cloud/courtside/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/courtside/internal/usecase/search"
	"github.com/kailas-cloud/courtside/internal/version"
)

func main() {
	// A missing .env is fine; real deployments pass env vars directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting courtside API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index", cfg.Index.Name),
	)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Start(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ServiceVersion: version.Version,
		Environment:    env,
	})
	if err != nil {
		logger.Fatal("Failed to start tracing", zap.Error(err))
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Database.Addrs,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		DB:          cfg.Database.DB,
		DialTimeout: time.Duration(cfg.Database.DialTimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	queryEmbedder := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Query embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheTTLHours > 0),
	)

	index := matchindex.New(store, cfg.Index.Name)
	if err := index.Ready(ctx); err != nil {
		// The index is built by ingestion; keep serving and report it on /health.
		logger.Warn("Match index not ready", zap.String("index", index.IndexName()), zap.Error(err))
	}

	retrievalSvc := retrieval.New(queryEmbedder, index, retrieval.Config{
		PerYearCandidates: cfg.Search.PerYearCandidates,
		FanOutConcurrency: cfg.Search.FanOutConcurrency,
		StrictYears:       cfg.Index.StrictYears,
	}, logger)
	searchSvc := searchuc.New(retrievalSvc, logger)

	answerer := openaiTransport.NewAnswerer(&openaiTransport.AnswererConfig{
		Config: openaiTransport.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Logger:  logger,
		},
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	answerSvc := answeruc.New(searchSvc, answerer, logger)

	healthSvc := healthuc.New(store, index, newEmbeddingHealthChecker(queryEmbedder))

	server := chiTransport.NewServer(searchSvc, answerSvc, healthSvc, logger).
		WithTimeout(time.Duration(cfg.Search.TimeoutSec) * time.Second)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.CacheTTLHours > 0 {
		embedder = embcache.New(base, store, cfg.Model, logger,
			embcache.WithTTL(time.Duration(cfg.CacheTTLHours)*time.Hour),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Instruction prefix is outermost, so cache keys include it.
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}
