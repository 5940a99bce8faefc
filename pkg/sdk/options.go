package courtside

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	apiKey  string
	baseURL string
	model   string
}

type clientConfig struct {
	addrs    []string
	password string

	embedder    Embedder
	openAI      *openAIConfig
	dimensions  int
	instruction string
	cacheTTL    time.Duration

	chat *openAIConfig

	indexName         string
	perYearCandidates int
	fanOutConcurrency int
	strictYears       bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects to a Redis 8+ instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey connects to a Valkey instance with valkey-search loaded.
// The wire protocol is the same as Redis.
func WithValkey(addr, password string) Option {
	return WithRedis(addr, password)
}

// WithEmbedder sets a custom query embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI embeds queries with an OpenAI-compatible API.
// An empty baseURL uses api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &openAIConfig{apiKey: apiKey, baseURL: baseURL, model: model}
	})
}

// WithDimensions requests vectors of the given size from WithOpenAI.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithQueryInstruction prefixes every query before embedding.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instruction = instruction
	})
}

// WithEmbeddingCache caches query embeddings in the database for ttl.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithChatModel enables Client.Answer with an OpenAI-compatible chat model.
func WithChatModel(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.chat = &openAIConfig{apiKey: apiKey, baseURL: baseURL, model: model}
	})
}

// WithIndex overrides the match index name.
func WithIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithYearFanOut tunes per-year retrieval: candidates fetched per year and
// how many years are queried at once.
func WithYearFanOut(candidates, concurrency int) Option {
	return optionFunc(func(c *clientConfig) {
		c.perYearCandidates = candidates
		c.fanOutConcurrency = concurrency
	})
}

// WithStrictYears ignores years outside 1877..2024 when routing questions.
func WithStrictYears() Option {
	return optionFunc(func(c *clientConfig) {
		c.strictYears = true
	})
}

// WithLogger sets the logger for SDK operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK operation metrics in reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
