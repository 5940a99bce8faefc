package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{APIKey: "test-key"},
		Telemetry: TelemetryConfig{Protocol: "grpc", SampleRatio: 1},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too big", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"no api key", func(c *Config) { c.Embedding.APIKey = "" }, "embedding.api_key"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"protocol", func(c *Config) { c.Telemetry.Protocol = "udp" }, "telemetry.protocol"},
		{"sample ratio", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, "telemetry.sample_ratio"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "emb-key", BaseURL: "https://emb.example/v1"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.CacheTTLHours != 168 {
		t.Errorf("expected CacheTTLHours=168, got %d", cfg.Embedding.CacheTTLHours)
	}
	if cfg.LLM.APIKey != "emb-key" || cfg.LLM.BaseURL != "https://emb.example/v1" {
		t.Errorf("llm should inherit embedding credentials: %+v", cfg.LLM)
	}
	if cfg.Index.Name != "courtside:matches:idx" {
		t.Errorf("expected default index name, got %q", cfg.Index.Name)
	}
	if cfg.Search.PerYearCandidates != 100 || cfg.Search.FanOutConcurrency != 4 {
		t.Errorf("search defaults: %+v", cfg.Search)
	}
	if cfg.Telemetry.Protocol != "grpc" || cfg.Telemetry.SampleRatio != 1 {
		t.Errorf("telemetry defaults: %+v", cfg.Telemetry)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 90, ShutdownSec: 5},
		Embedding: EmbeddingConfig{APIKey: "emb-key", CacheTTLHours: -1},
		LLM:       LLMConfig{APIKey: "llm-key", Model: "gpt-4o"},
		Index:     IndexConfig{Name: "custom:idx"},
		Search:    SearchConfig{PerYearCandidates: 250, FanOutConcurrency: 1},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 90 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Embedding.CacheTTLHours != -1 {
		t.Errorf("negative ttl disables the cache and must be kept, got %d", cfg.Embedding.CacheTTLHours)
	}
	if cfg.LLM.APIKey != "llm-key" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("llm overridden: %+v", cfg.LLM)
	}
	if cfg.Index.Name != "custom:idx" {
		t.Errorf("index overridden: %q", cfg.Index.Name)
	}
	if cfg.Search.PerYearCandidates != 250 || cfg.Search.FanOutConcurrency != 1 {
		t.Errorf("search overridden: %+v", cfg.Search)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("COURTSIDE_TEST_KEY", "sk-from-env")
	t.Setenv("COURTSIDE_TEST_UNSET", "")

	data := []byte(`
http:
  port: ${COURTSIDE_TEST_PORT:-8080}
database:
  addrs: ["localhost:6379"]
embedding:
  api_key: ${COURTSIDE_TEST_KEY}
  model: ${COURTSIDE_TEST_UNSET:-text-embedding-3-large}
index:
  strict_years: true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("model = %q", cfg.Embedding.Model)
	}
	if !cfg.Index.StrictYears {
		t.Error("strict_years not decoded")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("default env = %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("env = %q", GetEnv())
	}
}
