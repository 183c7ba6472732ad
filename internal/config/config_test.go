package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Catalog:  CatalogConfig{CSVPath: "data/books_with_emotions.csv"},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 0},
		Catalog:  CatalogConfig{Source: CatalogCSV, CSVPath: "books.csv"},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingStoreAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
	if !strings.Contains(err.Error(), "database.addrs") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_MemoryBackendNeedsNoStore(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Catalog:   CatalogConfig{CSVPath: "books.csv"},
		Index:     IndexConfig{Backend: BackendMemory},
		Embedding: EmbeddingConfig{Provider: ProviderLocal},
	}
	cfg.ApplyDefaults()

	if cfg.Embedding.Cache.Backend != CacheNone {
		t.Errorf("cache backend: got %q, want %q", cfg.Embedding.Cache.Backend, CacheNone)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_StoreCacheNeedsAddrs(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Catalog:   CatalogConfig{CSVPath: "books.csv"},
		Index:     IndexConfig{Backend: BackendMemory},
		Embedding: EmbeddingConfig{Cache: CacheConfig{Backend: CacheStore}},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: store cache without addrs")
	}
}

func TestValidate_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"catalog source", func(c *Config) { c.Catalog.Source = "parquet" }, "catalog.source"},
		{"sqlite without path", func(c *Config) { c.Catalog.Source = CatalogSQLite }, "catalog.sqlite_path"},
		{"csv without path", func(c *Config) { c.Catalog.CSVPath = "" }, "catalog.csv_path"},
		{"index backend", func(c *Config) { c.Index.Backend = "faiss" }, "index.backend"},
		{"qdrant without host", func(c *Config) { c.Index.Backend = BackendQdrant }, "qdrant.host"},
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "onnx" }, "embedding.provider"},
		{"cache backend", func(c *Config) { c.Embedding.Cache.Backend = "memcached" }, "embedding.cache.backend"},
		{"negative rate limit", func(c *Config) { c.RateLimit.Requests = -1 }, "rate_limit.requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Catalog.Source != CatalogCSV {
		t.Errorf("expected catalog source csv, got %q", cfg.Catalog.Source)
	}
	if cfg.Index.Backend != BackendValkey {
		t.Errorf("expected backend valkey, got %q", cfg.Index.Backend)
	}
	if cfg.Index.Name != "books" {
		t.Errorf("expected index name books, got %q", cfg.Index.Name)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected HNSW 16/200, got %d/%d", cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct)
	}
	if cfg.Index.BatchSize != 64 || cfg.Index.Workers != 4 {
		t.Errorf("expected batch 64 workers 4, got %d/%d", cfg.Index.BatchSize, cfg.Index.Workers)
	}
	if cfg.Qdrant.Port != 6334 || cfg.Qdrant.Collection != "books" {
		t.Errorf("qdrant defaults: got %d %q", cfg.Qdrant.Port, cfg.Qdrant.Collection)
	}
	if cfg.Embedding.Provider != ProviderOpenAI || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("embedding defaults: got %q %q", cfg.Embedding.Provider, cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Cache.Backend != CacheStore {
		t.Errorf("expected store cache, got %q", cfg.Embedding.Cache.Backend)
	}
	if cfg.Retrieval.MaxTopK != 500 {
		t.Errorf("expected MaxTopK=500, got %d", cfg.Retrieval.MaxTopK)
	}
	if cfg.RateLimit.Window() != time.Minute {
		t.Errorf("expected 1m rate window, got %s", cfg.RateLimit.Window())
	}
}

func TestApplyDefaults_LocalProvider(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Provider: ProviderLocal}}
	cfg.ApplyDefaults()

	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.Model != "local-hash" {
		t.Errorf("expected model local-hash, got %q", cfg.Embedding.Model)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{ReadinessTimeout: 15},
		Index:     IndexConfig{Backend: BackendQdrant, Name: "catalog", HNSWM: 32, HNSWEFConstruct: 400},
		Qdrant:    QdrantConfig{Collection: "books_v2"},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-large", Dimensions: 3072},
		Retrieval: RetrievalConfig{MaxTopK: 100},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.Name != "catalog" {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
	if cfg.Qdrant.Collection != "books_v2" {
		t.Errorf("qdrant collection overridden: %q", cfg.Qdrant.Collection)
	}
	if cfg.Embedding.Dimensions != 3072 || cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("embedding overridden: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Cache.Backend != CacheNone {
		t.Errorf("qdrant backend should default to no cache, got %q", cfg.Embedding.Cache.Backend)
	}
	if cfg.Retrieval.MaxTopK != 100 {
		t.Errorf("MaxTopK overridden: %d", cfg.Retrieval.MaxTopK)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("BOOKREC_TEST_KEY", "sk-test")

	cfg, err := Parse([]byte(`
http:
  port: ${BOOKREC_TEST_PORT:-8081}
catalog:
  csv_path: books.csv
index:
  backend: memory
embedding:
  provider: local
  api_key: ${BOOKREC_TEST_KEY}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("port: got %d, want 8081", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Embedding.APIKey)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_RepoConfigs(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("DATABASE_ADDRS", "localhost:6379")
			if _, err := Load(env); err != nil {
				t.Fatalf("load %s: %v", env, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
