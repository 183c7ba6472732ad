package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	BackendValkey = "valkey"
	BackendRedis  = "redis"
	BackendQdrant = "qdrant"
	BackendMemory = "memory"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Embedding cache backends.
const (
	CacheStore  = "store"
	CacheBadger = "badger"
	CacheNone   = "none"
)

// Catalog sources.
const (
	CatalogCSV    = "csv"
	CatalogSQLite = "sqlite"
)

// Config holds the bookrec configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds cross-origin settings. Empty origins allow all.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-IP limits on POST /recommend. Requests 0 disables limiting.
type RateLimitConfig struct {
	Requests  int `yaml:"requests"`
	WindowSec int `yaml:"window_sec"`
}

// Window returns the limiter window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSec) * time.Second
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig locates the book catalog and the tagged descriptions.
type CatalogConfig struct {
	Source     string `yaml:"source"` // csv, sqlite (default: csv)
	CSVPath    string `yaml:"csv_path"`
	SQLitePath string `yaml:"sqlite_path"`
	// TaggedPath is the "<isbn13> <description>" file the index is bootstrapped from.
	// Empty derives payloads from the loaded catalog.
	TaggedPath string `yaml:"tagged_path"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Backend         string `yaml:"backend"` // valkey, redis, qdrant, memory (default: valkey)
	Name            string `yaml:"name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	// Lazy defers index bootstrap to the first query instead of server start.
	Lazy      bool `yaml:"lazy"`
	BatchSize int  `yaml:"batch_size"`
	Workers   int  `yaml:"workers"`
}

// UsesStore reports whether the index lives in the Valkey/Redis store.
func (i IndexConfig) UsesStore() bool {
	return i.Backend == BackendValkey || i.Backend == BackendRedis
}

// DatabaseConfig holds Valkey/Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding provider and decorator settings.
type EmbeddingConfig struct {
	Provider            string        `yaml:"provider"` // openai, local (default: openai)
	Model               string        `yaml:"model"`
	Dimensions          int           `yaml:"dimensions"`
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	DocumentInstruction string        `yaml:"document_instruction"`
	QueryInstruction    string        `yaml:"query_instruction"`
	MaxBatchSize        int           `yaml:"max_batch_size"`
	Cache               CacheConfig   `yaml:"cache"`
	Breaker             BreakerConfig `yaml:"breaker"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Backend   string `yaml:"backend"` // store, badger, none (default: store when the index uses the store, else none)
	BadgerDir string `yaml:"badger_dir"`
	TTLHours  int    `yaml:"ttl_hours"`
}

// TTL returns the cache entry lifetime. Zero keeps entries forever.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// BreakerConfig holds embedding circuit breaker settings. ConsecutiveFailures 0 disables it.
type BreakerConfig struct {
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	OpenTimeoutSec      int    `yaml:"open_timeout_sec"`
	HalfOpenRequests    uint32 `yaml:"half_open_requests"`
}

// RetrievalConfig holds retrieval pipeline limits.
type RetrievalConfig struct {
	MaxTopK int `yaml:"max_top_k"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = CatalogCSV
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendValkey
	}
	if c.Index.Name == "" {
		c.Index.Name = "books"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 64
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 4
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Qdrant.Port <= 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = c.Index.Name
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Provider == ProviderLocal && c.Embedding.Model == "" {
		c.Embedding.Model = "local-hash"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
		if c.Embedding.Provider == ProviderLocal {
			c.Embedding.Dimensions = 384
		}
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.Cache.Backend == "" {
		c.Embedding.Cache.Backend = CacheNone
		if c.Index.UsesStore() {
			c.Embedding.Cache.Backend = CacheStore
		}
	}
	if c.Embedding.Breaker.OpenTimeoutSec <= 0 {
		c.Embedding.Breaker.OpenTimeoutSec = 30
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must not be negative, got %d", c.RateLimit.Requests)
	}

	switch c.Catalog.Source {
	case CatalogCSV:
		if c.Catalog.CSVPath == "" {
			return fmt.Errorf("catalog.csv_path is required for source %q", CatalogCSV)
		}
	case CatalogSQLite:
		if c.Catalog.SQLitePath == "" {
			return fmt.Errorf("catalog.sqlite_path is required for source %q", CatalogSQLite)
		}
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q", CatalogCSV, CatalogSQLite, c.Catalog.Source)
	}

	switch c.Index.Backend {
	case BackendValkey, BackendRedis, BackendMemory:
	case BackendQdrant:
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host is required for index backend %q", BackendQdrant)
		}
	default:
		return fmt.Errorf("index.backend must be one of valkey, redis, qdrant, memory, got %q", c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderLocal, c.Embedding.Provider)
	}

	switch c.Embedding.Cache.Backend {
	case CacheStore, CacheNone:
	case CacheBadger:
		// empty badger_dir runs the cache in memory
	default:
		return fmt.Errorf("embedding.cache.backend must be one of store, badger, none, got %q",
			c.Embedding.Cache.Backend)
	}

	if c.NeedsStore() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Retrieval.MaxTopK <= 0 {
		return fmt.Errorf("retrieval.max_top_k must be positive, got %d", c.Retrieval.MaxTopK)
	}
	return nil
}

// NeedsStore reports whether a Valkey/Redis connection is required.
func (c *Config) NeedsStore() bool {
	return c.Index.UsesStore() || c.Embedding.Cache.Backend == CacheStore
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
