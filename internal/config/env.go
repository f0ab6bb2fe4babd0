package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.trialdex
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/trialdex.db
	DBURL string `envconfig:"DB_URL"`

	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// EmbeddingEndpoint configures a remote embedding service. When no model
	// is set the bundled local model is used.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Registry configures the upstream trial registry.
	Registry RegistryEnv `envconfig:"REGISTRY"`

	// Ingest configures ingestion runs.
	Ingest IngestEnv `envconfig:"INGEST"`

	// HTTPCacheDir caches embedding request/response pairs to disk.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`
}

// EndpointEnv holds environment configuration for an embedding endpoint.
type EndpointEnv struct {
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g., text-embedding-3-small).
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// Env: *_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: *_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// Env: *_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// RegistryEnv holds environment configuration for the registry client.
type RegistryEnv struct {
	// Env: REGISTRY_URL
	URL string `envconfig:"URL"`

	// Timeout is the per-request timeout in seconds.
	// Env: REGISTRY_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// RateLimit is the maximum requests per second.
	// Env: REGISTRY_RATE_LIMIT (default: 2)
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"2"`
}

// IngestEnv holds environment configuration for ingestion runs.
type IngestEnv struct {
	// Env: INGEST_TARGET (default: 200)
	Target int `envconfig:"TARGET" default:"200"`

	// Env: INGEST_QUERY
	Query string `envconfig:"QUERY"`

	// PriorityIDs is a comma-separated list of trial identifiers.
	// Env: INGEST_PRIORITY_IDS
	PriorityIDs string `envconfig:"PRIORITY_IDS"`

	// PageDelay is the pause between bulk requests in seconds.
	// Env: INGEST_PAGE_DELAY (default: 1)
	PageDelay float64 `envconfig:"PAGE_DELAY" default:"1"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "TRIALDEX" would require TRIALDEX_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}

	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}

	cfg = applyOption(cfg, WithRegistryConfig(e.Registry.ToRegistryConfig()))
	cfg = applyOption(cfg, WithIngestConfig(e.Ingest.ToIngestConfig()))

	if e.HTTPCacheDir != "" {
		cfg = applyOption(cfg, WithHTTPCacheDir(e.HTTPCacheDir))
	}

	return cfg
}

func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithTimeout(seconds(e.Timeout)),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(seconds(e.InitialDelay)),
		WithBackoffFactor(e.BackoffFactor),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// ToRegistryConfig converts RegistryEnv to RegistryConfig.
func (r RegistryEnv) ToRegistryConfig() RegistryConfig {
	cfg := NewRegistryConfig()
	if r.URL != "" {
		cfg = cfg.WithBaseURL(r.URL)
	}
	if r.Timeout > 0 {
		cfg = cfg.WithTimeout(seconds(r.Timeout))
	}
	if r.RateLimit > 0 {
		cfg = cfg.WithRateLimit(r.RateLimit)
	}
	return cfg
}

// ToIngestConfig converts IngestEnv to IngestConfig.
func (i IngestEnv) ToIngestConfig() IngestConfig {
	return NewIngestConfig().
		WithTarget(i.Target).
		WithQuery(i.Query).
		WithPriorityIDs(ParseList(i.PriorityIDs)).
		WithPageDelay(seconds(i.PageDelay))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
