// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultRegistryURL           = "https://clinicaltrials.gov/api/v2/studies"
	DefaultRegistryTimeout       = 30 * time.Second
	DefaultRegistryRateLimit     = 2.0
	DefaultIngestTarget          = 200
	DefaultIngestQuery           = "Cancer OR Cardiology OR Alzheimer OR Diabetes"
	DefaultIngestPageDelay       = time.Second
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultDatabaseFile          = "trialdex.db"
	DefaultModelSubdir           = "models"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an embedding service endpoint.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// RegistryConfig configures the upstream trial registry client.
type RegistryConfig struct {
	baseURL   string
	timeout   time.Duration
	rateLimit float64
}

// NewRegistryConfig creates a new RegistryConfig with defaults.
func NewRegistryConfig() RegistryConfig {
	return RegistryConfig{
		baseURL:   DefaultRegistryURL,
		timeout:   DefaultRegistryTimeout,
		rateLimit: DefaultRegistryRateLimit,
	}
}

// BaseURL returns the studies endpoint URL.
func (r RegistryConfig) BaseURL() string { return r.baseURL }

// Timeout returns the per-request timeout.
func (r RegistryConfig) Timeout() time.Duration { return r.timeout }

// RateLimit returns the maximum requests per second.
func (r RegistryConfig) RateLimit() float64 { return r.rateLimit }

// WithBaseURL returns a new config with the specified URL.
func (r RegistryConfig) WithBaseURL(url string) RegistryConfig {
	r.baseURL = url
	return r
}

// WithTimeout returns a new config with the specified timeout.
func (r RegistryConfig) WithTimeout(d time.Duration) RegistryConfig {
	r.timeout = d
	return r
}

// WithRateLimit returns a new config with the specified rate limit.
func (r RegistryConfig) WithRateLimit(perSecond float64) RegistryConfig {
	r.rateLimit = perSecond
	return r
}

// IngestConfig configures an ingestion run.
type IngestConfig struct {
	target      int
	query       string
	priorityIDs []string
	pageDelay   time.Duration
}

// NewIngestConfig creates a new IngestConfig with defaults.
func NewIngestConfig() IngestConfig {
	return IngestConfig{
		target:      DefaultIngestTarget,
		query:       DefaultIngestQuery,
		priorityIDs: []string{},
		pageDelay:   DefaultIngestPageDelay,
	}
}

// Target returns the number of protocol documents to collect.
func (i IngestConfig) Target() int { return i.target }

// Query returns the bulk search expression.
func (i IngestConfig) Query() string { return i.query }

// PriorityIDs returns the trial identifiers fetched before the bulk phase.
func (i IngestConfig) PriorityIDs() []string {
	ids := make([]string, len(i.priorityIDs))
	copy(ids, i.priorityIDs)
	return ids
}

// PageDelay returns the politeness pause between bulk requests.
func (i IngestConfig) PageDelay() time.Duration { return i.pageDelay }

// WithTarget returns a new config with the specified target.
func (i IngestConfig) WithTarget(n int) IngestConfig {
	if n > 0 {
		i.target = n
	}
	return i
}

// WithQuery returns a new config with the specified query.
func (i IngestConfig) WithQuery(q string) IngestConfig {
	if q != "" {
		i.query = q
	}
	return i
}

// WithPriorityIDs returns a new config with the specified priority identifiers.
func (i IngestConfig) WithPriorityIDs(ids []string) IngestConfig {
	i.priorityIDs = make([]string, len(ids))
	copy(i.priorityIDs, ids)
	return i
}

// WithPageDelay returns a new config with the specified page delay.
func (i IngestConfig) WithPageDelay(d time.Duration) IngestConfig {
	if d >= 0 {
		i.pageDelay = d
	}
	return i
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	dbURL             string
	logLevel          string
	logFormat         LogFormat
	embeddingEndpoint *Endpoint
	registry          RegistryConfig
	ingest            IngestConfig
	httpCacheDir      string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trialdex"
	}
	return filepath.Join(home, ".trialdex")
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:      DefaultHost,
		port:      DefaultPort,
		dataDir:   dataDir,
		dbURL:     "sqlite:///" + filepath.Join(dataDir, DefaultDatabaseFile),
		logLevel:  DefaultLogLevel,
		logFormat: LogFormatPretty,
		registry:  NewRegistryConfig(),
		ingest:    NewIngestConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// EmbeddingEndpoint returns the embedding endpoint config, or nil when the
// local model should be used.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// Registry returns the registry client config.
func (c AppConfig) Registry() RegistryConfig { return c.registry }

// Ingest returns the ingestion run config.
func (c AppConfig) Ingest() IngestConfig { return c.ingest }

// HTTPCacheDir returns the directory for cached embedding responses.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// ModelDir returns the directory holding local embedding models.
func (c AppConfig) ModelDir() string {
	return filepath.Join(c.dataDir, DefaultModelSubdir)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.HasSuffix(c.dbURL, DefaultDatabaseFile) {
			c.dbURL = "sqlite:///" + filepath.Join(dir, DefaultDatabaseFile)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithRegistryConfig sets the registry config.
func WithRegistryConfig(r RegistryConfig) AppConfigOption {
	return func(c *AppConfig) { c.registry = r }
}

// WithIngestConfig sets the ingestion config.
func WithIngestConfig(i IngestConfig) AppConfigOption {
	return func(c *AppConfig) { c.ingest = i }
}

// WithHTTPCacheDir sets the embedding response cache directory.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Credentials are masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_base_url", c.endpointBaseURL()),
		slog.String("embedding_model", c.endpointModel()),
		slog.String("registry_url", c.registry.BaseURL()),
		slog.Duration("registry_timeout", c.registry.Timeout()),
		slog.Int("ingest_target", c.ingest.Target()),
		slog.Int("ingest_priority_ids", len(c.ingest.priorityIDs)),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) endpointBaseURL() string {
	if c.embeddingEndpoint == nil {
		return "(not configured)"
	}
	return c.embeddingEndpoint.BaseURL()
}

func (c AppConfig) endpointModel() string {
	if c.embeddingEndpoint == nil {
		return "(local)"
	}
	return c.embeddingEndpoint.Model()
}

// ParseList parses a comma-separated string into trimmed, non-empty values.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
