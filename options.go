package trialdex

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/infrastructure/provider"
	"github.com/helixml/trialdex/infrastructure/registry"
	"github.com/helixml/trialdex/internal/config"
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	dbURL             string
	dataDir           string
	modelDir          string
	httpCacheDir      string
	embeddingProvider provider.Embedder
	openAIConfig      *provider.OpenAIConfig
	registryURL       string
	registryOptions   []registry.Option
	query             string
	pageDelay         time.Duration
	logger            *slog.Logger
	closers           []io.Closer
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:     config.DefaultDataDir(),
		registryURL: registry.DefaultURL,
		query:       service.DefaultQuery,
		pageDelay:   service.DefaultPageDelay,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithDatabaseURL sets the database URL: sqlite:///path, sqlite:///:memory:
// or a postgres:// DSN.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) { c.dbURL = url }
}

// WithSQLite stores both collections in a SQLite file.
func WithSQLite(path string) Option {
	return func(c *clientConfig) { c.dbURL = "sqlite:///" + path }
}

// WithPostgres stores trials in PostgreSQL and protocols in a pgvector
// column.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) { c.dbURL = dsn }
}

// WithDataDir sets the data directory. The local model is looked up under
// its models subdirectory unless WithModelDir is given.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) { c.dataDir = dir }
}

// WithModelDir sets the directory of the local embedding model.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) { c.modelDir = dir }
}

// WithEmbeddingProvider uses p for both ingestion and query embeddings.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) { c.embeddingProvider = p }
}

// WithOpenAIConfig embeds through an OpenAI-compatible endpoint.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) { c.openAIConfig = &cfg }
}

// WithHTTPCacheDir caches embedding endpoint responses on disk.
func WithHTTPCacheDir(dir string) Option {
	return func(c *clientConfig) { c.httpCacheDir = dir }
}

// WithRegistryURL sets the registry studies endpoint.
func WithRegistryURL(url string) Option {
	return func(c *clientConfig) {
		if url != "" {
			c.registryURL = url
		}
	}
}

// WithRegistryOptions passes options through to the registry client.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(c *clientConfig) { c.registryOptions = append(c.registryOptions, opts...) }
}

// WithQuery sets the bulk search query used by Ingest.
func WithQuery(q string) Option {
	return func(c *clientConfig) {
		if q != "" {
			c.query = q
		}
	}
}

// WithPageDelay sets the pause between bulk pages. Zero disables it.
func WithPageDelay(d time.Duration) Option {
	return func(c *clientConfig) { c.pageDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithCloser registers a resource to release on Close.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) { c.closers = append(c.closers, closer) }
}

func (c *clientConfig) resolvedModelDir() string {
	if c.modelDir != "" {
		return c.modelDir
	}
	return filepath.Join(c.dataDir, config.DefaultModelSubdir)
}
