// Package trialdex ingests clinical trials from the ClinicalTrials.gov
// registry into a relational table and an embedded protocol collection, and
// answers structured and semantic questions against them.
//
// Basic usage:
//
//	client, err := trialdex.New(
//	    trialdex.WithSQLite(".trialdex/trialdex.db"),
//	    trialdex.WithOpenAIConfig(provider.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	report, err := client.Ingest(ctx, 200, []string{"NCT04368728"})
//
//	trials, err := client.SearchStructured(ctx, "diabetes")
//	fmt.Println(trials.Text())
package trialdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/infrastructure/persistence"
	"github.com/helixml/trialdex/infrastructure/provider"
	"github.com/helixml/trialdex/infrastructure/registry"
	"github.com/helixml/trialdex/internal/config"
	"github.com/helixml/trialdex/internal/database"
)

// Client is the main entry point: it owns the database, both stores, the
// embedder and the registry client.
type Client struct {
	db        database.Database
	trials    trial.TrialStore
	protocols trial.ProtocolStore
	embedder  *provider.Batched
	ingestion *service.Ingestion
	retrieval *service.Retrieval

	closers []io.Closer
	logger  *slog.Logger
	closed  atomic.Bool
	mu      sync.RWMutex
}

// New creates a new Client. Missing tables are created; existing rows are
// kept until the next Ingest.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}

	logger := cfg.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	batched := provider.NewBatched(embedder)

	ctx := context.Background()
	db, err := database.NewDatabaseWithLogger(ctx, cfg.dbURL, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open database: %w", err), batched.Close())
	}

	if err := persistence.EnsureSchema(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("ensure schema: %w", err), db.Close(), batched.Close())
	}

	trials := persistence.NewTrialStore(db)
	protocols := persistence.NewProtocolStore(db, logger)

	registryOpts := append([]registry.Option{registry.WithLogger(logger)}, cfg.registryOptions...)
	fetcher := registry.NewClient(cfg.registryURL, registryOpts...)

	writer := service.NewWriter(trials, protocols, batched, logger)
	ingestion := service.NewIngestion(fetcher, writer, logger,
		service.WithQuery(cfg.query),
		service.WithPacer(service.NewTimerPacer(cfg.pageDelay)),
	)

	return &Client{
		db:        db,
		trials:    trials,
		protocols: protocols,
		embedder:  batched,
		ingestion: ingestion,
		retrieval: service.NewRetrieval(trials, protocols, batched, logger),
		closers:   cfg.closers,
		logger:    logger,
	}, nil
}

// buildEmbedder picks the embedding provider: an explicit one, then an
// OpenAI-compatible endpoint, then the local model.
func buildEmbedder(cfg *clientConfig, logger *slog.Logger) (provider.Embedder, error) {
	if cfg.embeddingProvider != nil {
		return cfg.embeddingProvider, nil
	}

	if cfg.openAIConfig != nil {
		openAICfg := *cfg.openAIConfig
		if cfg.httpCacheDir != "" {
			transport, err := provider.NewCachingTransport(cfg.httpCacheDir, openAICfg.Transport)
			if err != nil {
				return nil, fmt.Errorf("create caching transport: %w", err)
			}
			openAICfg.Transport = transport
			logger.Info("caching embedding responses", slog.String("dir", cfg.httpCacheDir))
		}
		return provider.NewOpenAIProviderFromConfig(openAICfg), nil
	}

	modelDir := cfg.resolvedModelDir()
	hugot := provider.NewHugotEmbedding(modelDir)
	if !hugot.Available() {
		return nil, fmt.Errorf("%w: no model in %s and no embedding endpoint configured", ErrNoEmbedder, modelDir)
	}
	logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
	return hugot, nil
}

// Reset drops and recreates both stores.
func (c *Client) Reset(ctx context.Context) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()
	return persistence.Reset(ctx, c.trials, c.protocols)
}

// acquire holds the client open for one call. Close waits for every call
// that acquired before it.
func (c *Client) acquire() (func(), error) {
	c.mu.RLock()
	if c.closed.Load() {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	return c.mu.RUnlock, nil
}

// Ingest resets both stores, then runs one ingestion: the priority IDs first,
// then bulk pages until target protocols are stored. The error is non-nil
// only when the stores could not be reset; every other outcome is in the
// report.
func (c *Client) Ingest(ctx context.Context, target int, priorityIDs []string) (service.IngestionReport, error) {
	release, err := c.acquire()
	if err != nil {
		return service.IngestionReport{}, err
	}
	defer release()

	if err := persistence.Reset(ctx, c.trials, c.protocols); err != nil {
		return service.IngestionReport{}, fmt.Errorf("reset stores: %w", err)
	}
	return c.ingestion.Run(ctx, target, priorityIDs), nil
}

// SearchStructured returns up to five trials whose conditions or title
// contain keyword.
func (c *Client) SearchStructured(ctx context.Context, keyword string) (service.TrialMatches, error) {
	release, err := c.acquire()
	if err != nil {
		return service.TrialMatches{}, err
	}
	defer release()
	return c.retrieval.SearchStructured(ctx, keyword)
}

// SearchSemantic returns the two protocol documents nearest to question,
// restricted to nctID when it is not empty.
func (c *Client) SearchSemantic(ctx context.Context, question, nctID string) (service.ProtocolContext, error) {
	release, err := c.acquire()
	if err != nil {
		return service.ProtocolContext{}, err
	}
	defer release()
	return c.retrieval.SearchSemantic(ctx, question, nctID)
}

// Stats returns row counts for both stores.
func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	release, err := c.acquire()
	if err != nil {
		return service.Stats{}, err
	}
	defer release()
	return c.retrieval.Stats(ctx)
}

// Close releases the embedder, registered resources and the database once
// in-flight calls have returned. Calls made after Close return
// ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.embedder.Close(); err != nil {
		c.logger.Error("failed to close embedding provider", slog.Any("error", err))
	}

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("trialdex client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}
