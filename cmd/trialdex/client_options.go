package main

import (
	"fmt"
	"log/slog"

	"github.com/helixml/trialdex"
	"github.com/helixml/trialdex/infrastructure/provider"
	"github.com/helixml/trialdex/infrastructure/registry"
	"github.com/helixml/trialdex/internal/config"
)

// clientOptions returns the trialdex.Option slice derived from AppConfig:
// database, embedding provider, registry client and ingestion defaults.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []trialdex.Option {
	reg := cfg.Registry()
	ingest := cfg.Ingest()

	opts := []trialdex.Option{
		trialdex.WithDatabaseURL(cfg.DBURL()),
		trialdex.WithDataDir(cfg.DataDir()),
		trialdex.WithModelDir(cfg.ModelDir()),
		trialdex.WithLogger(logger),
		trialdex.WithRegistryURL(reg.BaseURL()),
		trialdex.WithRegistryOptions(
			registry.WithTimeout(reg.Timeout()),
			registry.WithRateLimit(reg.RateLimit()),
		),
		trialdex.WithQuery(ingest.Query()),
		trialdex.WithPageDelay(ingest.PageDelay()),
	}

	if endpoint := cfg.EmbeddingEndpoint(); endpoint != nil && endpoint.IsConfigured() {
		opts = append(opts, trialdex.WithOpenAIConfig(provider.OpenAIConfig{
			APIKey:         endpoint.APIKey(),
			BaseURL:        endpoint.BaseURL(),
			EmbeddingModel: endpoint.Model(),
			Timeout:        endpoint.Timeout(),
			MaxRetries:     endpoint.MaxRetries(),
			InitialDelay:   endpoint.InitialDelay(),
			BackoffFactor:  endpoint.BackoffFactor(),
		}))
		if dir := cfg.HTTPCacheDir(); dir != "" {
			opts = append(opts, trialdex.WithHTTPCacheDir(dir))
		}
	}

	return opts
}

// openClient prepares the data directory and creates the client.
func openClient(cfg config.AppConfig, logger *slog.Logger) (*trialdex.Client, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	client, err := trialdex.New(clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("create trialdex client: %w", err)
	}
	return client, nil
}

// closeClient closes the client and logs any failure.
func closeClient(client *trialdex.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close trialdex client", slog.Any("error", err))
	}
}
