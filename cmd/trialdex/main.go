// Package main is the entry point for the trialdex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/helixml/trialdex/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trialdex",
		Short: "Clinical trial ingestion and retrieval service",
		Long: `Trialdex loads clinical trials from ClinicalTrials.gov into a relational table
and an embedded protocol collection, and serves structured and semantic
search over them through MCP tools and an HTTP API.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(ingestCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(askCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(downloadModelCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
