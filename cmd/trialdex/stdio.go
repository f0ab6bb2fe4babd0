package main

import (
	"log/slog"

	"github.com/helixml/trialdex/internal/log"
	"github.com/helixml/trialdex/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start the MCP tool server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

Agents call search_trials_sql and get_protocol_details_rag against the
stores filled by a previous ingest run. Stdout carries only protocol frames;
logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	slogger := log.NewStderrLogger(cfg).Slog()
	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	client, err := openClient(cfg, slogger)
	if err != nil {
		return err
	}
	defer closeClient(client, slogger)

	return mcp.NewServer(client, version, slogger).ServeStdio()
}
