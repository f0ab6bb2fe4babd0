package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/internal/config"
	"github.com/helixml/trialdex/internal/log"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		envFile  string
		planFile string
		target   int
		query    string
		priority []string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Reset both stores and load trials from the registry",
		Long: `Reset both stores and load trials from ClinicalTrials.gov.

Priority trial IDs are fetched first in a single request. Bulk search pages
follow until the target number of protocol documents is stored or the
registry runs out of results.

Settings are resolved in this order (later sources override earlier):
  1. Default values
  2. .env file and environment variables (INGEST_TARGET, INGEST_QUERY,
     INGEST_PRIORITY_IDS, INGEST_PAGE_DELAY)
  3. --plan YAML file
  4. Command line flags`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}

			ingest := cfg.Ingest()
			if planFile != "" {
				plan, err := config.LoadPlan(planFile)
				if err != nil {
					return err
				}
				ingest = plan.Apply(ingest)
			}
			if cmd.Flags().Changed("target") {
				ingest = ingest.WithTarget(target)
			}
			ingest = ingest.WithQuery(query)
			if len(priority) > 0 {
				ingest = ingest.WithPriorityIDs(priority)
			}
			cfg = cfg.Apply(config.WithIngestConfig(ingest))

			return runIngest(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&planFile, "plan", "", "Path to a YAML ingestion plan")
	cmd.Flags().IntVar(&target, "target", config.DefaultIngestTarget, "Number of protocol documents to store")
	cmd.Flags().StringVar(&query, "query", "", "Bulk search query (default: "+config.DefaultIngestQuery+")")
	cmd.Flags().StringSliceVar(&priority, "priority", nil, "Trial IDs to fetch before the bulk search")

	return cmd
}

func runIngest(ctx context.Context, cfg config.AppConfig, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(ctx, slog.LevelInfo, "starting ingestion", attrs...)

	client, err := openClient(cfg, slogger)
	if err != nil {
		return err
	}
	defer closeClient(client, slogger)

	ingest := cfg.Ingest()
	report, err := client.Ingest(ctx, ingest.Target(), ingest.PriorityIDs())
	if err != nil {
		return err
	}

	printReport(out, report)
	return nil
}

func printReport(out io.Writer, report service.IngestionReport) {
	if report.PriorityRequested > 0 {
		if report.PriorityFailed() {
			fmt.Fprintf(out, "priority trials: %d requested, failed: %v\n", report.PriorityRequested, report.PriorityErr)
		} else {
			fmt.Fprintf(out, "priority trials: %d requested, %d indexed\n", report.PriorityRequested, report.PriorityAccepted)
		}
	}
	fmt.Fprintf(out, "pages fetched:   %d\n", report.Pages)
	fmt.Fprintf(out, "trial rows:      %d\n", report.Rows)
	fmt.Fprintf(out, "protocols:       %d\n", report.Accepted)
	fmt.Fprintf(out, "skipped records: %d\n", report.Skipped)
	fmt.Fprintf(out, "stopped:         %s\n", report.Termination)
	if report.Err != nil {
		fmt.Fprintf(out, "error:           %v\n", report.Err)
	}
}
