package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/helixml/trialdex/application/service"
	"github.com/helixml/trialdex/internal/config"
	"github.com/helixml/trialdex/internal/log"
	"github.com/spf13/cobra"
)

// querier is the read side of the client used by the one-shot commands.
type querier interface {
	SearchStructured(ctx context.Context, keyword string) (service.TrialMatches, error)
	SearchSemantic(ctx context.Context, question, nctID string) (service.ProtocolContext, error)
	Stats(ctx context.Context) (service.Stats, error)
}

func searchCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "List up to five trials whose condition or title contains a keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			return withClient(cmd.Context(), envFile, func(ctx context.Context, q querier) error {
				matches, err := q.SearchStructured(ctx, keyword)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), matches.Text())
				return err
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		envFile string
		nctID   string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Retrieve the protocol passages closest to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withClient(cmd.Context(), envFile, func(ctx context.Context, q querier) error {
				result, err := q.SearchSemantic(ctx, question, nctID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text())
				return err
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&nctID, "nct-id", "", "Restrict the search to one trial")
	return cmd
}

func statsCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print how many trials and protocols are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), envFile, func(ctx context.Context, q querier) error {
				stats, err := q.Stats(ctx)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), stats.Trials, stats.Protocols)
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	return cmd
}

func printStats(out io.Writer, trials, protocols int64) error {
	_, err := fmt.Fprintf(out, "trials:    %d\nprotocols: %d\n", trials, protocols)
	return err
}

// withClient opens a client for a one-shot query. Logs go to stderr so the
// answer is the only thing on stdout.
func withClient(ctx context.Context, envFile string, fn func(context.Context, querier) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	slogger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), quietLevel(cfg)).Slog()

	client, err := openClient(cfg, slogger)
	if err != nil {
		return err
	}
	defer closeClient(client, slogger)

	if err := fn(ctx, client); err != nil {
		slogger.Debug("query failed", slog.Any("error", err))
		return err
	}
	return nil
}

// quietLevel raises the default INFO level to WARN for one-shot commands.
func quietLevel(cfg config.AppConfig) string {
	if strings.EqualFold(cfg.LogLevel(), config.DefaultLogLevel) {
		return "WARN"
	}
	return cfg.LogLevel()
}
