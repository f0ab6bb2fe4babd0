package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helixml/trialdex/infrastructure/registry"
)

// MaxPageSize is the largest page requested from the registry.
const MaxPageSize = 50

// DefaultQuery is the bulk search used when no query is configured.
const DefaultQuery = "Cancer OR Cardiology OR Alzheimer OR Diabetes"

// DefaultPageDelay is the pause between consecutive bulk requests.
const DefaultPageDelay = time.Second

// Fetcher retrieves raw study records from the registry.
type Fetcher interface {
	FetchPage(ctx context.Context, req registry.PageRequest) (registry.Page, error)
	FetchByIDs(ctx context.Context, ids []string) (registry.Page, error)
}

// BatchWriter stores a batch of raw records.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []json.RawMessage) (BatchResult, error)
}

// Pacer blocks between bulk requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// TimerPacer waits a fixed delay.
type TimerPacer struct {
	delay time.Duration
}

// NewTimerPacer creates a TimerPacer. A non-positive delay does not wait.
func NewTimerPacer(delay time.Duration) TimerPacer {
	return TimerPacer{delay: delay}
}

// Wait blocks for the delay or until ctx is done.
func (p TimerPacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Termination names why the bulk phase stopped.
type Termination string

// Termination values.
const (
	TerminationTargetReached Termination = "target_reached"
	TerminationExhausted     Termination = "exhausted"
	TerminationLastPage      Termination = "last_page"
	TerminationError         Termination = "error"
)

// IngestionReport describes one ingestion run.
type IngestionReport struct {
	PriorityRequested int
	PriorityAccepted  int
	PriorityErr       error

	Pages       int
	Accepted    int
	Rows        int
	Skipped     int
	Termination Termination
	Err         error
}

// PriorityFailed reports whether the priority phase ran and failed.
func (r IngestionReport) PriorityFailed() bool { return r.PriorityErr != nil }

// Ingestion drives a run: an optional priority fetch of named trials, then
// paginated bulk search until the target number of protocols is stored.
type Ingestion struct {
	fetcher Fetcher
	writer  BatchWriter
	pacer   Pacer
	query   string
	logger  *slog.Logger
}

// IngestionOption configures an Ingestion.
type IngestionOption func(*Ingestion)

// WithQuery sets the bulk search query.
func WithQuery(q string) IngestionOption {
	return func(i *Ingestion) {
		if q != "" {
			i.query = q
		}
	}
}

// WithPacer sets the pacer used between bulk pages.
func WithPacer(p Pacer) IngestionOption {
	return func(i *Ingestion) {
		if p != nil {
			i.pacer = p
		}
	}
}

// NewIngestion creates a new Ingestion.
func NewIngestion(fetcher Fetcher, writer BatchWriter, logger *slog.Logger, opts ...IngestionOption) *Ingestion {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Ingestion{
		fetcher: fetcher,
		writer:  writer,
		pacer:   NewTimerPacer(DefaultPageDelay),
		query:   DefaultQuery,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run ingests until target protocols are stored or the registry stops
// yielding pages. It never returns an error: every outcome is in the report.
// Upstream failures are not retried.
func (i *Ingestion) Run(ctx context.Context, target int, priorityIDs []string) (report IngestionReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Termination = TerminationError
			report.Err = fmt.Errorf("ingestion panicked: %v", r)
			i.logger.Error("ingestion panicked", slog.Any("panic", r))
		}
	}()

	i.logger.Info("ingestion started",
		slog.Int("target", target),
		slog.Int("priority_ids", len(priorityIDs)),
		slog.String("query", i.query),
	)

	if len(priorityIDs) > 0 {
		i.priority(ctx, priorityIDs, &report)
	}

	i.bulk(ctx, target, &report)

	i.logger.Info("ingestion finished",
		slog.Int("accepted", report.Accepted),
		slog.Int("rows", report.Rows),
		slog.Int("pages", report.Pages),
		slog.Int("skipped", report.Skipped),
		slog.String("termination", string(report.Termination)),
	)
	return report
}

func (i *Ingestion) priority(ctx context.Context, ids []string, report *IngestionReport) {
	report.PriorityRequested = len(ids)

	page, err := i.fetcher.FetchByIDs(ctx, ids)
	if err != nil {
		report.PriorityErr = fmt.Errorf("fetch priority trials: %w", err)
		i.logger.Error("priority fetch failed", slog.Any("error", err))
		return
	}

	result, err := i.writer.WriteBatch(ctx, page.Records)
	i.record(report, result)
	report.PriorityAccepted = result.Accepted()
	if err != nil {
		report.PriorityErr = fmt.Errorf("write priority trials: %w", err)
		i.logger.Error("priority write failed", slog.Any("error", err))
		return
	}

	i.logger.Info("priority trials loaded",
		slog.Int("requested", len(ids)),
		slog.Int("records", len(page.Records)),
		slog.Int("accepted", result.Accepted()),
	)
}

func (i *Ingestion) bulk(ctx context.Context, target int, report *IngestionReport) {
	token := ""
	for {
		if report.Accepted >= target {
			report.Termination = TerminationTargetReached
			return
		}

		if report.Pages > 0 {
			if err := i.pacer.Wait(ctx); err != nil {
				i.fail(report, fmt.Errorf("wait between pages: %w", err))
				return
			}
		}

		size := min(MaxPageSize, target-report.Accepted)
		i.logger.Info("fetching page",
			slog.Int("page", report.Pages+1),
			slog.Int("page_size", size),
			slog.Int("accepted", report.Accepted),
			slog.Int("target", target),
		)

		page, err := i.fetcher.FetchPage(ctx, registry.PageRequest{Query: i.query, PageSize: size, Token: token})
		if err != nil {
			i.fail(report, fmt.Errorf("fetch page: %w", err))
			return
		}
		report.Pages++

		if len(page.Records) == 0 {
			report.Termination = TerminationExhausted
			i.logger.Info("registry returned no more trials")
			return
		}

		result, err := i.writer.WriteBatch(ctx, page.Records)
		i.record(report, result)
		if err != nil {
			i.fail(report, fmt.Errorf("write page: %w", err))
			return
		}

		if !page.HasNext() {
			if report.Accepted >= target {
				report.Termination = TerminationTargetReached
			} else {
				report.Termination = TerminationLastPage
			}
			return
		}
		token = page.NextToken
	}
}

func (i *Ingestion) record(report *IngestionReport, result BatchResult) {
	report.Accepted += result.Accepted()
	report.Rows += result.Rows()
	report.Skipped += len(result.Skipped())
}

func (i *Ingestion) fail(report *IngestionReport, err error) {
	report.Termination = TerminationError
	report.Err = err
	level := slog.LevelError
	if errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	i.logger.Log(context.Background(), level, "ingestion stopped", slog.Any("error", err))
}
