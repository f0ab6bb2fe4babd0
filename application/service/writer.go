// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/helixml/trialdex/domain/search"
	"github.com/helixml/trialdex/domain/trial"
)

// Skip records why one record of a batch was not written.
type Skip struct {
	Index  int
	Reason trial.SkipReason
	Err    error
}

// BatchResult summarizes one WriteBatch call.
type BatchResult struct {
	rows     int
	accepted int
	skipped  []Skip
}

// Rows returns the number of trial rows upserted.
func (r BatchResult) Rows() int { return r.rows }

// Accepted returns the number of protocols stored in the vector collection.
func (r BatchResult) Accepted() int { return r.accepted }

// Skipped returns the records that produced no trial.
func (r BatchResult) Skipped() []Skip {
	result := make([]Skip, len(r.skipped))
	copy(result, r.skipped)
	return result
}

// Writer normalizes raw registry records and writes them to both stores:
// trial rows first, in one transaction, then the embedded protocols in a
// single vector upsert. A trial may therefore exist without its protocol,
// never the reverse.
type Writer struct {
	trials    trial.TrialStore
	protocols trial.ProtocolStore
	embedder  search.Embedder
	logger    *slog.Logger
}

// NewWriter creates a new Writer.
func NewWriter(trials trial.TrialStore, protocols trial.ProtocolStore, embedder search.Embedder, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		trials:    trials,
		protocols: protocols,
		embedder:  embedder,
		logger:    logger,
	}
}

// WriteBatch normalizes and stores a batch of records. Malformed or
// unidentified records are skipped. When an identifier repeats, the last
// occurrence wins for both the row and the protocol.
func (w *Writer) WriteBatch(ctx context.Context, records []json.RawMessage) (BatchResult, error) {
	var result BatchResult

	index := make(map[string]int, len(records))
	normalized := make([]trial.NormalizeResult, 0, len(records))
	for i, raw := range records {
		n := trial.Normalize(raw)
		if !n.OK() {
			result.skipped = append(result.skipped, Skip{Index: i, Reason: n.SkipReason(), Err: n.Err()})
			w.logger.Warn("skipping record", slog.Int("index", i), slog.String("reason", string(n.SkipReason())), slog.Any("error", n.Err()))
			continue
		}
		id := n.Trial().NCTID()
		if at, seen := index[id]; seen {
			normalized[at] = n
			continue
		}
		index[id] = len(normalized)
		normalized = append(normalized, n)
	}

	if len(normalized) == 0 {
		return result, nil
	}

	rows := make([]trial.Trial, len(normalized))
	var protocols []trial.Protocol
	for i, n := range normalized {
		rows[i] = n.Trial()
		if p, ok := n.Protocol(); ok {
			protocols = append(protocols, p)
		}
	}

	if err := w.trials.SaveAll(ctx, rows); err != nil {
		return result, fmt.Errorf("save trials: %w", err)
	}
	result.rows = len(rows)

	if len(protocols) == 0 {
		return result, nil
	}

	texts := make([]string, len(protocols))
	for i, p := range protocols {
		texts[i] = p.Text()
	}

	vectors, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("embed protocols: %w", err)
	}

	if err := w.protocols.Upsert(ctx, protocols, vectors); err != nil {
		return result, fmt.Errorf("upsert protocols: %w", err)
	}
	result.accepted = len(protocols)

	w.logger.Debug("batch written",
		slog.Int("records", len(records)),
		slog.Int("rows", result.rows),
		slog.Int("protocols", result.accepted),
		slog.Int("skipped", len(result.skipped)),
	)
	return result, nil
}
