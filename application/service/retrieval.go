package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/search"
	"github.com/helixml/trialdex/domain/trial"
)

// Retrieval limits.
const (
	StructuredLimit = 5
	SemanticTopK    = 2
)

// Texts returned to callers when nothing matches.
const (
	NoTrialsFound          = "No trials found."
	NoProtocolDetailsFound = "No relevant protocol details found."
	ProtocolContextHeader  = "DATA RETRIEVED FROM PROTOCOLS:\n"
)

// TrialMatch is the rendered form of one structured search hit.
type TrialMatch struct {
	NCTID  string `json:"nct_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Phase  string `json:"phase"`
}

// TrialMatches is the result of a structured search.
type TrialMatches struct {
	trials []trial.Trial
}

// NewTrialMatches creates TrialMatches from trials in store order.
func NewTrialMatches(trials []trial.Trial) TrialMatches {
	return TrialMatches{trials: append([]trial.Trial(nil), trials...)}
}

// Empty reports whether nothing matched.
func (m TrialMatches) Empty() bool { return len(m.trials) == 0 }

// Trials returns the matched trials.
func (m TrialMatches) Trials() []trial.Trial {
	return append([]trial.Trial(nil), m.trials...)
}

// Matches returns the rendered projection of each trial.
func (m TrialMatches) Matches() []TrialMatch {
	matches := make([]TrialMatch, len(m.trials))
	for i, t := range m.trials {
		matches[i] = TrialMatch{NCTID: t.NCTID(), Title: t.Title(), Status: t.Status(), Phase: t.Phase()}
	}
	return matches
}

// Text renders the matches as indented JSON, or NoTrialsFound.
func (m TrialMatches) Text() string {
	if m.Empty() {
		return NoTrialsFound
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Matches()); err != nil {
		return NoTrialsFound
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// ProtocolContext is the result of a semantic search.
type ProtocolContext struct {
	results []search.Result
}

// NewProtocolContext creates a ProtocolContext from ranked results.
func NewProtocolContext(results []search.Result) ProtocolContext {
	return ProtocolContext{results: append([]search.Result(nil), results...)}
}

// Found reports whether any protocol matched.
func (c ProtocolContext) Found() bool { return len(c.results) > 0 }

// Results returns the ranked matches.
func (c ProtocolContext) Results() []search.Result {
	return append([]search.Result(nil), c.results...)
}

// Documents returns the matched documents in rank order.
func (c ProtocolContext) Documents() []string {
	docs := make([]string, len(c.results))
	for i, r := range c.results {
		docs[i] = r.Document()
	}
	return docs
}

// Text renders the documents under ProtocolContextHeader separated by blank
// lines, or NoProtocolDetailsFound.
func (c ProtocolContext) Text() string {
	if !c.Found() {
		return NoProtocolDetailsFound
	}
	return ProtocolContextHeader + strings.Join(c.Documents(), "\n\n")
}

// Stats counts what the stores hold.
type Stats struct {
	Trials    int64 `json:"trials"`
	Protocols int64 `json:"protocols"`
}

// Retrieval answers read-only queries against both stores.
type Retrieval struct {
	trials    trial.TrialStore
	protocols trial.ProtocolStore
	embedder  search.Embedder
	logger    *slog.Logger
}

// NewRetrieval creates a new Retrieval. The embedder must be the one used at
// ingestion time so query and document vectors share a space.
func NewRetrieval(trials trial.TrialStore, protocols trial.ProtocolStore, embedder search.Embedder, logger *slog.Logger) *Retrieval {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrieval{
		trials:    trials,
		protocols: protocols,
		embedder:  embedder,
		logger:    logger,
	}
}

// SearchStructured returns up to StructuredLimit trials whose conditions or
// title contain keyword, ignoring case.
func (r *Retrieval) SearchStructured(ctx context.Context, keyword string) (TrialMatches, error) {
	found, err := r.trials.Find(ctx, trial.WithKeyword(keyword), repository.WithLimit(StructuredLimit))
	if err != nil {
		return TrialMatches{}, fmt.Errorf("search trials: %w", err)
	}
	r.logger.Debug("structured search", slog.String("keyword", keyword), slog.Int("matches", len(found)))
	return NewTrialMatches(found), nil
}

// SearchSemantic returns the SemanticTopK protocols nearest to question,
// restricted to one trial when nctID is not empty.
func (r *Retrieval) SearchSemantic(ctx context.Context, question, nctID string) (ProtocolContext, error) {
	vector, err := search.EmbedOne(ctx, r.embedder, question)
	if err != nil {
		return ProtocolContext{}, fmt.Errorf("embed question: %w", err)
	}

	options := []repository.Option{
		search.WithEmbedding(vector),
		search.WithTopK(SemanticTopK),
	}
	if nctID != "" {
		options = append(options, trial.WithNCTID(nctID))
	}

	results, err := r.protocols.Search(ctx, options...)
	if err != nil {
		return ProtocolContext{}, fmt.Errorf("search protocols: %w", err)
	}
	r.logger.Debug("semantic search", slog.String("nct_id", nctID), slog.Int("matches", len(results)))
	return NewProtocolContext(results), nil
}

// Stats returns row counts for both stores.
func (r *Retrieval) Stats(ctx context.Context) (Stats, error) {
	trials, err := r.trials.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count trials: %w", err)
	}
	protocols, err := r.protocols.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count protocols: %w", err)
	}
	return Stats{Trials: trials, Protocols: protocols}, nil
}
