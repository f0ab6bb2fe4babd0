package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/search"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/infrastructure/registry"
)

var errBoom = errors.New("boom")

// keywordAxes are the dimensions of fakeEmbedder's vectors.
var keywordAxes = []string{"cancer", "heart", "memory", "glucose"}

// fakeEmbedder maps text onto keyword counts plus a constant bias, so
// documents sharing a keyword with the query rank first.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = keywordVector(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func keywordVector(text string) []float64 {
	lower := strings.ToLower(text)
	vec := make([]float64, len(keywordAxes)+1)
	for i, word := range keywordAxes {
		vec[i] = float64(strings.Count(lower, word)) * 10
	}
	vec[len(keywordAxes)] = 0.1
	return vec
}

// failingTrialStore fails every write.
type failingTrialStore struct {
	trial.TrialStore
}

func (failingTrialStore) SaveAll(context.Context, []trial.Trial) error { return errBoom }

func (failingTrialStore) Find(context.Context, ...repository.Option) ([]trial.Trial, error) {
	return nil, errBoom
}

// failingProtocolStore fails every write and search.
type failingProtocolStore struct {
	trial.ProtocolStore
}

func (failingProtocolStore) Upsert(context.Context, []trial.Protocol, [][]float64) error {
	return errBoom
}

func (failingProtocolStore) Search(context.Context, ...repository.Option) ([]search.Result, error) {
	return nil, errBoom
}

// recordingProtocolStore counts Upsert calls and delegates.
type recordingProtocolStore struct {
	trial.ProtocolStore
	upserts int
}

func (r *recordingProtocolStore) Upsert(ctx context.Context, protocols []trial.Protocol, vectors [][]float64) error {
	r.upserts++
	return r.ProtocolStore.Upsert(ctx, protocols, vectors)
}

// study builds a raw registry record. A long description makes the record
// eligible for the protocol collection.
func study(id, title, condition, description string) json.RawMessage {
	record := map[string]any{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{"nctId": id, "briefTitle": title},
			"statusModule":         map[string]any{"overallStatus": "RECRUITING"},
			"designModule":         map[string]any{"phases": []string{"PHASE2"}},
			"conditionsModule":     map[string]any{"conditions": []string{condition}},
			"descriptionModule":    map[string]any{"detailedDescription": description},
			"eligibilityModule":    map[string]any{"eligibilityCriteria": "Adults aged 18 to 75 with a confirmed diagnosis."},
		},
	}
	data, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	return data
}

// sparse builds a record with only an identifier, too short to embed.
func sparse(id string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"protocolSection":{"identificationModule":{"nctId":%q}}}`, id))
}

// richStudies returns n eligible records with sequential identifiers.
func richStudies(prefix string, n int) []json.RawMessage {
	records := make([]json.RawMessage, n)
	for i := range records {
		records[i] = study(fmt.Sprintf("%s%04d", prefix, i), "Cancer study", "Cancer", "A randomized study of a new cancer therapy in adults.")
	}
	return records
}

// scriptedFetcher replays pages in order and records each request.
type scriptedFetcher struct {
	pages    []registry.Page
	errs     []error
	requests []registry.PageRequest

	priority    registry.Page
	priorityErr error
	priorityIDs [][]string
}

func (f *scriptedFetcher) FetchPage(_ context.Context, req registry.PageRequest) (registry.Page, error) {
	n := len(f.requests)
	f.requests = append(f.requests, req)
	if n < len(f.errs) && f.errs[n] != nil {
		return registry.Page{}, f.errs[n]
	}
	if n >= len(f.pages) {
		return registry.Page{}, nil
	}
	return f.pages[n], nil
}

func (f *scriptedFetcher) FetchByIDs(_ context.Context, ids []string) (registry.Page, error) {
	f.priorityIDs = append(f.priorityIDs, ids)
	if f.priorityErr != nil {
		return registry.Page{}, f.priorityErr
	}
	return f.priority, nil
}

// countingPacer records waits without sleeping.
type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return p.err
}
