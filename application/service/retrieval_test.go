package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/helixml/trialdex/domain/search"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRetrieval(t *testing.T) (*Retrieval, *fakeEmbedder) {
	t.Helper()
	ctx := context.Background()
	trials, protocols := testdb.Stores(t)
	embedder := &fakeEmbedder{}

	_, err := NewWriter(trials, protocols, embedder, nil).WriteBatch(ctx, []json.RawMessage{
		study("NCT1", "Breast Cancer Immunotherapy", "Breast Cancer", "Evaluates an immunotherapy for metastatic cancer of the breast."),
		study("NCT2", "Heart Failure Outcomes", "Cardiology", "Follows heart failure patients after a new heart medication."),
		study("NCT3", "Memory Clinic Cohort", "Alzheimer Disease", "Tracks memory decline in early onset patients with a memory test."),
		sparse("NCT4"),
	})
	require.NoError(t, err)

	return NewRetrieval(trials, protocols, embedder, nil), embedder
}

func TestRetrieval_SearchStructured(t *testing.T) {
	retrieval, _ := seededRetrieval(t)

	matches, err := retrieval.SearchStructured(context.Background(), "CANCER")
	require.NoError(t, err)

	require.False(t, matches.Empty())
	require.Len(t, matches.Trials(), 1)
	assert.Equal(t, "NCT1", matches.Trials()[0].NCTID())

	want := `[
  {
    "nct_id": "NCT1",
    "title": "Breast Cancer Immunotherapy",
    "status": "RECRUITING",
    "phase": "PHASE2"
  }
]`
	assert.Equal(t, want, matches.Text())
}

func TestRetrieval_SearchStructuredNoMatch(t *testing.T) {
	retrieval, _ := seededRetrieval(t)

	matches, err := retrieval.SearchStructured(context.Background(), "Asthma")
	require.NoError(t, err)

	assert.True(t, matches.Empty())
	assert.Equal(t, NoTrialsFound, matches.Text())
}

func TestRetrieval_SearchStructuredLimit(t *testing.T) {
	ctx := context.Background()
	trials, protocols := testdb.Stores(t)
	_, err := NewWriter(trials, protocols, &fakeEmbedder{}, nil).WriteBatch(ctx, richStudies("C", 8))
	require.NoError(t, err)

	matches, err := NewRetrieval(trials, protocols, &fakeEmbedder{}, nil).SearchStructured(ctx, "cancer")
	require.NoError(t, err)

	assert.Len(t, matches.Matches(), StructuredLimit)
}

func TestRetrieval_SearchStructuredStoreError(t *testing.T) {
	retrieval := NewRetrieval(failingTrialStore{}, failingProtocolStore{}, &fakeEmbedder{}, nil)

	_, err := retrieval.SearchStructured(context.Background(), "cancer")
	assert.ErrorIs(t, err, errBoom)
}

func TestRetrieval_SearchSemantic(t *testing.T) {
	retrieval, embedder := seededRetrieval(t)

	pc, err := retrieval.SearchSemantic(context.Background(), "Which heart trials exist?", "")
	require.NoError(t, err)

	require.True(t, pc.Found())
	results := pc.Results()
	require.Len(t, results, SemanticTopK)
	assert.Equal(t, "NCT2", results[0].ID())

	text := pc.Text()
	assert.True(t, strings.HasPrefix(text, ProtocolContextHeader+"TRIAL ID: NCT2\n"))
	assert.Equal(t, ProtocolContextHeader+strings.Join(pc.Documents(), "\n\n"), text)

	calls := embedder.Calls()
	assert.Equal(t, []string{"Which heart trials exist?"}, calls[len(calls)-1])
}

func TestRetrieval_SearchSemanticFiltered(t *testing.T) {
	retrieval, _ := seededRetrieval(t)

	pc, err := retrieval.SearchSemantic(context.Background(), "heart medication", "NCT3")
	require.NoError(t, err)

	require.Len(t, pc.Results(), 1)
	assert.Equal(t, "NCT3", pc.Results()[0].ID())
}

func TestRetrieval_SearchSemanticRowWithoutProtocol(t *testing.T) {
	retrieval, _ := seededRetrieval(t)

	structured, err := retrieval.SearchStructured(context.Background(), "No Title")
	require.NoError(t, err)
	require.Len(t, structured.Trials(), 1, "sparse trial has a relational row")

	pc, err := retrieval.SearchSemantic(context.Background(), "anything", "NCT4")
	require.NoError(t, err)
	assert.False(t, pc.Found())
	assert.Equal(t, NoProtocolDetailsFound, pc.Text())
}

func TestRetrieval_SearchSemanticEmptyStore(t *testing.T) {
	trials, protocols := testdb.Stores(t)
	retrieval := NewRetrieval(trials, protocols, &fakeEmbedder{}, nil)

	pc, err := retrieval.SearchSemantic(context.Background(), "cancer", "")
	require.NoError(t, err)
	assert.Equal(t, NoProtocolDetailsFound, pc.Text())
}

func TestRetrieval_SearchSemanticErrors(t *testing.T) {
	trials, protocols := testdb.Stores(t)

	_, err := NewRetrieval(trials, protocols, &fakeEmbedder{err: errBoom}, nil).SearchSemantic(context.Background(), "q", "")
	assert.ErrorIs(t, err, errBoom)

	_, err = NewRetrieval(trials, failingProtocolStore{}, &fakeEmbedder{}, nil).SearchSemantic(context.Background(), "q", "")
	assert.ErrorIs(t, err, errBoom)
}

func TestRetrieval_Stats(t *testing.T) {
	retrieval, _ := seededRetrieval(t)

	stats, err := retrieval.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Trials: 4, Protocols: 3}, stats)
}

func TestTrialMatches_TextKeepsMarkup(t *testing.T) {
	matches := NewTrialMatches([]trial.Trial{trial.NewTrial("NCT1", "A <b> & C", "", "", "")})

	assert.Contains(t, matches.Text(), `"title": "A <b> & C"`)
	assert.Contains(t, matches.Text(), `"phase": "Not Applicable"`)
}

func TestProtocolContext_Text(t *testing.T) {
	pc := NewProtocolContext([]search.Result{
		search.NewResult("A", "doc a", 0.9),
		search.NewResult("B", "doc b", 0.5),
	})

	assert.Equal(t, "DATA RETRIEVED FROM PROTOCOLS:\ndoc a\n\ndoc b", pc.Text())
}
