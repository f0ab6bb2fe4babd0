package persistence

import (
	"context"
	"testing"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialStore_SaveAllAndFind(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	err := store.SaveAll(ctx, []trial.Trial{
		trial.NewTrial("NCT1", "Breast Cancer Screening", "RECRUITING", "PHASE2", "Breast Cancer"),
		trial.NewTrial("NCT2", "Heart Failure Study", "COMPLETED", "PHASE3", "Cardiology"),
	})
	require.NoError(t, err)

	found, err := store.Find(ctx, trial.WithNCTID("NCT2"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Heart Failure Study", found[0].Title())
	assert.Equal(t, "COMPLETED", found[0].Status())
	assert.Equal(t, "PHASE3", found[0].Phase())
	assert.Equal(t, "Cardiology", found[0].Conditions())
}

func TestTrialStore_SaveAllReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	require.NoError(t, store.SaveAll(ctx, []trial.Trial{trial.NewTrial("NCT1", "Old", "RECRUITING", "PHASE1", "Diabetes")}))
	require.NoError(t, store.SaveAll(ctx, []trial.Trial{trial.NewTrial("NCT1", "New", "COMPLETED", "PHASE2", "Diabetes")}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := store.Find(ctx, trial.WithNCTID("NCT1"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "New", found[0].Title())
	assert.Equal(t, "COMPLETED", found[0].Status())
}

func TestTrialStore_SaveAllDuplicateInBatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	err := store.SaveAll(ctx, []trial.Trial{
		trial.NewTrial("NCT1", "First", "", "", ""),
		trial.NewTrial("NCT2", "Other", "", "", ""),
		trial.NewTrial("NCT1", "Last", "", "", ""),
	})
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := store.Find(ctx, trial.WithNCTID("NCT1"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Last", found[0].Title())
}

func TestTrialStore_SaveAllEmpty(t *testing.T) {
	store, _ := newStores(t)

	assert.NoError(t, store.SaveAll(context.Background(), nil))
}

func TestTrialStore_KeywordMatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	require.NoError(t, store.SaveAll(ctx, []trial.Trial{
		trial.NewTrial("NCT1", "Lung Cancer Immunotherapy", "RECRUITING", "PHASE2", "Non-Small Cell Lung Cancer"),
		trial.NewTrial("NCT2", "Memory Study", "RECRUITING", "PHASE1", "Alzheimer Disease"),
		trial.NewTrial("NCT3", "Glucose Control", "COMPLETED", "PHASE3", "Type 2 Diabetes"),
		trial.NewTrial("NCT4", "Cancer Survivors Exercise", "ACTIVE", "Not Applicable", "Fatigue"),
	}))

	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"matches conditions ignoring case", "alzheimer", []string{"NCT2"}},
		{"matches conditions or title", "CANCER", []string{"NCT1", "NCT4"}},
		{"matches substring", "diab", []string{"NCT3"}},
		{"no match", "Oncology", nil},
		{"percent is literal", "%", nil},
		{"underscore is literal", "_", nil},
		{"empty keyword matches everything", "", []string{"NCT1", "NCT2", "NCT3", "NCT4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := store.Find(ctx, trial.WithKeyword(tt.keyword), repository.WithOrderAsc("nct_id"))
			require.NoError(t, err)

			ids := make([]string, 0, len(found))
			for _, f := range found {
				ids = append(ids, f.NCTID())
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestTrialStore_KeywordNonASCII(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	require.NoError(t, store.SaveAll(ctx, []trial.Trial{
		trial.NewTrial("NCT1", "Étude sur le Diabète", "RECRUITING", "PHASE2", "Ödem"),
		trial.NewTrial("NCT2", "Heart Failure Study", "RECRUITING", "PHASE3", "Cardiology"),
	}))

	for _, keyword := range []string{"Étude", "Ödem", "diabète", "ÉTUDE SUR"} {
		t.Run(keyword, func(t *testing.T) {
			found, err := store.Find(ctx, trial.WithKeyword(keyword), repository.WithLimit(5))
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, "NCT1", found[0].NCTID())
		})
	}
}

func TestTrialStore_KeywordLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	var trials []trial.Trial
	for _, id := range []string{"NCT1", "NCT2", "NCT3", "NCT4", "NCT5", "NCT6", "NCT7"} {
		trials = append(trials, trial.NewTrial(id, "Cancer "+id, "", "", "Cancer"))
	}
	require.NoError(t, store.SaveAll(ctx, trials))

	found, err := store.Find(ctx, trial.WithKeyword("cancer"), repository.WithLimit(5))
	require.NoError(t, err)
	assert.Len(t, found, 5)
}

func TestTrialStore_ResetEmptiesTable(t *testing.T) {
	ctx := context.Background()
	store, _ := newStores(t)

	require.NoError(t, store.SaveAll(ctx, []trial.Trial{trial.NewTrial("NCT1", "", "", "", "")}))
	require.NoError(t, store.Reset(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
