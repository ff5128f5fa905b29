package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membench/membench/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testResult(modelName, memory, benchmark string, status model.RunStatus) *model.EvaluationResult {
	r := &model.EvaluationResult{
		Timestamp:       time.Now().UTC(),
		DurationSeconds: 1.5,
		Model:           model.ModelSpec{Name: modelName, Provider: "ollama"},
		MemoryMethod:    memory,
		Benchmark:       benchmark,
		Status:          status,
	}
	if status == model.RunStatusSuccess {
		r.Results = map[string]any{"score": 0.9}
	} else {
		r.Error = &model.ErrorDetail{
			Kind:    model.ErrorKindExecution,
			Message: "benchmark blew up",
			Model:   modelName,
		}
	}
	return r
}

func TestSQLite_SaveAndGetResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.SaveResult(ctx, testResult("llama3", "truncation", "smoke", model.RunStatusSuccess))
	require.NoError(t, err)
	assert.Positive(t, id)

	run, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "llama3", run.ModelName)
	assert.Equal(t, "ollama", run.ModelProvider)
	assert.Equal(t, "truncation", run.MemoryMethod)
	assert.Equal(t, "smoke", run.Benchmark)
	assert.Equal(t, model.RunStatusSuccess, run.Status)
	assert.InDelta(t, 1.5, run.DurationSeconds, 1e-9)
	assert.Equal(t, 0.9, run.Results["score"])
	assert.False(t, run.CreatedAt.IsZero())
}

func TestSQLite_GetResult_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	run, err := st.GetResult(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestSQLite_SaveResult_ErrorStatusKeepsDetail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.SaveResult(ctx, testResult("llama3", "truncation", "smoke", model.RunStatusError))
	require.NoError(t, err)

	run, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusError, run.Status)

	detail, ok := run.Results["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "execution_error", detail["kind"])
	assert.Equal(t, "benchmark blew up", detail["message"])
}

func TestSQLite_SaveResult_UnknownLabels(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r := testResult("", "truncation", "smoke", model.RunStatusSuccess)
	r.Model.Provider = ""

	id, err := st.SaveResult(ctx, r)
	require.NoError(t, err)

	run, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "unknown", run.ModelName)
	assert.Equal(t, "unknown", run.ModelProvider)
}

func TestSQLite_QueryResults_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		id, err := st.SaveResult(ctx, testResult(name, "none", "smoke", model.RunStatusSuccess))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := st.QueryResults(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, ids[0], runs[2].ID)
}

func TestSQLite_QueryResults_FilterConjunction(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seed := []*model.EvaluationResult{
		testResult("llama3", "truncation", "smoke", model.RunStatusSuccess),
		testResult("llama3", "none", "smoke", model.RunStatusSuccess),
		testResult("mistral", "truncation", "smoke", model.RunStatusError),
		testResult("llama3", "truncation", "qa", model.RunStatusSuccess),
	}
	for _, r := range seed {
		_, err := st.SaveResult(ctx, r)
		require.NoError(t, err)
	}

	runs, err := st.QueryResults(ctx, Filter{
		ModelName:    "llama3",
		MemoryMethod: "truncation",
		Benchmark:    "smoke",
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "llama3", runs[0].ModelName)
	assert.Equal(t, "truncation", runs[0].MemoryMethod)
	assert.Equal(t, "smoke", runs[0].Benchmark)

	runs, err = st.QueryResults(ctx, Filter{Status: model.RunStatusError})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "mistral", runs[0].ModelName)

	runs, err = st.QueryResults(ctx, Filter{ModelName: "nonexistent"})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLite_QueryResults_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.SaveResult(ctx, testResult("llama3", "none", "smoke", model.RunStatusSuccess))
		require.NoError(t, err)
	}

	runs, err := st.QueryResults(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLite_Summary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	summary, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalRuns)
	assert.Zero(t, summary.SuccessRate)

	seed := []*model.EvaluationResult{
		testResult("llama3", "truncation", "smoke", model.RunStatusSuccess),
		testResult("llama3", "none", "qa", model.RunStatusSuccess),
		testResult("mistral", "truncation", "smoke", model.RunStatusError),
		testResult("mistral", "truncation", "smoke", model.RunStatusSuccess),
	}
	for _, r := range seed {
		_, err := st.SaveResult(ctx, r)
		require.NoError(t, err)
	}

	summary, err = st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalRuns)
	assert.Equal(t, 3, summary.SuccessfulRuns)
	assert.Equal(t, 1, summary.FailedRuns)
	assert.InDelta(t, 0.75, summary.SuccessRate, 1e-9)
	assert.ElementsMatch(t, []string{"llama3", "mistral"}, summary.Models)
	assert.ElementsMatch(t, []string{"truncation", "none"}, summary.MemoryMethods)
	assert.ElementsMatch(t, []string{"smoke", "qa"}, summary.Benchmarks)
	assert.NotEmpty(t, summary.Location)
}

func TestSQLite_DeleteResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.SaveResult(ctx, testResult("llama3", "none", "smoke", model.RunStatusSuccess))
	require.NoError(t, err)

	deleted, err := st.DeleteResult(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	run, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, run)

	deleted, err = st.DeleteResult(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLite_ClearAll(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.SaveResult(ctx, testResult("llama3", "none", "smoke", model.RunStatusSuccess))
		require.NoError(t, err)
	}

	require.NoError(t, st.ClearAll(ctx))

	summary, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalRuns)
}

func TestSQLite_ExportJSON(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveResult(ctx, testResult("llama3", "truncation", "smoke", model.RunStatusSuccess))
	require.NoError(t, err)
	_, err = st.SaveResult(ctx, testResult("mistral", "none", "qa", model.RunStatusError))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, st.ExportJSON(ctx, path, Filter{Status: model.RunStatusSuccess}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var runs []model.StoredRun
	require.NoError(t, json.Unmarshal(data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "llama3", runs[0].ModelName)
}

func TestSQLite_ExportJSON_EmptyIsArray(t *testing.T) {
	st := newTestSQLiteStore(t)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, st.ExportJSON(context.Background(), path, Filter{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// newTestSQLiteStore already migrated once.
	require.NoError(t, st.Migrate(ctx))

	_, err := st.SaveResult(ctx, testResult("llama3", "none", "smoke", model.RunStatusSuccess))
	require.NoError(t, err)
}

func TestSQLite_CreatesParentDirectories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "results.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.Migrate(context.Background()))
	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}
