package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"), DefaultStoreOptions())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenStoreMissingDatabaseWithoutCreate(t *testing.T) {
	opts := StoreOptions{CreateIfNotExists: false, EnableWAL: false}
	_, err := OpenStore(filepath.Join(t.TempDir(), "absent.db"), opts)
	assert.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	run := Run{
		ID:           "run-1",
		Architecture: "big_conv_nn",
		VocabSize:    87,
		MaxLength:    200,
		Epochs:       5,
		StartedAt:    started,
	}
	require.NoError(t, store.CreateRun(ctx, run))
	require.NoError(t, store.FinishRun(ctx, "run-1", started.Add(time.Minute)))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "big_conv_nn", runs[0].Architecture)
	assert.Equal(t, 87, runs[0].VocabSize)
	assert.Equal(t, 200, runs[0].MaxLength)
	assert.Equal(t, 5, runs[0].Epochs)
	assert.True(t, runs[0].FinishedAt.After(runs[0].StartedAt))
}

func TestRecordAndQueryMetrics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRun(ctx, Run{
		ID: "run-2", Architecture: "simple_nn", VocabSize: 87, MaxLength: 200,
		Epochs: 2, StartedAt: time.Now(),
	}))

	metrics := []Metric{
		{RunID: "run-2", Epoch: 1, Split: "train", Name: "loss", Value: 0.9},
		{RunID: "run-2", Epoch: 1, Split: "val", Name: "loss", Value: 0.95},
		{RunID: "run-2", Epoch: 2, Split: "train", Name: "loss", Value: 0.6},
	}
	for _, m := range metrics {
		require.NoError(t, store.RecordMetric(ctx, m))
	}

	got, err := store.Metrics(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Epoch, "metrics come back in epoch order")
	assert.Equal(t, 2, got[2].Epoch)
	assert.InDelta(t, 0.6, got[2].Value, 1e-12)

	other, err := store.Metrics(ctx, "no-such-run")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStoreSinkRecordsScalars(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRun(ctx, Run{
		ID: "run-3", Architecture: "simple_nn", VocabSize: 87, MaxLength: 200,
		Epochs: 1, StartedAt: time.Now(),
	}))

	sink := NewStoreSink(store, "run-3")
	require.NoError(t, sink.Emit(1, "train", map[string]float64{"loss": 0.5, "acc": 0.8}))
	require.NoError(t, sink.Close())

	got, err := store.Metrics(ctx, "run-3")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, "train", m.Split)
		assert.Equal(t, 1, m.Epoch)
	}
}
