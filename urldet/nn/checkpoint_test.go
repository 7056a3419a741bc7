package nn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCheckpointRoundTripSimpleNN(t *testing.T) {
	net, err := Build(SimpleNN, Config{VocabSize: 30, MaxLength: 12, Seed: 11})
	require.NoError(t, err)

	batch := [][]int{{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	before := net.Forward(batch, false)

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, SaveCheckpoint(path, net))

	restored, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, SimpleNN, restored.Architecture())
	assert.Equal(t, 30, restored.VocabSize())
	assert.Equal(t, 12, restored.MaxLength())

	after := restored.Forward(batch, false)
	assert.True(t, mat.Equal(before, after), "restored weights must reproduce predictions exactly")
}

func TestCheckpointPreservesBatchNormRunningStats(t *testing.T) {
	net, err := Build(BigConvNN, Config{VocabSize: 15, MaxLength: 6, Seed: 12})
	require.NoError(t, err)

	// a few training passes move the running statistics off their init
	batch := [][]int{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		{7, 8, 9, 10, 11, 12},
	}
	for i := 0; i < 3; i++ {
		net.Forward(batch, true)
	}
	before := net.Forward(batch, false)

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, SaveCheckpoint(path, net))

	restored, err := LoadCheckpoint(path)
	require.NoError(t, err)
	after := restored.Forward(batch, false)
	assert.True(t, mat.Equal(before, after))
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.ckpt"))
	assert.Error(t, err)
}
