package detector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/monitor"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/nn"
)

const (
	testVocab  = 20
	testMaxLen = 10
)

// smallDataset builds a balanced, trivially separable set: malicious
// documents start with a high code, benign ones with a low code.
func smallDataset(n int) ([][]int, []float64) {
	docs := make([][]int, n)
	labels := make([]float64, n)
	for i := range docs {
		doc := make([]int, testMaxLen)
		for j := range doc {
			doc[j] = 1 + (i+j)%(testVocab-2)
		}
		if i%2 == 0 {
			doc[0] = testVocab - 1
			labels[i] = 1
		} else {
			doc[0] = 1
		}
		docs[i] = doc
	}
	return docs, labels
}

func TestNewRejectsUnknownArchitecture(t *testing.T) {
	_, err := New(nn.Architecture(99), testVocab, testMaxLen)
	assert.ErrorIs(t, err, nn.ErrUnknownArchitecture)
}

func TestFitRejectsMismatchedShapes(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(1))
	require.NoError(t, err)

	docs, labels := smallDataset(10)
	err = d.Fit(context.Background(), docs, labels[:5], FitOptions{Epochs: 1, LogDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = d.Fit(context.Background(), nil, nil, FitOptions{Epochs: 1, LogDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFitCreatesLogDirAndEmitsScalars(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(2))
	require.NoError(t, err)

	logDir := filepath.Join(t.TempDir(), "logs", "nested")
	docs, labels := smallDataset(20)
	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs:    2,
		BatchSize: 4,
		LogDir:    logDir,
		RunID:     "test-run",
	})
	require.NoError(t, err)

	info, err := os.Stat(logDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	data, err := os.ReadFile(filepath.Join(logDir, "run-test-run.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"split":"train"`)
	assert.Contains(t, string(data), `"split":"val"`)
}

func TestFitWithCustomSink(t *testing.T) {
	d, err := New(nn.BigConvNN, testVocab, testMaxLen, WithSeed(3))
	require.NoError(t, err)

	sink := &recordingSink{}
	docs, labels := smallDataset(16)
	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs:    1,
		BatchSize: 8,
		LogDir:    t.TempDir(),
		Sink:      sink,
	})
	require.NoError(t, err)

	require.NotEmpty(t, sink.emits)
	first := sink.emits[0]
	assert.Equal(t, 1, first.epoch)
	assert.Equal(t, "train", first.split)
	assert.Contains(t, first.scalars, "loss")
	assert.Contains(t, first.scalars, "acc")
	assert.Contains(t, first.scalars, "f1", "the conv architecture tracks batch F1")
}

func TestFitHonorsValidationSplit(t *testing.T) {
	docs, labels := smallDataset(10)

	// a split too small to yield a single holdout sample disables the
	// validation pass entirely
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(20))
	require.NoError(t, err)
	sink := &recordingSink{}
	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs: 1, LogDir: t.TempDir(), Sink: sink, ValidationSplit: 0.05,
	})
	require.NoError(t, err)
	for _, e := range sink.emits {
		assert.Equal(t, "train", e.split)
	}

	d, err = New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(21))
	require.NoError(t, err)
	sink = &recordingSink{}
	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs: 1, LogDir: t.TempDir(), Sink: sink, ValidationSplit: 0.5,
	})
	require.NoError(t, err)
	splits := make(map[string]bool)
	for _, e := range sink.emits {
		splits[e.split] = true
	}
	assert.True(t, splits["val"], "a 0.5 split must produce validation scalars")
}

func TestFitRejectsOutOfRangeValidationSplit(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(22))
	require.NoError(t, err)

	docs, labels := smallDataset(10)
	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs: 1, LogDir: t.TempDir(), ValidationSplit: -0.1,
	})
	assert.Error(t, err)

	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs: 1, LogDir: t.TempDir(), ValidationSplit: 1.0,
	})
	assert.Error(t, err)
}

func TestFitHonorsContextCancellation(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(4))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, labels := smallDataset(20)
	err = d.Fit(ctx, docs, labels, FitOptions{Epochs: 5, LogDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictProbaRangeAndDeterminism(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(5))
	require.NoError(t, err)

	docs, _ := smallDataset(8)
	first, err := d.PredictProba(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, first, len(docs))
	for _, p := range first {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	second, err := d.PredictProba(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, first, second, "inference must be deterministic")
}

func TestPredictProbaPadsShortDocuments(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(6))
	require.NoError(t, err)

	probs, err := d.PredictProba(context.Background(), [][]int{{1, 2}, {}})
	require.NoError(t, err)
	assert.Len(t, probs, 2)
}

func TestEvaluateReturnsMetrics(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(7))
	require.NoError(t, err)

	docs, labels := smallDataset(12)
	result, err := d.Evaluate(context.Background(), docs, labels)
	require.NoError(t, err)
	assert.Greater(t, result.Loss, 0.0)
	assert.GreaterOrEqual(t, result.Accuracy, 0.0)
	assert.LessOrEqual(t, result.Accuracy, 1.0)

	_, err = d.Evaluate(context.Background(), docs, labels[:3])
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFitReducesTrainingLoss(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(8))
	require.NoError(t, err)

	docs, labels := smallDataset(40)
	before, err := d.Evaluate(context.Background(), docs, labels)
	require.NoError(t, err)

	err = d.Fit(context.Background(), docs, labels, FitOptions{
		Epochs:    10,
		BatchSize: 8,
		LogDir:    t.TempDir(),
		Sink:      monitor.NopSink{},
	})
	require.NoError(t, err)

	after, err := d.Evaluate(context.Background(), docs, labels)
	require.NoError(t, err)
	assert.Less(t, after.Loss, before.Loss, "training on separable data must reduce loss")
}

func TestROCCurve(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(9))
	require.NoError(t, err)

	docs, labels := smallDataset(10)
	roc, err := d.ROCCurve(context.Background(), docs, labels)
	require.NoError(t, err)
	assert.NotEmpty(t, roc.FPR)
	assert.GreaterOrEqual(t, roc.AUC, 0.0)
	assert.LessOrEqual(t, roc.AUC, 1.0)

	_, err = d.ROCCurve(context.Background(), docs, labels[:2])
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestROCCurveEmptyDataset(t *testing.T) {
	d, err := New(nn.SimpleNN, testVocab, testMaxLen, WithSeed(23))
	require.NoError(t, err)

	_, err = d.ROCCurve(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBinaryLabels(t *testing.T) {
	assert.True(t, binaryLabels(nil))
	assert.True(t, binaryLabels([]float64{0, 1, 1, 0}))
	assert.False(t, binaryLabels([]float64{0, 0.5, 1}))
	assert.False(t, binaryLabels([]float64{2}))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d, err := New(nn.BigConvNN, testVocab, testMaxLen, WithSeed(10))
	require.NoError(t, err)

	docs, _ := smallDataset(6)
	before, err := d.PredictProba(context.Background(), docs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, d.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, nn.BigConvNN, restored.Architecture())
	assert.Equal(t, testVocab, restored.VocabSize())
	assert.Equal(t, testMaxLen, restored.MaxLength())

	after, err := restored.PredictProba(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

type sinkEmit struct {
	epoch   int
	split   string
	scalars map[string]float64
}

type recordingSink struct {
	emits []sinkEmit
}

func (s *recordingSink) Emit(epoch int, split string, scalars map[string]float64) error {
	copied := make(map[string]float64, len(scalars))
	for k, v := range scalars {
		copied[k] = v
	}
	s.emits = append(s.emits, sinkEmit{epoch: epoch, split: split, scalars: copied})
	return nil
}

func (s *recordingSink) Close() error { return nil }
