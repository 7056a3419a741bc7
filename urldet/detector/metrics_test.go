package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchF1PerfectPredictions(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.1, 0.2}
	labels := []float64{1, 1, 0, 0}
	assert.InDelta(t, 1.0, BatchF1(probs, labels), 1e-5)
}

func TestBatchF1NoTruePositives(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.3}
	labels := []float64{1, 1, 1}
	assert.InDelta(t, 0.0, BatchF1(probs, labels), 1e-6)
}

func TestBatchF1AllNegativeBatchStaysFinite(t *testing.T) {
	// no positives predicted and none present: epsilon keeps this at zero
	// instead of NaN
	probs := []float64{0.1, 0.2}
	labels := []float64{0, 0}
	f1 := BatchF1(probs, labels)
	assert.False(t, f1 != f1, "F1 must not be NaN")
	assert.InDelta(t, 0.0, f1, 1e-6)
}

func TestAccuracy(t *testing.T) {
	probs := []float64{0.9, 0.4, 0.6, 0.1}
	labels := []float64{1, 0, 0, 0}
	assert.InDelta(t, 0.75, Accuracy(probs, labels), 1e-12)
	assert.Equal(t, 0.0, Accuracy(nil, nil))
}

func TestConfusionCounts(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.3, 0.7, 0.2}
	labels := []float64{1, 0, 1, 1, 0}

	c := ConfusionCounts(probs, labels)
	assert.Equal(t, Confusion{TP: 2, FP: 1, TN: 1, FN: 1}, c)
	assert.InDelta(t, 2.0/3.0, c.Precision(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.Recall(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.F1(), 1e-12)
}

func TestConfusionZeroCountsAreDefined(t *testing.T) {
	var c Confusion
	assert.Equal(t, 0.0, c.Precision())
	assert.Equal(t, 0.0, c.Recall())
	assert.Equal(t, 0.0, c.F1())
}

func TestComputeROCPerfectClassifier(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.2, 0.1}
	labels := []float64{1, 1, 0, 0}

	roc := ComputeROC(probs, labels)
	require.NotEmpty(t, roc.FPR)
	require.Len(t, roc.TPR, len(roc.FPR))
	require.Len(t, roc.Thresholds, len(roc.FPR))
	assert.InDelta(t, 1.0, roc.AUC, 1e-9)
}

func TestComputeROCRandomClassifier(t *testing.T) {
	// a constant score cannot rank positives above negatives
	probs := []float64{0.5, 0.5, 0.5, 0.5}
	labels := []float64{1, 0, 1, 0}

	roc := ComputeROC(probs, labels)
	assert.InDelta(t, 0.5, roc.AUC, 1e-9)
}

func TestComputeROCEmptyInput(t *testing.T) {
	roc := ComputeROC(nil, nil)
	assert.Empty(t, roc.FPR)
	assert.Empty(t, roc.TPR)
	assert.Empty(t, roc.Thresholds)
	assert.Equal(t, 0.0, roc.AUC)
}

func TestComputeROCAUCBounds(t *testing.T) {
	probs := []float64{0.1, 0.7, 0.4, 0.9, 0.3, 0.6}
	labels := []float64{0, 1, 0, 1, 1, 0}

	roc := ComputeROC(probs, labels)
	assert.GreaterOrEqual(t, roc.AUC, 0.0)
	assert.LessOrEqual(t, roc.AUC, 1.0)
}
