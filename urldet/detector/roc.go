package detector

import (
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ROCResult holds the receiver operating characteristic curve over the
// probability threshold sweep and its area under curve.
type ROCResult struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64
	AUC        float64
}

// ComputeROC derives the ROC curve and AUC from per-document probabilities
// and 0/1 labels. An empty input yields a zero result.
func ComputeROC(probs, labels []float64) ROCResult {
	if len(probs) == 0 {
		return ROCResult{}
	}
	scores := append([]float64(nil), probs...)
	classes := make([]bool, len(labels))
	for i, y := range labels {
		classes[i] = y == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, thresholds := stat.ROC(nil, scores, classes, nil)

	// Trapezoidal integration wants an ascending abscissa.
	x := append([]float64(nil), fpr...)
	y := append([]float64(nil), tpr...)
	if len(x) > 1 && x[0] > x[len(x)-1] {
		reverse(x)
		reverse(y)
	}
	auc := integrate.Trapezoidal(x, y)

	return ROCResult{FPR: fpr, TPR: tpr, Thresholds: thresholds, AUC: auc}
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
