package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// probClip keeps probabilities away from exact 0/1 before taking logs.
const probClip = 1e-7

// BCELoss computes the mean binary cross-entropy of sigmoid probabilities
// (batch x 1) against 0/1 labels.
func BCELoss(probs *mat.Dense, labels []float64) float64 {
	n, _ := probs.Dims()
	var loss float64
	for i := 0; i < n; i++ {
		p := clipProb(probs.At(i, 0))
		y := labels[i]
		loss -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return loss / float64(n)
}

// BCEGrad returns the gradient of the mean binary cross-entropy with
// respect to the pre-sigmoid logits: (p - y) / n. Networks expect this as
// the seed of their backward pass, so the output sigmoid never has to be
// differentiated on its own.
func BCEGrad(probs *mat.Dense, labels []float64) *mat.Dense {
	n, _ := probs.Dims()
	grad := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		grad.Set(i, 0, (probs.At(i, 0)-labels[i])/float64(n))
	}
	return grad
}

func clipProb(p float64) float64 {
	if p < probClip {
		return probClip
	}
	if p > 1-probClip {
		return 1 - probClip
	}
	return p
}

// sigmoidInPlace applies the logistic function elementwise.
func sigmoidInPlace(m *mat.Dense) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, 1/(1+math.Exp(-m.At(i, j))))
		}
	}
}
