package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	bnEps      = 1e-5
	bnMomentum = 0.99
)

// BatchNorm normalizes each channel to zero mean and unit variance over the
// rows of the incoming matrix, then applies the learned affine correction.
// In the convolutional stage rows span batch*seqLen positions, in the dense
// stage one row per sample; the same statistics code covers both.
type BatchNorm struct {
	Gamma *Param // 1 x channels
	Beta  *Param // 1 x channels

	// Running statistics used in evaluation mode.
	RunningMean []float64
	RunningVar  []float64

	channels int

	// caches for backward
	xc     *mat.Dense // x - mean
	xhat   *mat.Dense
	invStd []float64
}

// NewBatchNorm creates a batch normalization layer over the given channel
// count. Gamma starts at one, beta at zero, running variance at one.
func NewBatchNorm(name string, channels int) *BatchNorm {
	bn := &BatchNorm{
		Gamma:       newParam(name+"/gamma", 1, channels),
		Beta:        newParam(name+"/beta", 1, channels),
		RunningMean: make([]float64, channels),
		RunningVar:  make([]float64, channels),
		channels:    channels,
	}
	for j := 0; j < channels; j++ {
		bn.Gamma.Value.Set(0, j, 1)
		bn.RunningVar[j] = 1
	}
	return bn
}

func (bn *BatchNorm) Forward(x *mat.Dense, training bool) *mat.Dense {
	rows, cols := x.Dims()
	y := mat.NewDense(rows, cols, nil)

	if !training {
		for j := 0; j < cols; j++ {
			invStd := 1 / math.Sqrt(bn.RunningVar[j]+bnEps)
			g := bn.Gamma.Value.At(0, j)
			b := bn.Beta.Value.At(0, j)
			m := bn.RunningMean[j]
			for i := 0; i < rows; i++ {
				y.Set(i, j, g*(x.At(i, j)-m)*invStd+b)
			}
		}
		return y
	}

	bn.xc = mat.NewDense(rows, cols, nil)
	bn.xhat = mat.NewDense(rows, cols, nil)
	if bn.invStd == nil {
		bn.invStd = make([]float64, cols)
	}

	n := float64(rows)
	for j := 0; j < cols; j++ {
		var mean float64
		for i := 0; i < rows; i++ {
			mean += x.At(i, j)
		}
		mean /= n

		var variance float64
		for i := 0; i < rows; i++ {
			d := x.At(i, j) - mean
			bn.xc.Set(i, j, d)
			variance += d * d
		}
		variance /= n

		invStd := 1 / math.Sqrt(variance+bnEps)
		bn.invStd[j] = invStd

		g := bn.Gamma.Value.At(0, j)
		b := bn.Beta.Value.At(0, j)
		for i := 0; i < rows; i++ {
			xhat := bn.xc.At(i, j) * invStd
			bn.xhat.Set(i, j, xhat)
			y.Set(i, j, g*xhat+b)
		}

		bn.RunningMean[j] = bnMomentum*bn.RunningMean[j] + (1-bnMomentum)*mean
		bn.RunningVar[j] = bnMomentum*bn.RunningVar[j] + (1-bnMomentum)*variance
	}
	return y
}

func (bn *BatchNorm) Backward(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	n := float64(rows)
	dx := mat.NewDense(rows, cols, nil)

	for j := 0; j < cols; j++ {
		g := bn.Gamma.Value.At(0, j)
		invStd := bn.invStd[j]

		var dGamma, dBeta float64
		for i := 0; i < rows; i++ {
			dGamma += grad.At(i, j) * bn.xhat.At(i, j)
			dBeta += grad.At(i, j)
		}
		bn.Gamma.Grad.Set(0, j, dGamma)
		bn.Beta.Grad.Set(0, j, dBeta)

		// dx = (gamma*invStd/n) * (n*dy - sum(dy) - xhat*sum(dy*xhat))
		for i := 0; i < rows; i++ {
			dy := grad.At(i, j)
			dx.Set(i, j, g*invStd/n*(n*dy-dBeta-bn.xhat.At(i, j)*dGamma))
		}
	}
	return dx
}

func (bn *BatchNorm) Params() []*Param { return []*Param{bn.Gamma, bn.Beta} }
