package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes activations with probability rate during training and
// rescales survivors by 1/(1-rate), so evaluation mode is the identity.
type Dropout struct {
	rate float64
	rng  *rand.Rand
	mask []float64
	cols int
}

func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{rate: rate, rng: rng}
}

func (d *Dropout) Forward(x *mat.Dense, training bool) *mat.Dense {
	if !training || d.rate == 0 {
		d.mask = nil
		return x
	}
	rows, cols := x.Dims()
	d.cols = cols
	if cap(d.mask) < rows*cols {
		d.mask = make([]float64, rows*cols)
	}
	d.mask = d.mask[:rows*cols]

	scale := 1 / (1 - d.rate)
	y := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if d.rng.Float64() < d.rate {
				d.mask[i*cols+j] = 0
			} else {
				d.mask[i*cols+j] = scale
				y.Set(i, j, x.At(i, j)*scale)
			}
		}
	}
	return y
}

func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return grad
	}
	rows, cols := grad.Dims()
	dx := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dx.Set(i, j, grad.At(i, j)*d.mask[i*cols+j])
		}
	}
	return dx
}

func (d *Dropout) Params() []*Param { return nil }
