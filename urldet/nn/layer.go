// Package nn implements the dense-matrix layer engine behind the URL
// detector: embeddings, 1-D convolutions, batch normalization, pooling,
// dropout and fully-connected layers, together with the Adam optimizer and
// the binary cross-entropy loss. All activations are gonum dense matrices;
// the convolutional stage carries a (batch*seqLen) x channels matrix so the
// same BatchNorm implementation serves both the convolutional and the
// fully-connected stages.
package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Param is a single trainable tensor. Backward passes overwrite Grad;
// the optimizer consumes it on Step.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// Layer is a differentiable transformation of a dense activation matrix.
// Forward caches whatever Backward needs; layers are therefore not safe for
// concurrent use, matching the single-caller contract of the detector.
type Layer interface {
	Forward(x *mat.Dense, training bool) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
	Params() []*Param
}

// Dense is a fully-connected layer: y = x*W + b.
type Dense struct {
	W *Param // in x out
	B *Param // 1 x out

	x *mat.Dense // cached input
}

// NewDense creates a fully-connected layer with Glorot-uniform weights.
func NewDense(name string, in, out int, rng *rand.Rand) *Dense {
	d := &Dense{
		W: newParam(name+"/w", in, out),
		B: newParam(name+"/b", 1, out),
	}
	glorotInit(d.W.Value, in, out, rng)
	return d
}

func (d *Dense) Forward(x *mat.Dense, training bool) *mat.Dense {
	d.x = x
	rows, _ := x.Dims()
	_, out := d.W.Value.Dims()
	y := mat.NewDense(rows, out, nil)
	y.Mul(x, d.W.Value)
	addRowBroadcast(y, d.B.Value)
	return y
}

func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	d.W.Grad.Mul(d.x.T(), grad)
	sumColumnsInto(d.B.Grad, grad)

	rows, _ := grad.Dims()
	in, _ := d.W.Value.Dims()
	dx := mat.NewDense(rows, in, nil)
	dx.Mul(grad, d.W.Value.T())
	return dx
}

func (d *Dense) Params() []*Param { return []*Param{d.W, d.B} }

// ReLU zeroes negative activations.
type ReLU struct {
	mask []bool
}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(x *mat.Dense, training bool) *mat.Dense {
	rows, cols := x.Dims()
	if cap(r.mask) < rows*cols {
		r.mask = make([]bool, rows*cols)
	}
	r.mask = r.mask[:rows*cols]
	y := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			if v > 0 {
				y.Set(i, j, v)
				r.mask[i*cols+j] = true
			} else {
				r.mask[i*cols+j] = false
			}
		}
	}
	return y
}

func (r *ReLU) Backward(grad *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	dx := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if r.mask[i*cols+j] {
				dx.Set(i, j, grad.At(i, j))
			}
		}
	}
	return dx
}

func (r *ReLU) Params() []*Param { return nil }

// Flatten reshapes the per-position embedding block of each sample into a
// single row: (batch*seqLen) x channels -> batch x (seqLen*channels).
// Rows are sample-major, so the reshape is a straight copy of the backing
// data.
type Flatten struct {
	seqLen int
	rows   int
	cols   int
}

func NewFlatten(seqLen int) *Flatten { return &Flatten{seqLen: seqLen} }

func (f *Flatten) Forward(x *mat.Dense, training bool) *mat.Dense {
	f.rows, f.cols = x.Dims()
	batch := f.rows / f.seqLen
	y := mat.NewDense(batch, f.seqLen*f.cols, nil)
	for s := 0; s < batch; s++ {
		for t := 0; t < f.seqLen; t++ {
			for j := 0; j < f.cols; j++ {
				y.Set(s, t*f.cols+j, x.At(s*f.seqLen+t, j))
			}
		}
	}
	return y
}

func (f *Flatten) Backward(grad *mat.Dense) *mat.Dense {
	dx := mat.NewDense(f.rows, f.cols, nil)
	batch := f.rows / f.seqLen
	for s := 0; s < batch; s++ {
		for t := 0; t < f.seqLen; t++ {
			for j := 0; j < f.cols; j++ {
				dx.Set(s*f.seqLen+t, j, grad.At(s, t*f.cols+j))
			}
		}
	}
	return dx
}

func (f *Flatten) Params() []*Param { return nil }

// glorotInit fills w with uniform values in [-limit, limit] where
// limit = sqrt(6/(fanIn+fanOut)).
func glorotInit(w *mat.Dense, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	rows, cols := w.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
}

// addRowBroadcast adds the 1 x cols row vector b to every row of y.
func addRowBroadcast(y *mat.Dense, b *mat.Dense) {
	rows, cols := y.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			y.Set(i, j, y.At(i, j)+b.At(0, j))
		}
	}
}

// sumColumnsInto writes the per-column sums of g into the 1 x cols dst.
func sumColumnsInto(dst *mat.Dense, g *mat.Dense) {
	rows, cols := g.Dims()
	for j := 0; j < cols; j++ {
		var s float64
		for i := 0; i < rows; i++ {
			s += g.At(i, j)
		}
		dst.Set(0, j, s)
	}
}
