package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Conv1D is a 1-D convolution over the embedded sequence with stride 1 and
// same-length zero padding: output position t sees input positions
// t-padLeft .. t-padLeft+width-1, positions outside the sequence read as
// zero. The convolution is computed as an im2col gather followed by one
// matrix multiply against the (width*in) x filters weight matrix.
type Conv1D struct {
	W *Param // (width*in) x filters
	B *Param // 1 x filters

	width   int
	in      int
	filters int
	seqLen  int
	padLeft int

	col   *mat.Dense // cached im2col matrix
	batch int
}

// NewConv1D creates a same-padded convolution of the given filter width.
func NewConv1D(name string, width, in, filters, seqLen int, rng *rand.Rand) *Conv1D {
	c := &Conv1D{
		W:       newParam(name+"/w", width*in, filters),
		B:       newParam(name+"/b", 1, filters),
		width:   width,
		in:      in,
		filters: filters,
		seqLen:  seqLen,
		padLeft: (width - 1) / 2,
	}
	glorotInit(c.W.Value, width*in, filters, rng)
	return c
}

func (c *Conv1D) Forward(x *mat.Dense, training bool) *mat.Dense {
	rows, _ := x.Dims()
	c.batch = rows / c.seqLen

	c.col = mat.NewDense(rows, c.width*c.in, nil)
	for s := 0; s < c.batch; s++ {
		for t := 0; t < c.seqLen; t++ {
			for w := 0; w < c.width; w++ {
				src := t - c.padLeft + w
				if src < 0 || src >= c.seqLen {
					continue // zero padding
				}
				for j := 0; j < c.in; j++ {
					c.col.Set(s*c.seqLen+t, w*c.in+j, x.At(s*c.seqLen+src, j))
				}
			}
		}
	}

	y := mat.NewDense(rows, c.filters, nil)
	y.Mul(c.col, c.W.Value)
	addRowBroadcast(y, c.B.Value)
	return y
}

func (c *Conv1D) Backward(grad *mat.Dense) *mat.Dense {
	c.W.Grad.Mul(c.col.T(), grad)
	sumColumnsInto(c.B.Grad, grad)

	rows, _ := grad.Dims()
	dcol := mat.NewDense(rows, c.width*c.in, nil)
	dcol.Mul(grad, c.W.Value.T())

	// col2im: scatter the window gradients back onto the sequence.
	dx := mat.NewDense(rows, c.in, nil)
	for s := 0; s < c.batch; s++ {
		for t := 0; t < c.seqLen; t++ {
			for w := 0; w < c.width; w++ {
				src := t - c.padLeft + w
				if src < 0 || src >= c.seqLen {
					continue
				}
				for j := 0; j < c.in; j++ {
					dx.Set(s*c.seqLen+src, j,
						dx.At(s*c.seqLen+src, j)+dcol.At(s*c.seqLen+t, w*c.in+j))
				}
			}
		}
	}
	return dx
}

func (c *Conv1D) Params() []*Param { return []*Param{c.W, c.B} }
