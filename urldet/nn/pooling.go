package nn

import "gonum.org/v1/gonum/mat"

// SumPool collapses the sequence axis by summation, reducing
// (batch*seqLen) x channels to batch x channels. Summation rather than
// averaging keeps the total activation energy of each branch.
type SumPool struct {
	seqLen int
	batch  int
}

func NewSumPool(seqLen int) *SumPool { return &SumPool{seqLen: seqLen} }

func (p *SumPool) Forward(x *mat.Dense, training bool) *mat.Dense {
	rows, cols := x.Dims()
	p.batch = rows / p.seqLen
	y := mat.NewDense(p.batch, cols, nil)
	for s := 0; s < p.batch; s++ {
		for t := 0; t < p.seqLen; t++ {
			for j := 0; j < cols; j++ {
				y.Set(s, j, y.At(s, j)+x.At(s*p.seqLen+t, j))
			}
		}
	}
	return y
}

func (p *SumPool) Backward(grad *mat.Dense) *mat.Dense {
	_, cols := grad.Dims()
	dx := mat.NewDense(p.batch*p.seqLen, cols, nil)
	for s := 0; s < p.batch; s++ {
		for t := 0; t < p.seqLen; t++ {
			for j := 0; j < cols; j++ {
				dx.Set(s*p.seqLen+t, j, grad.At(s, j))
			}
		}
	}
	return dx
}

func (p *SumPool) Params() []*Param { return nil }
