package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Optimizer applies one gradient step to a parameter set.
type Optimizer interface {
	Step(params []*Param)
}

// Adam is adaptive-moment gradient descent with bias-corrected first and
// second moment estimates, kept per parameter tensor.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	state map[*Param]*adamState
}

type adamState struct {
	m, v *mat.Dense
	t    int
}

// NewAdam creates an Adam optimizer with the usual defaults
// (beta1 0.9, beta2 0.999, eps 1e-8).
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
		state: make(map[*Param]*adamState),
	}
}

func (a *Adam) Step(params []*Param) {
	for _, p := range params {
		st, ok := a.state[p]
		if !ok {
			rows, cols := p.Value.Dims()
			st = &adamState{
				m: mat.NewDense(rows, cols, nil),
				v: mat.NewDense(rows, cols, nil),
			}
			a.state[p] = st
		}
		st.t++

		rows, cols := p.Value.Dims()
		corr1 := 1 - math.Pow(a.Beta1, float64(st.t))
		corr2 := 1 - math.Pow(a.Beta2, float64(st.t))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := p.Grad.At(i, j)
				m := a.Beta1*st.m.At(i, j) + (1-a.Beta1)*g
				v := a.Beta2*st.v.At(i, j) + (1-a.Beta2)*g*g
				st.m.Set(i, j, m)
				st.v.Set(i, j, v)

				mHat := m / corr1
				vHat := v / corr2
				p.Value.Set(i, j, p.Value.At(i, j)-a.LR*mHat/(math.Sqrt(vHat)+a.Eps))
			}
		}
	}
}
