package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Embedding maps integer character codes to dense vectors. The input is a
// padded batch of code sequences; the output stacks every position of every
// sample as one row, sample-major: row s*seqLen+t holds the embedding of
// position t of sample s.
type Embedding struct {
	Table *Param // vocabSize x dim

	dim   int
	batch [][]int // cached for the backward scatter
}

// NewEmbedding creates an embedding table with uniform init in [-0.05, 0.05].
func NewEmbedding(name string, vocabSize, dim int, rng *rand.Rand) *Embedding {
	e := &Embedding{
		Table: newParam(name+"/table", vocabSize, dim),
		dim:   dim,
	}
	for i := 0; i < vocabSize; i++ {
		for j := 0; j < dim; j++ {
			e.Table.Value.Set(i, j, (rng.Float64()*2-1)*0.05)
		}
	}
	return e
}

// EmbedBatch looks up every code of every sequence. All sequences must have
// the same length and codes must lie in [0, vocabSize).
func (e *Embedding) EmbedBatch(batch [][]int) *mat.Dense {
	e.batch = batch
	seqLen := len(batch[0])
	out := mat.NewDense(len(batch)*seqLen, e.dim, nil)
	for s, seq := range batch {
		for t, code := range seq {
			row := e.Table.Value.RawRowView(code)
			for j := 0; j < e.dim; j++ {
				out.Set(s*seqLen+t, j, row[j])
			}
		}
	}
	return out
}

// Backward scatter-adds the row gradients back into the table gradient.
// The table gradient is zeroed first; repeated codes accumulate.
func (e *Embedding) Backward(grad *mat.Dense) {
	e.Table.Grad.Zero()
	seqLen := len(e.batch[0])
	for s, seq := range e.batch {
		for t, code := range seq {
			for j := 0; j < e.dim; j++ {
				e.Table.Grad.Set(code, j, e.Table.Grad.At(code, j)+grad.At(s*seqLen+t, j))
			}
		}
	}
}

func (e *Embedding) Params() []*Param { return []*Param{e.Table} }
