package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrUnknownArchitecture is returned when an architecture name outside the
// recognized set is requested. Construction fails fast instead of leaving
// the network unbuilt.
var ErrUnknownArchitecture = errors.New("nn: unknown architecture")

// Architecture selects one of the two fixed network topologies.
type Architecture int

const (
	// SimpleNN is the single-embedding linear classifier:
	// embed-32, flatten, one sigmoid unit.
	SimpleNN Architecture = iota
	// BigConvNN is the multi-branch convolutional network after Saxe et
	// al. (eXpose): four parallel conv branches of widths 2..5 with batch
	// normalization, sum-pooling and dropout, a 1024-wide dense trunk and
	// a sigmoid head.
	BigConvNN
)

// ParseArchitecture maps the wire names "simple_nn" and "big_conv_nn".
func ParseArchitecture(s string) (Architecture, error) {
	switch s {
	case "simple_nn":
		return SimpleNN, nil
	case "big_conv_nn":
		return BigConvNN, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownArchitecture, s)
	}
}

func (a Architecture) String() string {
	switch a {
	case SimpleNN:
		return "simple_nn"
	case BigConvNN:
		return "big_conv_nn"
	default:
		return fmt.Sprintf("architecture(%d)", int(a))
	}
}

const (
	embeddingDim = 32
	convFilters  = 256
	trunkWidth   = 1024
	dropoutRate  = 0.5
)

var convWidths = []int{2, 3, 4, 5}

// Network is a built, ready-to-train graph mapping a padded batch of
// integer code sequences to one probability per sample.
type Network interface {
	// Forward runs the graph and returns batch x 1 probabilities in [0,1].
	Forward(batch [][]int, training bool) *mat.Dense
	// Backward propagates the loss gradient with respect to the output
	// logits, leaving fresh gradients on every parameter.
	Backward(gradLogits *mat.Dense)
	// Params returns every trainable tensor, named uniquely.
	Params() []*Param
	Architecture() Architecture
	VocabSize() int
	MaxLength() int

	batchNorms() map[string]*BatchNorm
}

// Config carries the immutable hyperparameters of a network.
type Config struct {
	VocabSize int
	MaxLength int
	Seed      int64
}

// Build constructs and initializes the requested architecture.
func Build(arch Architecture, cfg Config) (Network, error) {
	if cfg.VocabSize <= 0 || cfg.MaxLength <= 0 {
		return nil, fmt.Errorf("nn: vocab size and max length must be positive, got %d and %d",
			cfg.VocabSize, cfg.MaxLength)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	switch arch {
	case SimpleNN:
		return newSimpleNN(cfg, rng), nil
	case BigConvNN:
		return newBigConvNN(cfg, rng), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownArchitecture, arch)
	}
}

// simpleNN: embedding -> flatten -> dense(1) -> sigmoid.
type simpleNN struct {
	cfg Config

	emb     *Embedding
	flatten *Flatten
	out     *Dense
}

func newSimpleNN(cfg Config, rng *rand.Rand) *simpleNN {
	return &simpleNN{
		cfg:     cfg,
		emb:     NewEmbedding("emb", cfg.VocabSize, embeddingDim, rng),
		flatten: NewFlatten(cfg.MaxLength),
		out:     NewDense("out", cfg.MaxLength*embeddingDim, 1, rng),
	}
}

func (n *simpleNN) Forward(batch [][]int, training bool) *mat.Dense {
	x := n.emb.EmbedBatch(batch)
	x = n.flatten.Forward(x, training)
	logits := n.out.Forward(x, training)
	sigmoidInPlace(logits)
	return logits
}

func (n *simpleNN) Backward(gradLogits *mat.Dense) {
	g := n.out.Backward(gradLogits)
	g = n.flatten.Backward(g)
	n.emb.Backward(g)
}

func (n *simpleNN) Params() []*Param {
	var ps []*Param
	ps = append(ps, n.emb.Params()...)
	ps = append(ps, n.out.Params()...)
	return ps
}

func (n *simpleNN) Architecture() Architecture        { return SimpleNN }
func (n *simpleNN) VocabSize() int                    { return n.cfg.VocabSize }
func (n *simpleNN) MaxLength() int                    { return n.cfg.MaxLength }
func (n *simpleNN) batchNorms() map[string]*BatchNorm { return nil }

// convBranch is one parallel branch of the big network: convolution, ReLU,
// batch normalization, sum-pool over the sequence, dropout.
type convBranch struct {
	conv *Conv1D
	relu *ReLU
	bn   *BatchNorm
	pool *SumPool
	drop *Dropout
}

func newConvBranch(name string, width, seqLen int, rng *rand.Rand) *convBranch {
	return &convBranch{
		conv: NewConv1D(name+"/conv", width, embeddingDim, convFilters, seqLen, rng),
		relu: NewReLU(),
		bn:   NewBatchNorm(name+"/bn", convFilters),
		pool: NewSumPool(seqLen),
		drop: NewDropout(dropoutRate, rng),
	}
}

func (b *convBranch) forward(x *mat.Dense, training bool) *mat.Dense {
	h := b.conv.Forward(x, training)
	h = b.relu.Forward(h, training)
	h = b.bn.Forward(h, training)
	h = b.pool.Forward(h, training)
	return b.drop.Forward(h, training)
}

func (b *convBranch) backward(grad *mat.Dense) *mat.Dense {
	g := b.drop.Backward(grad)
	g = b.pool.Backward(g)
	g = b.bn.Backward(g)
	g = b.relu.Backward(g)
	return b.conv.Backward(g)
}

func (b *convBranch) params() []*Param {
	var ps []*Param
	ps = append(ps, b.conv.Params()...)
	ps = append(ps, b.bn.Params()...)
	return ps
}

// bigConvNN: embedding -> 4 parallel conv branches -> concat ->
// batch norm -> 3 x [dense-1024 + ReLU, batch norm, dropout] ->
// dense(1) -> sigmoid.
type bigConvNN struct {
	cfg Config

	emb      *Embedding
	branches []*convBranch
	bnMerge  *BatchNorm
	trunk    []Layer
	out      *Dense

	bns map[string]*BatchNorm
}

func newBigConvNN(cfg Config, rng *rand.Rand) *bigConvNN {
	n := &bigConvNN{
		cfg:     cfg,
		emb:     NewEmbedding("emb", cfg.VocabSize, embeddingDim, rng),
		bnMerge: NewBatchNorm("merge/bn", len(convWidths)*convFilters),
		bns:     make(map[string]*BatchNorm),
	}
	for _, w := range convWidths {
		name := fmt.Sprintf("branch%d", w)
		br := newConvBranch(name, w, cfg.MaxLength, rng)
		n.branches = append(n.branches, br)
		n.bns[name+"/bn"] = br.bn
	}
	n.bns["merge/bn"] = n.bnMerge

	width := len(convWidths) * convFilters
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("trunk%d", i)
		bn := NewBatchNorm(name+"/bn", trunkWidth)
		n.bns[name+"/bn"] = bn
		n.trunk = append(n.trunk,
			NewDense(name+"/dense", width, trunkWidth, rng),
			NewReLU(),
			bn,
			NewDropout(dropoutRate, rng),
		)
		width = trunkWidth
	}
	n.out = NewDense("out", trunkWidth, 1, rng)
	return n
}

func (n *bigConvNN) Forward(batch [][]int, training bool) *mat.Dense {
	x := n.emb.EmbedBatch(batch)

	outs := make([]*mat.Dense, len(n.branches))
	for i, br := range n.branches {
		outs[i] = br.forward(x, training)
	}
	h := concatColumns(outs)
	h = n.bnMerge.Forward(h, training)
	for _, l := range n.trunk {
		h = l.Forward(h, training)
	}
	logits := n.out.Forward(h, training)
	sigmoidInPlace(logits)
	return logits
}

func (n *bigConvNN) Backward(gradLogits *mat.Dense) {
	g := n.out.Backward(gradLogits)
	for i := len(n.trunk) - 1; i >= 0; i-- {
		g = n.trunk[i].Backward(g)
	}
	g = n.bnMerge.Backward(g)

	parts := splitColumns(g, convFilters)
	var dx *mat.Dense
	for i, br := range n.branches {
		d := br.backward(parts[i])
		if dx == nil {
			dx = d
		} else {
			dx.Add(dx, d)
		}
	}
	n.emb.Backward(dx)
}

func (n *bigConvNN) Params() []*Param {
	var ps []*Param
	ps = append(ps, n.emb.Params()...)
	for _, br := range n.branches {
		ps = append(ps, br.params()...)
	}
	ps = append(ps, n.bnMerge.Params()...)
	for _, l := range n.trunk {
		ps = append(ps, l.Params()...)
	}
	ps = append(ps, n.out.Params()...)
	return ps
}

func (n *bigConvNN) Architecture() Architecture        { return BigConvNN }
func (n *bigConvNN) VocabSize() int                    { return n.cfg.VocabSize }
func (n *bigConvNN) MaxLength() int                    { return n.cfg.MaxLength }
func (n *bigConvNN) batchNorms() map[string]*BatchNorm { return n.bns }

// concatColumns stacks equally-rowed matrices side by side.
func concatColumns(ms []*mat.Dense) *mat.Dense {
	rows, _ := ms[0].Dims()
	total := 0
	for _, m := range ms {
		_, c := m.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	off := 0
	for _, m := range ms {
		_, c := m.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, off+j, m.At(i, j))
			}
		}
		off += c
	}
	return out
}

// splitColumns slices a matrix into equal-width column blocks.
func splitColumns(m *mat.Dense, width int) []*mat.Dense {
	rows, cols := m.Dims()
	parts := make([]*mat.Dense, 0, cols/width)
	for off := 0; off < cols; off += width {
		p := mat.NewDense(rows, width, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < width; j++ {
				p.Set(i, j, m.At(i, off+j))
			}
		}
		parts = append(parts, p)
	}
	return parts
}
