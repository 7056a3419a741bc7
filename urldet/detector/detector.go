// Package detector wraps the neural network graph behind the URL
// classification workflow: build one of the fixed architectures, fit it
// against labeled character sequences, evaluate, predict and derive ROC
// curves.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/features"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/monitor"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/nn"
)

// ErrShapeMismatch is returned when documents and labels disagree in count.
var ErrShapeMismatch = errors.New("detector: documents and labels length mismatch")

// UrlDetector owns one network graph. The graph is built at construction
// and only replaced wholesale by Load; hyperparameters are immutable.
// Methods serialize access internally: layer forward passes cache state, so
// the network itself is single-caller.
type UrlDetector struct {
	mu    sync.Mutex
	net   nn.Network
	optim nn.Optimizer
	rng   *rand.Rand

	asserts *assert.AssertHandler
}

type options struct {
	seed  int64
	optim nn.Optimizer
}

// Option configures detector construction.
type Option func(*options)

// WithSeed fixes the weight initialization and shuffling seed.
func WithSeed(seed int64) Option { return func(o *options) { o.seed = seed } }

// WithOptimizer overrides the default Adam optimizer.
func WithOptimizer(opt nn.Optimizer) Option { return func(o *options) { o.optim = opt } }

// New builds a detector for the given architecture. Unrecognized
// architectures and non-positive sizes fail fast.
func New(arch nn.Architecture, vocabSize, maxLength int, opts ...Option) (*UrlDetector, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	net, err := nn.Build(arch, nn.Config{VocabSize: vocabSize, MaxLength: maxLength, Seed: o.seed})
	if err != nil {
		return nil, err
	}
	if o.optim == nil {
		o.optim = nn.NewAdam(0.001)
	}
	return &UrlDetector{
		net:     net,
		optim:   o.optim,
		rng:     rand.New(rand.NewSource(o.seed)),
		asserts: assert.NewAssertHandler(),
	}, nil
}

// Load rebuilds a detector from a checkpoint written by Save.
func Load(path string, opts ...Option) (*UrlDetector, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	net, err := nn.LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	if o.optim == nil {
		o.optim = nn.NewAdam(0.001)
	}
	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &UrlDetector{
		net:     net,
		optim:   o.optim,
		rng:     rand.New(rand.NewSource(seed)),
		asserts: assert.NewAssertHandler(),
	}, nil
}

// Save writes the network weights and hyperparameters to path.
func (d *UrlDetector) Save(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return nn.SaveCheckpoint(path, d.net)
}

// Architecture returns the fixed architecture of this detector.
func (d *UrlDetector) Architecture() nn.Architecture { return d.net.Architecture() }

// VocabSize returns the alphabet size the network was built for.
func (d *UrlDetector) VocabSize() int { return d.net.VocabSize() }

// MaxLength returns the padded sequence length the network expects.
func (d *UrlDetector) MaxLength() int { return d.net.MaxLength() }

// FitOptions configures a training run.
type FitOptions struct {
	Epochs    int
	BatchSize int
	Verbose   bool
	// ValidationSplit is the trailing fraction of samples held out for
	// validation; zero defaults to 0.2.
	ValidationSplit float64
	// LogDir receives the per-epoch scalar logs; created if absent.
	LogDir string
	// Sink overrides the default JSONL sink under LogDir.
	Sink monitor.Sink
	// RunID names the run; a fresh uuid when empty.
	RunID string
}

// EvalResult is the outcome of one evaluation pass.
type EvalResult struct {
	Loss     float64
	Accuracy float64
	F1       float64
}

// Fit trains for the requested epoch count. The trailing ValidationSplit
// fraction of the samples (20% by default) is reserved as a held-out
// validation split: data must be shuffled by the caller beforehand, the
// slice is deterministic. Per-epoch scalars go to the monitoring sink and
// the structured log.
func (d *UrlDetector) Fit(ctx context.Context, docs [][]int, labels []float64, opts FitOptions) error {
	if len(docs) != len(labels) {
		return fmt.Errorf("%w: %d documents, %d labels", ErrShapeMismatch, len(docs), len(labels))
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: empty dataset", ErrShapeMismatch)
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.ValidationSplit == 0 {
		opts.ValidationSplit = 0.2
	}
	if opts.ValidationSplit < 0 || opts.ValidationSplit >= 1 {
		return fmt.Errorf("detector: validation split must be in [0, 1), got %g", opts.ValidationSplit)
	}
	if opts.LogDir == "" {
		opts.LogDir = "training_logs"
	}
	if err := os.MkdirAll(opts.LogDir, 0o750); err != nil {
		return fmt.Errorf("detector: create log dir: %w", err)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	sink := opts.Sink
	if sink == nil {
		s, err := monitor.NewJSONLSink(opts.LogDir, runID)
		if err != nil {
			return err
		}
		defer s.Close()
		sink = s
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	padded := features.PadSequences(docs, d.net.MaxLength())
	d.asserts.Assert(ctx, binaryLabels(labels), "labels must be 0 or 1")

	// Deterministic tail slice, not a random sample.
	n := len(padded)
	nVal := int(float64(n) * opts.ValidationSplit)
	trainDocs, trainLabels := padded[:n-nVal], labels[:n-nVal]
	valDocs, valLabels := padded[n-nVal:], labels[n-nVal:]
	if nVal > 0 && singleClass(valLabels) {
		slog.Warn("validation split contains a single class; was the dataset shuffled before Fit?",
			"run_id", runID, "val_samples", nVal)
	}

	trackF1 := d.net.Architecture() == nn.BigConvNN

	slog.Info("training started",
		"run_id", runID,
		"architecture", d.net.Architecture().String(),
		"samples", len(trainDocs),
		"val_samples", len(valDocs),
		"epochs", opts.Epochs,
		"batch_size", opts.BatchSize)

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		perm := d.rng.Perm(len(trainDocs))

		var (
			lossSum float64
			accSum  float64
			f1Sum   float64
			batches int
			seen    int
		)
		for start := 0; start < len(perm); start += opts.BatchSize {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			end := min(start+opts.BatchSize, len(perm))
			batchDocs := make([][]int, 0, end-start)
			batchLabels := make([]float64, 0, end-start)
			for _, idx := range perm[start:end] {
				batchDocs = append(batchDocs, trainDocs[idx])
				batchLabels = append(batchLabels, trainLabels[idx])
			}

			probsMat := d.net.Forward(batchDocs, true)
			probs := colToSlice(probsMat)

			loss := nn.BCELoss(probsMat, batchLabels)
			d.net.Backward(nn.BCEGrad(probsMat, batchLabels))
			d.optim.Step(d.net.Params())

			size := len(batchDocs)
			lossSum += loss * float64(size)
			accSum += Accuracy(probs, batchLabels) * float64(size)
			f1Sum += BatchF1(probs, batchLabels)
			batches++
			seen += size
		}

		trainScalars := map[string]float64{
			"loss": lossSum / float64(seen),
			"acc":  accSum / float64(seen),
		}
		if trackF1 {
			trainScalars["f1"] = f1Sum / float64(batches)
		}
		if err := sink.Emit(epoch, "train", trainScalars); err != nil {
			return err
		}

		logAttrs := []any{
			"run_id", runID,
			"epoch", epoch,
			"loss", trainScalars["loss"],
			"acc", trainScalars["acc"],
		}
		if len(valDocs) > 0 {
			valResult, err := d.evalPass(ctx, valDocs, valLabels, opts.BatchSize)
			if err != nil {
				return err
			}
			valScalars := map[string]float64{
				"loss": valResult.Loss,
				"acc":  valResult.Accuracy,
			}
			if trackF1 {
				valScalars["f1"] = valResult.F1
			}
			if err := sink.Emit(epoch, "val", valScalars); err != nil {
				return err
			}
			logAttrs = append(logAttrs, "val_loss", valResult.Loss, "val_acc", valResult.Accuracy)
		}
		if opts.Verbose {
			slog.Info("epoch finished", logAttrs...)
		}
	}
	return nil
}

// Evaluate runs an evaluation-mode forward pass and returns loss, accuracy
// and the batch-averaged F1 score.
func (d *UrlDetector) Evaluate(ctx context.Context, docs [][]int, labels []float64) (EvalResult, error) {
	if len(docs) != len(labels) {
		return EvalResult{}, fmt.Errorf("%w: %d documents, %d labels", ErrShapeMismatch, len(docs), len(labels))
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	padded := features.PadSequences(docs, d.net.MaxLength())
	result, err := d.evalPass(ctx, padded, labels, 32)
	if err != nil {
		return EvalResult{}, err
	}
	slog.Info("evaluation finished",
		"accuracy", result.Accuracy*100,
		"f1", result.F1,
		"loss", result.Loss)
	return result, nil
}

// PredictProba returns the probability of the malicious class for every
// document. Pure function of model state and input.
func (d *UrlDetector) PredictProba(ctx context.Context, docs [][]int) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.predictLocked(ctx, features.PadSequences(docs, d.net.MaxLength()))
}

// ROCCurve computes probabilities and derives the ROC curve and its AUC
// over the probability threshold sweep. Rendering is left to the caller.
func (d *UrlDetector) ROCCurve(ctx context.Context, docs [][]int, labels []float64) (ROCResult, error) {
	if len(docs) != len(labels) {
		return ROCResult{}, fmt.Errorf("%w: %d documents, %d labels", ErrShapeMismatch, len(docs), len(labels))
	}
	if len(docs) == 0 {
		return ROCResult{}, fmt.Errorf("%w: empty dataset", ErrShapeMismatch)
	}
	probs, err := d.PredictProba(ctx, docs)
	if err != nil {
		return ROCResult{}, err
	}
	return ComputeROC(probs, labels), nil
}

func (d *UrlDetector) predictLocked(ctx context.Context, padded [][]int) ([]float64, error) {
	const batchSize = 256
	out := make([]float64, 0, len(padded))
	for start := 0; start < len(padded); start += batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := min(start+batchSize, len(padded))
		probs := d.net.Forward(padded[start:end], false)
		out = append(out, colToSlice(probs)...)
	}
	return out, nil
}

func (d *UrlDetector) evalPass(ctx context.Context, padded [][]int, labels []float64, batchSize int) (EvalResult, error) {
	var (
		lossSum float64
		accSum  float64
		f1Sum   float64
		batches int
		seen    int
	)
	for start := 0; start < len(padded); start += batchSize {
		select {
		case <-ctx.Done():
			return EvalResult{}, ctx.Err()
		default:
		}
		end := min(start+batchSize, len(padded))
		batchDocs := padded[start:end]
		batchLabels := labels[start:end]

		probsMat := d.net.Forward(batchDocs, false)
		probs := colToSlice(probsMat)

		size := len(batchDocs)
		lossSum += nn.BCELoss(probsMat, batchLabels) * float64(size)
		accSum += Accuracy(probs, batchLabels) * float64(size)
		f1Sum += BatchF1(probs, batchLabels)
		batches++
		seen += size
	}
	if seen == 0 {
		return EvalResult{}, nil
	}
	return EvalResult{
		Loss:     lossSum / float64(seen),
		Accuracy: accSum / float64(seen),
		F1:       f1Sum / float64(batches),
	}, nil
}

func colToSlice(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}

func singleClass(labels []float64) bool {
	for _, y := range labels[1:] {
		if y != labels[0] {
			return false
		}
	}
	return true
}

func binaryLabels(labels []float64) bool {
	for _, y := range labels {
		if y != 0 && y != 1 {
			return false
		}
	}
	return true
}
