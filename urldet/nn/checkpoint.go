package nn

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

const checkpointVersion = 1

// Tensor is the serialized form of a parameter or running statistic.
type Tensor struct {
	Rows, Cols int
	Data       []float64
}

// Checkpoint is the on-disk snapshot of a trained network: hyperparameters
// plus every trainable tensor and batch-norm running statistic.
type Checkpoint struct {
	Version      int
	Architecture string
	VocabSize    int
	MaxLength    int
	Tensors      map[string]Tensor
}

// SaveCheckpoint writes the network weights and hyperparameters to path.
// The file is written atomically via a temp file rename.
func SaveCheckpoint(path string, net Network) error {
	ck := Checkpoint{
		Version:      checkpointVersion,
		Architecture: net.Architecture().String(),
		VocabSize:    net.VocabSize(),
		MaxLength:    net.MaxLength(),
		Tensors:      make(map[string]Tensor),
	}
	for _, p := range net.Params() {
		rows, cols := p.Value.Dims()
		data := make([]float64, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				data[i*cols+j] = p.Value.At(i, j)
			}
		}
		ck.Tensors[p.Name] = Tensor{Rows: rows, Cols: cols, Data: data}
	}
	for name, bn := range net.batchNorms() {
		ck.Tensors[name+"/running_mean"] = Tensor{Rows: 1, Cols: len(bn.RunningMean), Data: append([]float64(nil), bn.RunningMean...)}
		ck.Tensors[name+"/running_var"] = Tensor{Rows: 1, Cols: len(bn.RunningVar), Data: append([]float64(nil), bn.RunningVar...)}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("nn: create checkpoint: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(ck); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("nn: encode checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("nn: close checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint rebuilds a network from a checkpoint file. The returned
// network is in evaluation-ready state.
func LoadCheckpoint(path string) (Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nn: open checkpoint: %w", err)
	}
	defer f.Close()

	var ck Checkpoint
	if err := gob.NewDecoder(f).Decode(&ck); err != nil {
		return nil, fmt.Errorf("nn: decode checkpoint: %w", err)
	}
	if ck.Version != checkpointVersion {
		return nil, fmt.Errorf("nn: unsupported checkpoint version %d", ck.Version)
	}

	arch, err := ParseArchitecture(ck.Architecture)
	if err != nil {
		return nil, err
	}
	net, err := Build(arch, Config{VocabSize: ck.VocabSize, MaxLength: ck.MaxLength})
	if err != nil {
		return nil, err
	}

	for _, p := range net.Params() {
		t, ok := ck.Tensors[p.Name]
		if !ok {
			return nil, fmt.Errorf("nn: checkpoint missing tensor %q", p.Name)
		}
		rows, cols := p.Value.Dims()
		if t.Rows != rows || t.Cols != cols {
			return nil, fmt.Errorf("nn: tensor %q has shape %dx%d, want %dx%d",
				p.Name, t.Rows, t.Cols, rows, cols)
		}
		p.Value.Copy(mat.NewDense(rows, cols, t.Data))
	}
	for name, bn := range net.batchNorms() {
		if t, ok := ck.Tensors[name+"/running_mean"]; ok {
			copy(bn.RunningMean, t.Data)
		}
		if t, ok := ck.Tensors[name+"/running_var"]; ok {
			copy(bn.RunningVar, t.Data)
		}
	}
	return net, nil
}
