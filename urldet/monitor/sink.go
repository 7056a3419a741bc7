// Package monitor provides training run monitoring: a per-epoch scalar
// sink written under the training-logs directory and a SQLite registry of
// past runs for post-hoc comparison.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives per-epoch scalar summaries during training.
type Sink interface {
	Emit(epoch int, split string, scalars map[string]float64) error
	Close() error
}

// JSONLSink appends one JSON record per epoch and split to a run-scoped
// file under the training-logs directory.
type JSONLSink struct {
	runID string
	f     *os.File
	enc   *json.Encoder
}

type epochRecord struct {
	RunID   string             `json:"run_id"`
	Epoch   int                `json:"epoch"`
	Split   string             `json:"split"`
	Scalars map[string]float64 `json:"scalars"`
}

// NewJSONLSink creates the logs directory if absent (idempotent) and opens
// the scalar file for the given run.
func NewJSONLSink(dir, runID string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("monitor: create logs dir: %w", err)
	}
	path := filepath.Join(dir, "run-"+runID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("monitor: open scalar log: %w", err)
	}
	return &JSONLSink{runID: runID, f: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONLSink) Emit(epoch int, split string, scalars map[string]float64) error {
	return s.enc.Encode(epochRecord{
		RunID:   s.runID,
		Epoch:   epoch,
		Split:   split,
		Scalars: scalars,
	})
}

func (s *JSONLSink) Close() error { return s.f.Close() }

// NopSink discards every scalar. Used when monitoring is disabled.
type NopSink struct{}

func (NopSink) Emit(int, string, map[string]float64) error { return nil }
func (NopSink) Close() error                               { return nil }
