package monitor

import (
	"context"
	"errors"
)

// StoreSink adapts a RunStore to the Sink interface so per-epoch scalars
// land in the run registry as they are emitted.
type StoreSink struct {
	store *RunStore
	runID string
}

// NewStoreSink creates a sink recording into the given run. The store's
// lifetime is owned by the caller; Close is a no-op.
func NewStoreSink(store *RunStore, runID string) *StoreSink {
	return &StoreSink{store: store, runID: runID}
}

func (s *StoreSink) Emit(epoch int, split string, scalars map[string]float64) error {
	ctx := context.Background()
	for name, value := range scalars {
		if err := s.store.RecordMetric(ctx, Metric{
			RunID: s.runID,
			Epoch: epoch,
			Split: split,
			Name:  name,
			Value: value,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) Close() error { return nil }

// MultiSink fans every emission out to all member sinks.
type MultiSink []Sink

func (m MultiSink) Emit(epoch int, split string, scalars map[string]float64) error {
	for _, s := range m {
		if err := s.Emit(epoch, split, scalars); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
