package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/config"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/detector"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/features"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/monitor"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/nn"
)

// NewTrainCmd creates the train command.
func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a URL detector on a CSV dataset",
		Long: `Train loads a labeled URL dataset, shuffles it, encodes each URL as a
character code sequence and fits the selected architecture. Per-epoch
scalars are written to the training-logs directory and the run registry;
the trained weights are saved as a checkpoint.

Examples:
  # Train the convolutional network with defaults
  urldetect train --csv datasets/url_data.csv

  # Train the linear classifier for three epochs
  urldetect train --csv datasets/url_data.csv --arch simple_nn --epochs 3`,
		RunE: runTrainCmd,
	}

	cmd.Flags().String("csv", "", "Dataset CSV path (required)")
	cmd.Flags().String("arch", "", "Architecture: simple_nn or big_conv_nn")
	cmd.Flags().Int("epochs", 0, "Number of training epochs")
	cmd.Flags().Int("batch-size", 0, "Mini-batch size")
	cmd.Flags().Int64("seed", 0, "Seed for shuffling and weight init (0 = random)")
	cmd.Flags().String("logs-dir", "", "Training logs directory")
	cmd.Flags().String("checkpoint", "", "Checkpoint output path")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runTrainCmd(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyTrainFlags(cmd, cfg)

	csvPath, _ := cmd.Flags().GetString("csv")
	arch, err := nn.ParseArchitecture(cfg.Detector.Architecture)
	if err != nil {
		return err
	}

	gen := features.NewGenerator(cfg.Detector.VocabSize)
	urls, labels, err := gen.LoadData(csvPath, cfg.Data.URLColumnName, cfg.Data.LabelColumnName, cfg.Data.Binarize)
	if err != nil {
		return err
	}

	// The validation split is a deterministic tail slice, so the dataset
	// must be shuffled before fitting.
	seed := cfg.Training.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	shuffleDataset(urls, labels, seed)

	encoded := gen.OneHotEncoding(urls)

	detOpts := []detector.Option{detector.WithSeed(seed)}
	if cfg.Training.LearningRate > 0 {
		detOpts = append(detOpts, detector.WithOptimizer(nn.NewAdam(cfg.Training.LearningRate)))
	}
	det, err := detector.New(arch, cfg.Detector.VocabSize, cfg.Detector.MaxLength, detOpts...)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	store, err := monitor.OpenStore(cfg.Training.RunDBPath, monitor.DefaultStoreOptions())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateRun(cmd.Context(), monitor.Run{
		ID:           runID,
		Architecture: arch.String(),
		VocabSize:    cfg.Detector.VocabSize,
		MaxLength:    cfg.Detector.MaxLength,
		Epochs:       cfg.Training.Epochs,
		StartedAt:    time.Now(),
	}); err != nil {
		return err
	}

	jsonl, err := monitor.NewJSONLSink(cfg.Training.LogsDir, runID)
	if err != nil {
		return err
	}
	defer jsonl.Close()
	sink := monitor.MultiSink{jsonl, monitor.NewStoreSink(store, runID)}

	if err := det.Fit(cmd.Context(), encoded, labels, detector.FitOptions{
		Epochs:          cfg.Training.Epochs,
		BatchSize:       cfg.Training.BatchSize,
		Verbose:         cfg.Training.Verbose,
		ValidationSplit: cfg.Training.ValidationSplit,
		LogDir:          cfg.Training.LogsDir,
		Sink:            sink,
		RunID:           runID,
	}); err != nil {
		return err
	}

	if err := store.FinishRun(cmd.Context(), runID, time.Now()); err != nil {
		return err
	}

	if err := det.Save(cfg.Training.CheckpointPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s finished; checkpoint written to %s\n",
		runID, cfg.Training.CheckpointPath)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path)
}

// applyTrainFlags overlays explicitly-set flags onto the loaded config.
func applyTrainFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("arch"); v != "" {
		cfg.Detector.Architecture = v
	}
	if v, _ := cmd.Flags().GetInt("epochs"); v > 0 {
		cfg.Training.Epochs = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.Training.BatchSize = v
	}
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		cfg.Training.Seed = v
	}
	if v, _ := cmd.Flags().GetString("logs-dir"); v != "" {
		cfg.Training.LogsDir = v
	}
	if v, _ := cmd.Flags().GetString("checkpoint"); v != "" {
		cfg.Training.CheckpointPath = v
	}
}

// shuffleDataset shuffles URLs and labels in lockstep.
func shuffleDataset(urls []string, labels []float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(urls), func(i, j int) {
		urls[i], urls[j] = urls[j], urls[i]
		labels[i], labels[j] = labels[j], labels[i]
	})
}
