package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/baseline"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/detector"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/features"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/report"
)

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a trained detector against a labeled dataset",
		Long: `Evaluate loads a checkpoint and a labeled CSV dataset, runs an
evaluation-mode pass and writes a Markdown report with accuracy, F1, the
confusion matrix and the ROC curve.

Examples:
  # Evaluate a checkpoint and print the report
  urldetect evaluate --csv holdout.csv --checkpoint model.ckpt

  # Write the report to a file, with the prefix baseline included
  urldetect evaluate --csv holdout.csv --checkpoint model.ckpt \
    --output report.md --baseline`,
		RunE: runEvaluateCmd,
	}

	cmd.Flags().String("csv", "", "Dataset CSV path (required)")
	cmd.Flags().String("checkpoint", "", "Checkpoint path (required)")
	cmd.Flags().String("output", "", "Report output path (default: stdout)")
	cmd.Flags().Bool("baseline", false, "Include the radix prefix baseline (trained in-sample)")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("checkpoint")

	return cmd
}

func runEvaluateCmd(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	checkpoint, _ := cmd.Flags().GetString("checkpoint")
	det, err := detector.Load(checkpoint)
	if err != nil {
		return err
	}

	csvPath, _ := cmd.Flags().GetString("csv")
	gen := features.NewGenerator(det.VocabSize())
	urls, labels, err := gen.LoadData(csvPath, cfg.Data.URLColumnName, cfg.Data.LabelColumnName, cfg.Data.Binarize)
	if err != nil {
		return err
	}
	encoded := gen.OneHotEncoding(urls)

	ctx := cmd.Context()
	result, err := det.Evaluate(ctx, encoded, labels)
	if err != nil {
		return err
	}
	probs, err := det.PredictProba(ctx, encoded)
	if err != nil {
		return err
	}
	roc := detector.ComputeROC(probs, labels)

	ev := &report.Evaluation{
		Architecture: det.Architecture().String(),
		VocabSize:    det.VocabSize(),
		MaxLength:    det.MaxLength(),
		Samples:      len(urls),
		Result:       result,
		Confusion:    detector.ConfusionCounts(probs, labels),
		ROC:          roc,
		GeneratedAt:  time.Now(),
	}

	if withBaseline, _ := cmd.Flags().GetBool("baseline"); withBaseline {
		pc := baseline.NewPrefixClassifier()
		pc.Train(urls, labels)
		ev.BaselineROC = detector.ComputeROC(pc.ScoreAll(urls), labels)
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return report.NewWriter(out).Write(ev)
}
