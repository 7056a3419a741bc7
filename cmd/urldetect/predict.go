package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/detector"
	"github.com/SylvestreSakti/malicious-urls-detection/urldet/features"
)

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [urls...]",
		Short: "Score URLs with a trained detector",
		Long: `Predict loads a checkpoint and prints the malicious-class probability
for each URL, one per line.

Examples:
  # Score URLs given as arguments
  urldetect predict --checkpoint model.ckpt http://phish.example/login

  # Score a file with one URL per line
  urldetect predict --checkpoint model.ckpt --input urls.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runPredictCmd,
	}

	cmd.Flags().String("checkpoint", "", "Checkpoint path (required)")
	cmd.Flags().String("input", "", "File with one URL per line")
	_ = cmd.MarkFlagRequired("checkpoint")

	return cmd
}

func runPredictCmd(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	setupLogging(verbose)

	urls := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		fromFile, err := readURLFile(path)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given; pass them as arguments or via --input")
	}

	checkpoint, _ := cmd.Flags().GetString("checkpoint")
	det, err := detector.Load(checkpoint)
	if err != nil {
		return err
	}

	gen := features.NewGenerator(det.VocabSize())
	probs, err := det.PredictProba(cmd.Context(), gen.OneHotEncoding(urls))
	if err != nil {
		return err
	}
	for i, u := range urls {
		fmt.Fprintf(cmd.OutOrStdout(), "%.6f\t%s\n", probs[i], u)
	}
	return nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}
