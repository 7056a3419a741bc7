// Package main provides the entry point for the urldetect CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	internal "github.com/SylvestreSakti/malicious-urls-detection/urldet"
)

// NewRootCmd creates the root command for urldetect.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urldetect",
		Short: "Character-level neural malicious URL detector",
		Long: `urldetect trains and evaluates a character-level neural classifier
that labels URLs as malicious or benign.

Two architectures are available: a single-embedding linear classifier
(simple_nn) and a multi-branch convolutional network (big_conv_nn) after
Saxe et al., eXpose.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewTrainCmd())
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewPredictCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	logger := internal.GetLogger()
	if err := NewRootCmd().Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging raises the slog level when verbose is requested.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
