// Package main provides the entry point for the urldetect CLI.
//
// urldetect trains and evaluates a character-level neural classifier that
// labels URLs as malicious or benign.
//
// Usage:
//
//	urldetect train --csv dataset.csv
//	urldetect evaluate --csv holdout.csv --checkpoint model.ckpt
//	urldetect predict --checkpoint model.ckpt https://example.com
//
// See --help for all available options.
package main

// main is the entry point for urldetect.
func main() {
	Execute()
}
