// Package features turns raw URL datasets into padded integer code
// sequences for the detector: CSV loading, character-level encoding and
// fixed-length padding.
package features

import (
	"strings"

	"github.com/sourcegraph/conc/iter"
)

// charset is the recognized URL alphabet. Code 0 is reserved for padding;
// characters map to 1-based positions in this string. Uppercase input is
// folded to lowercase before lookup.
const charset = "abcdefghijklmnopqrstuvwxyz0123456789-._~:/?#[]@!$&'()*+,;=%<>\"\\^`{|} "

var charCodes = buildCharCodes()

func buildCharCodes() map[rune]int {
	m := make(map[rune]int, len(charset))
	for i, r := range charset {
		m[r] = i + 1
	}
	return m
}

// Generator produces encoded documents and labels from raw URL datasets.
// The zero value is not usable; call NewGenerator.
type Generator struct {
	vocabSize int
}

// NewGenerator creates a feature generator for the given alphabet size.
// Codes are capped below vocabSize; unknown runes share the overflow code
// vocabSize-1.
func NewGenerator(vocabSize int) *Generator {
	return &Generator{vocabSize: vocabSize}
}

// OneHotEncoding encodes each URL as a sequence of integer character codes.
// Encoding is stateless per URL, so the batch is encoded in parallel.
func (g *Generator) OneHotEncoding(urls []string) [][]int {
	return iter.Map(urls, func(u *string) []int {
		return g.encode(*u)
	})
}

func (g *Generator) encode(url string) []int {
	lower := strings.ToLower(url)
	out := make([]int, 0, len(lower))
	for _, r := range lower {
		code, ok := charCodes[r]
		if !ok || code >= g.vocabSize {
			code = g.vocabSize - 1
		}
		out = append(out, code)
	}
	return out
}

// PadSequences right-pads every document with zeros to exactly maxLen
// entries; longer documents are truncated to their first maxLen codes.
func PadSequences(docs [][]int, maxLen int) [][]int {
	out := make([][]int, len(docs))
	for i, doc := range docs {
		padded := make([]int, maxLen)
		copy(padded, doc) // truncates when len(doc) > maxLen
		out[i] = padded
	}
	return out
}
