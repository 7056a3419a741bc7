// Package baseline provides a non-neural URL classifier used as a
// comparison line in evaluation reports: a radix tree over URL prefixes
// voting by label frequency.
package baseline

import (
	"strings"

	radix "github.com/armon/go-radix"
)

// prefixLengths are the cut points inserted per training URL. Longer
// prefixes win at prediction time through longest-prefix matching.
var prefixLengths = []int{8, 12, 16, 24, 32}

type labelCounts struct {
	benign    int
	malicious int
}

// PrefixClassifier predicts maliciousness by longest-prefix vote over the
// training URLs.
type PrefixClassifier struct {
	tree *radix.Tree
}

func NewPrefixClassifier() *PrefixClassifier {
	return &PrefixClassifier{tree: radix.New()}
}

// Train inserts label counts at fixed prefix cut points of every URL.
func (c *PrefixClassifier) Train(urls []string, labels []float64) {
	for i, url := range urls {
		u := strings.ToLower(url)
		for _, n := range prefixLengths {
			if n > len(u) {
				break
			}
			prefix := u[:n]
			var counts *labelCounts
			if v, ok := c.tree.Get(prefix); ok {
				counts = v.(*labelCounts)
			} else {
				counts = &labelCounts{}
				c.tree.Insert(prefix, counts)
			}
			if labels[i] == 1 {
				counts.malicious++
			} else {
				counts.benign++
			}
		}
	}
}

// Score returns the malicious fraction under the longest matching prefix,
// or 0.5 when no prefix matches.
func (c *PrefixClassifier) Score(url string) float64 {
	_, v, ok := c.tree.LongestPrefix(strings.ToLower(url))
	if !ok {
		return 0.5
	}
	counts := v.(*labelCounts)
	total := counts.benign + counts.malicious
	if total == 0 {
		return 0.5
	}
	return float64(counts.malicious) / float64(total)
}

// ScoreAll scores every URL.
func (c *PrefixClassifier) ScoreAll(urls []string) []float64 {
	out := make([]float64, len(urls))
	for i, u := range urls {
		out[i] = c.Score(u)
	}
	return out
}

// Len reports the number of stored prefixes.
func (c *PrefixClassifier) Len() int { return c.tree.Len() }
