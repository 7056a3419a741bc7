package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixClassifierVotesByLabelFrequency(t *testing.T) {
	c := NewPrefixClassifier()
	c.Train([]string{
		"http://evil.example.com/a",
		"http://evil.example.com/b",
		"http://evil.example.com/c",
		"http://good.example.org/a",
		"http://good.example.org/b",
	}, []float64{1, 1, 0, 0, 0})

	assert.Greater(t, c.Score("http://evil.example.com/new"), 0.5,
		"majority-malicious prefix scores above a coin flip")
	assert.Less(t, c.Score("http://good.example.org/new"), 0.5)
}

func TestPrefixClassifierUnseenPrefix(t *testing.T) {
	c := NewPrefixClassifier()
	c.Train([]string{"http://known.com/x"}, []float64{1})

	assert.Equal(t, 0.5, c.Score("ftp://never-seen.net/path"))
}

func TestPrefixClassifierFoldsCase(t *testing.T) {
	c := NewPrefixClassifier()
	c.Train([]string{"HTTP://MIXED.CASE.COM/PAGE"}, []float64{1})

	assert.Equal(t, c.Score("http://mixed.case.com/page"), c.Score("HTTP://MIXED.CASE.COM/PAGE"))
	assert.Equal(t, 1.0, c.Score("http://mixed.case.com/other"))
}

func TestPrefixClassifierLongestPrefixWins(t *testing.T) {
	c := NewPrefixClassifier()
	// shared 8-char prefix "http://s", diverging at the 12-char cut
	c.Train([]string{
		"http://safe.example.com/a",
		"http://scam.example.net/a",
	}, []float64{0, 1})

	assert.Equal(t, 0.0, c.Score("http://safe.example.com/b"))
	assert.Equal(t, 1.0, c.Score("http://scam.example.net/b"))
}

func TestPrefixClassifierShortURLsSkipLongCuts(t *testing.T) {
	c := NewPrefixClassifier()
	c.Train([]string{"http://a"}, []float64{1})
	assert.Greater(t, c.Len(), 0)
	assert.Equal(t, 1.0, c.Score("http://a"))
}

func TestScoreAll(t *testing.T) {
	c := NewPrefixClassifier()
	c.Train([]string{"http://bad.example.com/x"}, []float64{1})

	scores := c.ScoreAll([]string{"http://bad.example.com/y", "zzz://unknown"})
	require.Len(t, scores, 2)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 0.5, scores[1])
}
