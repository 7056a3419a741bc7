package features

import (
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// LoadData reads a CSV dataset with a header row and returns the URL and
// label columns, order preserved. Duplicate URLs are dropped (first
// occurrence wins) using a bitmap of 32-bit URL hashes. Malformed rows are
// skipped and counted, not fatal.
//
// When binarize is true the label column is treated as categorical text:
// "good"/"benign"/"0" map to 0, everything else to 1. Otherwise the label
// must parse as a float.
func (g *Generator) LoadData(path, urlCol, labelCol string, binarize bool) ([]string, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("features: open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("features: read header: %w", err)
	}
	urlIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case urlCol:
			urlIdx = i
		case labelCol:
			labelIdx = i
		}
	}
	if urlIdx < 0 || labelIdx < 0 {
		return nil, nil, fmt.Errorf("features: columns %q and %q not found in header %v", urlCol, labelCol, header)
	}

	var (
		urls    []string
		labels  []float64
		seen    = roaring.New()
		skipped int
		dupes   int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(rec) <= urlIdx || len(rec) <= labelIdx {
			skipped++
			continue
		}

		url := strings.TrimSpace(rec[urlIdx])
		if url == "" {
			skipped++
			continue
		}

		label, err := parseLabel(rec[labelIdx], binarize)
		if err != nil {
			skipped++
			continue
		}

		// 32-bit keys tolerate the odd hash collision: a colliding pair
		// drops one distinct URL as a false duplicate.
		h := fnv.New32a()
		h.Write([]byte(url))
		key := h.Sum32()
		if seen.Contains(key) {
			dupes++
			continue
		}
		seen.Add(key)

		urls = append(urls, url)
		labels = append(labels, label)
	}

	slog.Info("dataset loaded",
		"path", path,
		"rows", len(urls),
		"skipped", skipped,
		"duplicates", dupes)
	return urls, labels, nil
}

func parseLabel(raw string, binarize bool) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if binarize {
		switch s {
		case "good", "benign", "0":
			return 0, nil
		default:
			return 1, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v != 0 {
		v = 1
	}
	return v, nil
}
