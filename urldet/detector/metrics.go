package detector

import "math"

// metricEps prevents division by zero on batches with no positive
// predictions or no actual positives.
const metricEps = 1e-7

// BatchF1 computes the F1 score of one batch from rounded, clipped
// predictions: precision = TP/(TP+FP+eps), recall = TP/(TP+FN+eps),
// F1 = 2PR/(P+R+eps). This is the batch-wise approximation tracked during
// training; averaging it across batches is biased relative to a whole-set
// F1, which ConfusionCounts provides.
func BatchF1(probs, labels []float64) float64 {
	var tp, predicted, possible float64
	for i, p := range probs {
		pr := math.Round(clip01(p))
		y := math.Round(clip01(labels[i]))
		tp += math.Round(clip01(y * p))
		predicted += pr
		possible += y
	}
	precision := tp / (predicted + metricEps)
	recall := tp / (possible + metricEps)
	return 2 * precision * recall / (precision + recall + metricEps)
}

// Accuracy is the fraction of thresholded predictions matching the labels.
func Accuracy(probs, labels []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	var correct int
	for i, p := range probs {
		if math.Round(clip01(p)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

// Confusion holds whole-set confusion counts at the 0.5 threshold.
type Confusion struct {
	TP, FP, TN, FN int
}

// ConfusionCounts accumulates confusion counts over the full prediction set.
func ConfusionCounts(probs, labels []float64) Confusion {
	var c Confusion
	for i, p := range probs {
		positive := math.Round(clip01(p)) == 1
		actual := labels[i] == 1
		switch {
		case positive && actual:
			c.TP++
		case positive && !actual:
			c.FP++
		case !positive && actual:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

// Precision returns TP/(TP+FP), zero when undefined.
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP/(TP+FN), zero when undefined.
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 is the exact whole-set F1 over the counts, zero when undefined.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
