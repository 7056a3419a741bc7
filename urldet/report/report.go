// Package report renders evaluation results as a Markdown document:
// hyperparameters, metrics, the whole-set confusion matrix, AUC and sampled
// ROC points, optionally against the prefix baseline.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/SylvestreSakti/malicious-urls-detection/urldet/detector"
)

// Evaluation collects everything one report covers.
type Evaluation struct {
	Architecture string
	VocabSize    int
	MaxLength    int
	Samples      int

	Result    detector.EvalResult
	Confusion detector.Confusion
	ROC       detector.ROCResult

	// BaselineROC is optional; a nil FPR slice omits the section.
	BaselineROC detector.ROCResult

	GeneratedAt time.Time
}

// Writer outputs evaluation reports in Markdown format.
type Writer struct {
	output io.Writer
}

// NewWriter creates a report writer targeting output.
func NewWriter(output io.Writer) *Writer {
	return &Writer{output: output}
}

// Write renders the full report.
func (w *Writer) Write(ev *Evaluation) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("URL Detector Evaluation")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Architecture", "`" + ev.Architecture + "`"},
			{"Vocabulary size", strconv.Itoa(ev.VocabSize)},
			{"Max length", strconv.Itoa(ev.MaxLength)},
			{"Samples", strconv.Itoa(ev.Samples)},
			{"Generated", ev.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")

	w.writeMetrics(md, ev)
	w.writeConfusion(md, ev)
	w.writeROC(md, ev)

	return md.Build()
}

func (w *Writer) writeMetrics(md *markdown.Markdown, ev *Evaluation) {
	md.H2("Metrics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Loss", formatFloat(ev.Result.Loss)},
			{"Accuracy", fmt.Sprintf("%.2f%%", ev.Result.Accuracy*100)},
			{"F1 (batch-averaged)", formatFloat(ev.Result.F1)},
			{"F1 (whole set)", formatFloat(ev.Confusion.F1())},
			{"Precision", formatFloat(ev.Confusion.Precision())},
			{"Recall", formatFloat(ev.Confusion.Recall())},
			{"ROC AUC", formatFloat(ev.ROC.AUC)},
		},
	})
	md.PlainText("")
}

func (w *Writer) writeConfusion(md *markdown.Markdown, ev *Evaluation) {
	md.H2("Confusion Matrix")
	md.PlainText("")
	c := ev.Confusion
	md.Table(markdown.TableSet{
		Header: []string{"", "Predicted benign", "Predicted malicious"},
		Rows: [][]string{
			{"Actual benign", strconv.Itoa(c.TN), strconv.Itoa(c.FP)},
			{"Actual malicious", strconv.Itoa(c.FN), strconv.Itoa(c.TP)},
		},
	})
	md.PlainText("")
}

// rocSampleCount bounds the number of curve points in the report table.
const rocSampleCount = 20

func (w *Writer) writeROC(md *markdown.Markdown, ev *Evaluation) {
	md.H2("ROC Curve")
	md.PlainText("")
	md.PlainText(fmt.Sprintf("Area under curve: **%s**", formatFloat(ev.ROC.AUC)))
	md.PlainText("")

	rows := sampleCurve(ev.ROC, rocSampleCount)
	if len(rows) > 0 {
		md.Table(markdown.TableSet{
			Header: []string{"Threshold", "FPR", "TPR"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if ev.BaselineROC.FPR != nil {
		md.H2("Prefix Baseline")
		md.PlainText("")
		md.PlainText(fmt.Sprintf("Radix prefix classifier AUC: **%s** (neural: **%s**)",
			formatFloat(ev.BaselineROC.AUC), formatFloat(ev.ROC.AUC)))
		md.PlainText("")
	}
}

func sampleCurve(roc detector.ROCResult, maxRows int) [][]string {
	n := len(roc.FPR)
	if n == 0 {
		return nil
	}
	step := 1
	if n > maxRows {
		step = n / maxRows
	}
	var rows [][]string
	for i := 0; i < n; i += step {
		threshold := ""
		if i < len(roc.Thresholds) {
			threshold = formatFloat(roc.Thresholds[i])
		}
		rows = append(rows, []string{threshold, formatFloat(roc.FPR[i]), formatFloat(roc.TPR[i])})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
