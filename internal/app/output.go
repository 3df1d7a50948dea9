package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/RyanBlaney/genre-mood-classifier/internal/curation"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
	"github.com/RyanBlaney/genre-mood-classifier/internal/training"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Printer writes human-readable progress and summaries
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter creates a printer for w. Colour is used only when w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, colorize: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) color(color, s string) string {
	if !p.colorize {
		return s
	}
	return color + s + ansiReset
}

// CurationStarted announces a curation run
func (p *Printer) CurationStarted() {
	p.printf("🔍 Cleaning dataset...\n\n")
}

// CurationOutcome prints the verdict for one file
func (p *Printer) CurationOutcome(o curation.Outcome) {
	if o.Status == curation.StatusSkipped {
		return
	}

	p.printf("📌 Checking: %s\n", o.Track.Path)
	if o.Status != curation.StatusRejected {
		return
	}

	filename := filepath.Base(o.Track.Path)
	if o.Reason == curation.ReasonDuplicate {
		p.printf("%s\n", p.color(ansiRed, fmt.Sprintf("❌ Duplicate of %s → removed: %s", o.DuplicateOf, filename)))
		return
	}
	p.printf("%s\n", p.color(ansiRed, fmt.Sprintf("❌ %s → removed: %s", o.Reason.Title(), filename)))
}

// CurationFinished prints the curation totals and a per-reason table
func (p *Printer) CurationFinished(report *curation.Report, trackList string) {
	p.printf("\n🎉 Cleaning finished!\n")
	p.printf("%s\n", p.color(ansiGreen, fmt.Sprintf("✅ Total clean audio files: %d", len(report.Accepted))))
	p.printf("📄 Saved list to: %s\n\n", trackList)

	rows := [][]string{
		{"Checked", fmt.Sprint(report.Checked())},
		{"Accepted", fmt.Sprint(len(report.Accepted))},
	}
	for _, reason := range []curation.Reason{
		curation.ReasonCorrupted,
		curation.ReasonSilent,
		curation.ReasonWrongDuration,
		curation.ReasonDuplicate,
	} {
		rows = append(rows, []string{"Rejected: " + reason.Title(), fmt.Sprint(report.Rejected[reason])})
	}
	rows = append(rows, []string{"Skipped (not audio)", fmt.Sprint(report.Skipped)})

	p.printf("%s\n", renderTable([]string{"Files", "Count"}, rows, []text.Align{text.AlignLeft, text.AlignRight}))
}

// ExtractionStarted announces batch feature extraction
func (p *Printer) ExtractionStarted() {
	p.printf("\n🎵 Extracting audio features...\n")
}

// ExtractionResult prints the outcome for one track
func (p *Printer) ExtractionResult(e training.Extraction) {
	if e.Err != nil {
		p.printf("%s\n", p.color(ansiRed, fmt.Sprintf("❌ Error: %s → %v", e.Track.Path, e.Err)))
		return
	}
	p.printf("✅ Done: %s\n", e.Track.Path)
}

// ExtractionFinished prints where the feature table went
func (p *Printer) ExtractionFinished(report *training.ExtractionReport, featureTable string) {
	p.printf("\n🎉 Features saved to: %s\n", featureTable)
	p.printf("🎧 Total processed tracks: %d\n", report.Processed)
	if report.CacheHits > 0 {
		p.printf("   (%d reused from the feature cache)\n", report.CacheHits)
	}
	if n := len(report.Failures); n > 0 {
		p.printf("%s\n", p.color(ansiYellow, fmt.Sprintf("⚠️  %d tracks failed and were skipped", n)))
	}
}

// DatasetLoaded prints the shape of the feature table
func (p *Printer) DatasetLoaded(rows, cols int) {
	p.printf("📂 Loaded dataset: (%d, %d)\n", rows, cols+1)
}

// TrainingStarted announces model fitting
func (p *Printer) TrainingStarted() {
	p.printf("🚀 Training model...\n")
}

// TrainingFinished prints the split shapes, evaluation and artifact paths
func (p *Printer) TrainingFinished(result *training.Result) {
	p.printf("📊 Train shape: (%d, %d)\n", result.TrainRows, result.Features)
	p.printf("📊 Test shape: (%d, %d)\n", result.TestRows, result.Features)

	if result.TestRows > 0 {
		p.printf("\n%s\n", p.color(ansiGreen, fmt.Sprintf("🎯 Accuracy: %.4f", result.Report.Accuracy)))
		p.printf("\n📘 Classification Report:\n")
		p.printf("%s\n", renderClassificationReport(result.Report))
	}

	p.printf("\n💾 Model saved to: %s\n", result.ModelPath)
	p.printf("💾 Scaler saved to: %s\n", result.ScalerPath)
}

// PredictionStarted announces a single-track prediction
func (p *Printer) PredictionStarted() {
	p.printf("🎵 Predicting genre...\n")
}

// Prediction prints a predicted genre and its mood
func (p *Printer) Prediction(genre, displayGenre, moodPhrase string) {
	p.printf("🎶 Predicted Genre: %s\n", genre)
	p.printf("%s\n", p.color(ansiGreen, fmt.Sprintf("🎧 %s → %s", displayGenre, moodPhrase)))
}

// MoodTable prints the label to mood mapping
func (p *Printer) MoodTable(t mood.Table) {
	var rows [][]string
	for _, label := range t.Labels() {
		rows = append(rows, []string{label, t.Moods[label]})
	}
	rows = append(rows, []string{"(other)", t.Fallback})
	p.printf("%s\n", renderTable([]string{"Genre", "Mood"}, rows, nil))
}

// Warn prints a highlighted warning line
func (p *Printer) Warn(format string, args ...any) {
	p.printf("%s\n", p.color(ansiYellow, "⚠️  "+fmt.Sprintf(format, args...)))
}

func renderClassificationReport(r *training.ClassificationReport) string {
	metricRow := func(m training.ClassMetrics) []string {
		return []string{
			m.Label,
			fmt.Sprintf("%.2f", m.Precision),
			fmt.Sprintf("%.2f", m.Recall),
			fmt.Sprintf("%.2f", m.F1),
			fmt.Sprint(m.Support),
		}
	}

	classes := append([]training.ClassMetrics(nil), r.Classes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i].Label < classes[j].Label })

	rows := make([][]string, 0, len(classes)+3)
	for _, m := range classes {
		rows = append(rows, metricRow(m))
	}
	rows = append(rows,
		[]string{"accuracy", "", "", fmt.Sprintf("%.2f", r.Accuracy), fmt.Sprint(r.Total)},
		metricRow(r.MacroAvg),
		metricRow(r.WeightedAvg),
	)

	right := []text.Align{text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignRight, text.AlignRight}
	return renderTable([]string{"", "precision", "recall", "f1-score", "support"}, rows, right)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return strings.TrimRight(tw.Render(), "\n")
}
