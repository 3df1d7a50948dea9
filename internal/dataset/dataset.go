package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

// Dataset is a feature table: one labelled feature vector per track
type Dataset struct {
	Labels   []string
	Features [][]float64
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Width returns the number of features per row, or 0 when empty
func (d *Dataset) Width() int {
	if len(d.Features) == 0 {
		return 0
	}
	return len(d.Features[0])
}

// Add appends one row
func (d *Dataset) Add(label string, features []float64) {
	d.Labels = append(d.Labels, label)
	d.Features = append(d.Features, features)
}

// Classes returns the distinct labels in sorted order
func (d *Dataset) Classes() []string {
	classes := slices.Clone(d.Labels)
	slices.Sort(classes)
	return slices.Compact(classes)
}

// ClassCounts returns the number of rows per label
func (d *Dataset) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, l := range d.Labels {
		counts[l]++
	}
	return counts
}

// Subset returns the rows at indices, sharing the feature slices
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{
		Labels:   make([]string, len(indices)),
		Features: make([][]float64, len(indices)),
	}
	for i, idx := range indices {
		out.Labels[i] = d.Labels[idx]
		out.Features[i] = d.Features[idx]
	}
	return out
}

// Validate checks that every row has a label and the same width
func (d *Dataset) Validate() error {
	if len(d.Labels) != len(d.Features) {
		return fmt.Errorf("dataset has %d labels but %d feature rows", len(d.Labels), len(d.Features))
	}
	width := d.Width()
	for i, row := range d.Features {
		if d.Labels[i] == "" {
			return fmt.Errorf("row %d has no label", i)
		}
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	return nil
}

// Header returns the CSV header for rows of width features
func Header(width int) []string {
	header := make([]string, 0, width+1)
	header = append(header, "label")
	for i := range width {
		header = append(header, "f"+strconv.Itoa(i))
	}
	return header
}

// WriteCSV writes d as label,f0..fN-1, replacing path atomically
func WriteCSV(path string, d *Dataset) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feature table directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".features-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary feature table: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, d); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync feature table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close feature table: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish feature table: %w", err)
	}
	return nil
}

// Write encodes d as CSV to w
func Write(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(d.Width())); err != nil {
		return fmt.Errorf("failed to write feature table header: %w", err)
	}

	record := make([]string, d.Width()+1)
	for i, row := range d.Features {
		record[0] = d.Labels[i]
		for j, v := range row {
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write feature table row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush feature table: %w", err)
	}
	return nil
}

// ReadCSV loads a feature table written by WriteCSV
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature table: %w", err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Read decodes a CSV feature table
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read feature table header: %w", err)
	}
	if len(header) < 2 || header[0] != "label" {
		return nil, fmt.Errorf("feature table header must start with label and at least one feature")
	}
	width := len(header) - 1

	d := &Dataset{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feature table line %d: %w", line, err)
		}
		if record[0] == "" {
			return nil, fmt.Errorf("feature table line %d has no label", line)
		}

		row := make([]float64, width)
		for j := range row {
			row[j], err = strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("feature table line %d column %s: %w", line, header[j+1], err)
			}
		}
		d.Add(record[0], row)
	}

	return d, nil
}
