package preprocessing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrNotFitted is returned when transforming with an unfitted scaler
var ErrNotFitted = errors.New("scaler has not been fitted")

// StandardScaler standardises features to zero mean and unit variance using
// statistics learned from a fitting set. Features with no variance are only
// centred.
type StandardScaler struct {
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"var"`
	Scale    []float64 `json:"scale"`
	Samples  int       `json:"n_samples_seen"`
}

// NewStandardScaler creates an unfitted scaler
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns the per-feature population mean and standard deviation of rows
func (s *StandardScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("cannot fit scaler on zero rows")
	}
	width := len(rows[0])
	if width == 0 {
		return fmt.Errorf("cannot fit scaler on zero-width rows")
	}
	for i, row := range rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}

	mean := make([]float64, width)
	variance := make([]float64, width)
	scale := make([]float64, width)
	column := make([]float64, len(rows))

	for j := range width {
		for i, row := range rows {
			column[i] = row[j]
		}
		mean[j], variance[j] = stat.PopMeanVariance(column, nil)
		if len(rows) == 1 {
			variance[j] = 0 // gonum divides by n-1 before rescaling
		}

		scale[j] = math.Sqrt(variance[j])
		if scale[j] < 10*epsilon {
			scale[j] = 1
		}
	}

	s.Mean, s.Variance, s.Scale, s.Samples = mean, variance, scale, len(rows)
	return nil
}

// epsilon is the float64 machine epsilon
const epsilon = 2.220446049250313e-16

// Fitted reports whether Fit has run or a fitted scaler was loaded
func (s *StandardScaler) Fitted() bool {
	return s != nil && len(s.Mean) > 0
}

// NumFeatures returns the width the scaler was fitted on
func (s *StandardScaler) NumFeatures() int {
	return len(s.Mean)
}

// TransformRow standardises one row
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("row has %d features, scaler expects %d", len(row), len(s.Mean))
	}

	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform standardises every row
func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits on rows and returns them standardised
func (s *StandardScaler) FitTransform(rows [][]float64) ([][]float64, error) {
	if err := s.Fit(rows); err != nil {
		return nil, err
	}
	return s.Transform(rows)
}

// Validate checks a scaler restored from storage is internally consistent
func (s *StandardScaler) Validate() error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	for j, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler feature %d has invalid scale %v", j, sc)
		}
	}
	return nil
}
