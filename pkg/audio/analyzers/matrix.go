package analyzers

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ToDense copies a row-major matrix into a gonum dense matrix
func ToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data)
}

// ApplyBank projects every frame (row) of frames through bank, returning a
// frames x bank-rows matrix.
func ApplyBank(frames [][]float64, bank *mat.Dense) *mat.Dense {
	src := ToDense(frames)
	if src == nil {
		return nil
	}
	var out mat.Dense
	out.Mul(src, bank.T())
	return &out
}

// ColumnMeans averages every column, i.e. every feature over all frames
func ColumnMeans(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	means := make([]float64, cols)
	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, m)
		means[j] = stat.Mean(col, nil)
	}
	return means
}

// NormalizeRows scales every row to unit norm of order p (1, 2 or
// math.Inf(1)). Rows whose norm is zero are left untouched.
func NormalizeRows(m *mat.Dense, p float64) {
	rows, _ := m.Dims()
	for i := range rows {
		row := m.RawRowView(i)
		if norm := rowNorm(row, p); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
}

func rowNorm(row []float64, p float64) float64 {
	if math.IsInf(p, 1) {
		maxAbs := 0.0
		for _, v := range row {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
		return maxAbs
	}
	return floats.Norm(row, p)
}

// AllFinite reports whether every value is a real number
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
