package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	assert.Equal(t, []string{"label", "f0", "f1", "f2"}, Header(3))
	assert.Len(t, Header(173), 174)
	assert.Equal(t, "f172", Header(173)[173])
}

func TestCSVPreservesValuesExactly(t *testing.T) {
	d := &Dataset{}
	d.Add("blues", []float64{0.1, -1e-12, math.MaxFloat64})
	d.Add("rock", []float64{1.0 / 3, 42, -0})

	path := filepath.Join(t.TempDir(), "features", "features.csv")
	require.NoError(t, WriteCSV(path, d))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, d.Labels, got.Labels)
	assert.Equal(t, d.Features, got.Features)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "label,f0,f1,f2\n"))
}

func TestReadRejectsMalformedTables(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"bad header":   "genre,f0\nrock,1\n",
		"no features":  "label\nrock\n",
		"short row":    "label,f0,f1\nrock,1\n",
		"not a number": "label,f0\nrock,loud\n",
		"no label":     "label,f0\n,1\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestWriteRejectsRaggedRows(t *testing.T) {
	d := &Dataset{}
	d.Add("rock", []float64{1, 2})
	d.Add("jazz", []float64{1})

	assert.Error(t, WriteCSV(filepath.Join(t.TempDir(), "x.csv"), d))
	assert.Error(t, d.Validate())
}

func TestClassesAndSubset(t *testing.T) {
	d := &Dataset{}
	d.Add("rock", []float64{1})
	d.Add("jazz", []float64{2})
	d.Add("rock", []float64{3})

	assert.Equal(t, []string{"jazz", "rock"}, d.Classes())
	assert.Equal(t, map[string]int{"rock": 2, "jazz": 1}, d.ClassCounts())

	sub := d.Subset([]int{2, 1})
	assert.Equal(t, []string{"rock", "jazz"}, sub.Labels)
	assert.Equal(t, [][]float64{{3}, {2}}, sub.Features)
	assert.Equal(t, 1, sub.Width())
}

func TestWriteEmptyDatasetHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Dataset{}))
	assert.Equal(t, "label\n", buf.String())
}
