package preprocessing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitUsesPopulationStatistics(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{1, 10}, {3, 10}, {5, 10}}))

	assert.Equal(t, []float64{3, 10}, s.Mean)
	assert.InDelta(t, 8.0/3, s.Variance[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant features are only centred")
	assert.Equal(t, 3, s.Samples)
}

func TestTransformRow(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{0, 7}, {2, 7}}))

	got, err := s.TransformRow([]float64{4, 8})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 1}, got, 1e-12)
}

func TestFitTransformStandardises(t *testing.T) {
	rows := [][]float64{{1, -2}, {2, 0}, {3, 2}, {6, 4}}

	scaled, err := NewStandardScaler().FitTransform(rows)
	require.NoError(t, err)

	for j := range 2 {
		sum, sq := 0.0, 0.0
		for _, row := range scaled {
			sum += row[j]
			sq += row[j] * row[j]
		}
		assert.InDelta(t, 0, sum/4, 1e-12)
		assert.InDelta(t, 1, sq/4, 1e-12)
	}
}

func TestTransformErrors(t *testing.T) {
	_, err := NewStandardScaler().TransformRow([]float64{1})
	assert.True(t, errors.Is(err, ErrNotFitted))

	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{1, 2}}))
	_, err = s.TransformRow([]float64{1, 2, 3})
	assert.Error(t, err)

	assert.Error(t, s.Fit(nil))
	assert.Error(t, s.Fit([][]float64{{1, 2}, {3}}))
}

func TestScalerSurvivesJSON(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit([][]float64{{0.1, 1e-9}, {0.7, 3e-9}, {0.2, 2e-9}}))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored StandardScaler
	require.NoError(t, json.Unmarshal(data, &restored))
	require.NoError(t, restored.Validate())

	row := []float64{0.5, 5e-9}
	want, _ := s.TransformRow(row)
	got, err := restored.TransformRow(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateRejectsBrokenScaler(t *testing.T) {
	assert.Error(t, (&StandardScaler{}).Validate())
	assert.Error(t, (&StandardScaler{Mean: []float64{1}, Scale: []float64{0}}).Validate())
	assert.Error(t, (&StandardScaler{Mean: []float64{1, 2}, Scale: []float64{1}}).Validate())
}
