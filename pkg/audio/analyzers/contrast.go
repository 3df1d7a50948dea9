package analyzers

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-sonar/algorithms/spectral"
	"gonum.org/v1/gonum/mat"
)

// ContrastEdges returns the band edges [0, fmin, 2fmin, ...] for numBands
// octave bands, with the last band closed at Nyquist.
func ContrastEdges(sampleRate int, fmin float64, numBands int) []float64 {
	edges := make([]float64, numBands+1)
	for k := 1; k < numBands; k++ {
		edges[k] = fmin * math.Pow(2, float64(k-1))
	}
	edges[numBands] = float64(sampleRate) / 2
	return edges
}

// SpectralContrast computes octave-band spectral contrast for every frame of
// a magnitude spectrogram, returning a frames x numBands matrix. Each value
// is the dB ratio between the loudest and quietest fifth of the band.
func SpectralContrast(spectrogram *SpectrogramResult, fmin float64, numBands int) (*mat.Dense, error) {
	if spectrogram == nil || spectrogram.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if numBands < 2 {
		return nil, fmt.Errorf("spectral contrast needs at least 2 bands, got %d", numBands)
	}

	edges := ContrastEdges(spectrogram.SampleRate, fmin, numBands)
	for k := 1; k < len(edges); k++ {
		if edges[k] <= edges[k-1] {
			return nil, fmt.Errorf("contrast band %d (%.0f-%.0f Hz) is empty", k-1, edges[k-1], edges[k])
		}
	}

	// sonido caches bin frequencies on the analyzer, so each call owns one
	sc := spectral.NewSpectralContrast(spectrogram.SampleRate, numBands)

	contrast := mat.NewDense(spectrogram.TimeFrames, numBands, nil)
	for t, frame := range spectrogram.Magnitude {
		values := sc.ComputeWithCustomBands(frame, edges)
		if len(values) != numBands {
			return nil, fmt.Errorf("frame %d: got %d contrast bands, want %d", t, len(values), numBands)
		}
		contrast.SetRow(t, values)
	}
	return contrast, nil
}
