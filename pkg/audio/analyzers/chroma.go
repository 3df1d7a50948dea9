package analyzers

import (
	"fmt"

	"github.com/RyanBlaney/sonido-sonar/algorithms/chroma"
	"github.com/RyanBlaney/sonido-sonar/algorithms/windowing"
	"gonum.org/v1/gonum/mat"
)

// Chromagram computes a 12-bin pitch class profile per frame, C first, with
// every non-silent frame summing to one. Frames line up with STFT.
func Chromagram(signal []float64, sampleRate, windowSize, hopSize int) (*mat.Dense, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	cs := chroma.NewChromaSTFTDefault(sampleRate)
	frames, err := cs.ComputeChroma(CenterPad(signal, windowSize), windowSize, hopSize, windowing.NewHann(windowSize, false))
	if err != nil {
		return nil, fmt.Errorf("chroma stft: %w", err)
	}

	m := ToDense(frames)
	if m == nil {
		return nil, fmt.Errorf("chroma stft produced no frames")
	}
	return m, nil
}
