package analyzers

import (
	"fmt"
	"math"
	"slices"
)

// HarmonicMask separates harmonic from percussive energy by median
// filtering the magnitude spectrogram: across time for the harmonic
// estimate, across frequency for the percussive one. It returns a soft mask
// (frames x bins) with values in [0, 1] that keeps the harmonic part when
// multiplied into the spectrogram. The mask uses Wiener-style power 2;
// margin > 1 makes the harmonic side stricter.
func HarmonicMask(spectrogram *SpectrogramResult, kernel int, margin float64) ([][]float64, error) {
	if spectrogram == nil || spectrogram.TimeFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if kernel < 1 || kernel%2 == 0 {
		return nil, fmt.Errorf("median kernel must be a positive odd number, got %d", kernel)
	}

	frames, bins := spectrogram.TimeFrames, spectrogram.FreqBins
	mag := spectrogram.Magnitude

	harmonic := make([][]float64, frames)
	percussive := make([][]float64, frames)
	for t := range frames {
		harmonic[t] = make([]float64, bins)
		percussive[t] = make([]float64, bins)
	}

	window := make([]float64, kernel)
	series := make([]float64, frames)
	for f := range bins {
		for t := range frames {
			series[t] = mag[t][f]
		}
		for t := range frames {
			harmonic[t][f] = medianAt(series, t, window)
		}
	}
	for t := range frames {
		for f := range bins {
			percussive[t][f] = medianAt(mag[t], f, window)
		}
	}

	mask := harmonic
	for t := range frames {
		for f := range bins {
			mask[t][f] = softMask(harmonic[t][f], percussive[t][f]*margin, 2)
		}
	}
	return mask, nil
}

// medianAt returns the median of the len(window) values centred on i,
// mirroring the series about its edges (d c b a | a b c d | d c b a).
func medianAt(series []float64, i int, window []float64) float64 {
	half := len(window) / 2
	for k := range window {
		window[k] = series[reflectIndex(i+k-half, len(series))]
	}
	slices.Sort(window)
	return window[half]
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// softMask returns x^p / (x^p + ref^p); zero when both are zero
func softMask(x, ref, power float64) float64 {
	z := math.Max(x, ref)
	if z < math.SmallestNonzeroFloat64 {
		return 0
	}
	mx := math.Pow(x/z, power)
	mr := math.Pow(ref/z, power)
	return mx / (mx + mr)
}
