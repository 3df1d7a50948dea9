package analyzers

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ChromaFilterBank builds a (chromaBins x windowSize/2+1) matrix mapping FFT
// bins onto pitch classes starting at C. Each bin spreads over neighbouring
// classes with a Gaussian of one bin width, columns are L2-normalised, and a
// Gaussian octave weighting centred on octave 5 (two octaves wide) damps
// very low and very high frequencies. Tuning is fixed at A440.
func ChromaFilterBank(sampleRate, windowSize, chromaBins int) *mat.Dense {
	const (
		centerOctave = 5.0
		octaveWidth  = 2.0
	)
	nChroma := float64(chromaBins)
	a440 := 440.0

	// Fractional chroma bin of every FFT bin over the full circle; bin 0 (DC)
	// is placed 1.5 octaves below bin 1.
	frqBins := make([]float64, windowSize)
	for i := 1; i < windowSize; i++ {
		freq := float64(i) * float64(sampleRate) / float64(windowSize)
		frqBins[i] = nChroma * math.Log2(freq/(a440/16))
	}
	frqBins[0] = frqBins[1] - 1.5*nChroma

	binWidths := make([]float64, windowSize)
	for i := 0; i < windowSize-1; i++ {
		binWidths[i] = math.Max(frqBins[i+1]-frqBins[i], 1)
	}
	binWidths[windowSize-1] = 1

	half := math.Round(nChroma / 2)
	weights := make([][]float64, chromaBins)
	for c := range chromaBins {
		weights[c] = make([]float64, windowSize)
		for i := range windowSize {
			d := math.Mod(frqBins[i]-float64(c)+half+10*nChroma, nChroma)
			if d < 0 {
				d += nChroma
			}
			d -= half
			x := 2 * d / binWidths[i]
			weights[c][i] = math.Exp(-0.5 * x * x)
		}
	}

	column := make([]float64, chromaBins)
	for i := range windowSize {
		for c := range chromaBins {
			column[c] = weights[c][i]
		}
		norm := floats.Norm(column, 2)
		octave := (frqBins[i]/nChroma - centerOctave) / octaveWidth
		octaveWeight := math.Exp(-0.5 * octave * octave)
		for c := range chromaBins {
			w := weights[c][i]
			if norm > 0 {
				w /= norm
			}
			weights[c][i] = w * octaveWeight
		}
	}

	// Rotate so row 0 is C instead of A
	shift := 3 * (chromaBins / 12)
	freqBins := windowSize/2 + 1
	bank := mat.NewDense(chromaBins, freqBins, nil)
	for c := range chromaBins {
		src := weights[(c+shift)%chromaBins]
		for j := range freqBins {
			bank.Set(c, j, src[j])
		}
	}

	return bank
}

// TonnetzBasis returns the 6 x chromaBins projection of chroma onto the
// tonal centroid space: perfect fifths, minor thirds and major thirds, each
// as a (sin, cos) pair on its circle.
func TonnetzBasis(chromaBins int) *mat.Dense {
	scale := []float64{7.0 / 6, 7.0 / 6, 3.0 / 2, 3.0 / 2, 2.0 / 3, 2.0 / 3}
	radius := []float64{1, 1, 1, 1, 0.5, 0.5}

	basis := mat.NewDense(len(scale), chromaBins, nil)
	for r := range scale {
		for c := range chromaBins {
			v := scale[r] * 12 * float64(c) / float64(chromaBins)
			if r%2 == 0 {
				v -= 0.5
			}
			basis.Set(r, c, radius[r]*math.Cos(math.Pi*v))
		}
	}
	return basis
}
