package audio

import "math"

// resampleZeroCrossings is the number of sinc lobes kept on each side of the
// interpolation point, measured at the output cutoff.
const resampleZeroCrossings = 16

// Resample converts x from rate `from` to rate `to` with a Hann-windowed sinc
// interpolator. When downsampling the kernel is widened so it also acts as
// the anti-aliasing low-pass at the new Nyquist frequency.
func Resample(x []float64, from, to int) []float64 {
	if from <= 0 || to <= 0 || from == to || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}

	ratio := float64(to) / float64(from)
	n := int(math.Ceil(float64(len(x)) * ratio))
	cutoff := math.Min(1, ratio)
	width := resampleZeroCrossings / cutoff

	out := make([]float64, n)
	for i := range n {
		center := float64(i) / ratio
		lo := max(int(math.Ceil(center-width)), 0)
		hi := min(int(math.Floor(center+width)), len(x)-1)

		sum := 0.0
		for j := lo; j <= hi; j++ {
			d := center - float64(j)
			sum += x[j] * cutoff * sinc(cutoff*d) * hannTaper(d, width)
		}
		out[i] = sum
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hannTaper(d, width float64) float64 {
	if math.Abs(d) >= width {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*d/width))
}
