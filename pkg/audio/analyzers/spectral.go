package analyzers

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// SpectralAnalyzer provides core FFT and spectral analysis functionality
type SpectralAnalyzer struct {
	sampleRate int
	logger     logging.Logger
}

// SpectrogramResult holds the result of STFT analysis
type SpectrogramResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		sampleRate: sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// STFT computes a centered short-time Fourier transform. The signal is
// zero-padded by windowSize/2 on both sides so frame t is centred on sample
// t*hopSize, and each frame is weighted by a periodic Hann window.
func (sa *SpectralAnalyzer) STFT(signal []float64, windowSize, hopSize int) (*SpectrogramResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize < 2 || hopSize <= 0 {
		return nil, fmt.Errorf("invalid STFT parameters: window %d, hop %d", windowSize, hopSize)
	}

	logger := sa.logger.WithFields(logging.Fields{
		"function":      "STFT",
		"signal_length": len(signal),
		"window_size":   windowSize,
		"hop_size":      hopSize,
	})

	padded := CenterPad(signal, windowSize)

	timeFrames := 1 + (len(padded)-windowSize)/hopSize
	freqBins := windowSize/2 + 1
	win := PeriodicHann(windowSize)

	magnitude := make([][]float64, timeFrames)
	frame := make([]float64, windowSize)
	for t := range timeFrames {
		start := t * hopSize
		for i := range windowSize {
			frame[i] = padded[start+i] * win[i]
		}

		spectrum := sa.FFT(frame)
		row := make([]float64, freqBins)
		for f := range freqBins {
			row[f] = cmplx.Abs(spectrum[f])
		}
		magnitude[t] = row
	}

	result := &SpectrogramResult{
		Magnitude:      magnitude,
		TimeFrames:     timeFrames,
		FreqBins:       freqBins,
		SampleRate:     sa.sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sa.sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sa.sampleRate),
	}

	logger.Debug("STFT computation completed", logging.Fields{
		"time_frames": result.TimeFrames,
		"freq_bins":   result.FreqBins,
	})

	return result, nil
}

// FFT computes Fast Fourier Transform using mjibson/go-dsp
func (sa *SpectralAnalyzer) FFT(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputePowerSpectrum squares every magnitude
func (sa *SpectralAnalyzer) ComputePowerSpectrum(spectrogram *SpectrogramResult) [][]float64 {
	power := make([][]float64, spectrogram.TimeFrames)

	for t := range spectrogram.TimeFrames {
		power[t] = make([]float64, spectrogram.FreqBins)
		for f := range spectrogram.FreqBins {
			mag := spectrogram.Magnitude[t][f]
			power[t][f] = mag * mag
		}
	}

	return power
}

// GetFrequencyBins returns the centre frequency of each bin of a windowSize-point FFT
func (sa *SpectralAnalyzer) GetFrequencyBins(windowSize int) []float64 {
	return FFTFrequencies(sa.sampleRate, windowSize)
}

// FFTFrequencies returns the frequency of each non-negative FFT bin
func FFTFrequencies(sampleRate, windowSize int) []float64 {
	freqs := make([]float64, windowSize/2+1)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64(windowSize)
	}
	return freqs
}

// PeriodicHann returns an n-point Hann window suited to spectral analysis:
// the first n points of an (n+1)-point symmetric window.
func PeriodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// CenterPad zero-pads signal by windowSize/2 on both sides, so a
// non-centred framing of the result yields 1+len(signal)/hop frames with
// frame t centred on sample t*hop.
func CenterPad(signal []float64, windowSize int) []float64 {
	pad := windowSize / 2
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)
	return padded
}
