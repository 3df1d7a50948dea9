package config

import (
	"fmt"
	"time"
)

// Feature block sizes. The vector layout is fixed: MFCC, chroma, mel,
// spectral contrast, tonnetz.
const (
	MFCCCoefficients = 20
	ChromaBins       = 12
	MelBands         = 128
	ContrastBands    = 7
	TonnetzDims      = 6
)

// FeatureVectorLength is the sum of all block sizes
const FeatureVectorLength = MFCCCoefficients + ChromaBins + MelBands + ContrastBands + TonnetzDims

// signatureVersion changes whenever the analysis code changes in a way that
// alters feature values for the same parameters.
const signatureVersion = 2

// FeatureConfig holds the analysis parameters of the genre feature extractor
type FeatureConfig struct {
	// Decoding
	SampleRate int           `json:"sample_rate" mapstructure:"sample_rate"`
	Duration   time.Duration `json:"duration" mapstructure:"duration"` // analysed prefix of each track

	// Spectral Analysis
	WindowSize int `json:"window_size" mapstructure:"window_size"`
	HopSize    int `json:"hop_size" mapstructure:"hop_size"`

	// Spectral contrast
	ContrastFMin float64 `json:"contrast_fmin" mapstructure:"contrast_fmin"` // upper edge of the lowest band

	// Harmonic/percussive separation
	HPSSKernel int     `json:"hpss_kernel" mapstructure:"hpss_kernel"`
	HPSSMargin float64 `json:"hpss_margin" mapstructure:"hpss_margin"`
}

// DefaultFeatureConfig returns the parameters the trained models expect
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		SampleRate:   22050,
		Duration:     30 * time.Second,
		WindowSize:   2048,
		HopSize:      512,
		ContrastFMin: 200,
		HPSSKernel:   31,
		HPSSMargin:   1,
	}
}

// Validate checks the parameters are usable
func (c FeatureConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.WindowSize < 2 || c.WindowSize%2 != 0 {
		return fmt.Errorf("window_size must be an even number >= 2, got %d", c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return fmt.Errorf("hop_size must be in (0, window_size], got %d", c.HopSize)
	}
	if c.ContrastFMin <= 0 {
		return fmt.Errorf("contrast_fmin must be positive, got %g", c.ContrastFMin)
	}
	// The highest contrast band starts at fmin * 2^(bands-2) and must sit below Nyquist
	if top := c.ContrastFMin * float64(int(1)<<(ContrastBands-2)); top >= float64(c.SampleRate)/2 {
		return fmt.Errorf("contrast_fmin %g too high for sample rate %d", c.ContrastFMin, c.SampleRate)
	}
	if c.HPSSKernel < 1 || c.HPSSKernel%2 == 0 {
		return fmt.Errorf("hpss_kernel must be a positive odd number, got %d", c.HPSSKernel)
	}
	if c.HPSSMargin < 1 {
		return fmt.Errorf("hpss_margin must be >= 1, got %g", c.HPSSMargin)
	}
	return nil
}

// Signature identifies every parameter that influences feature values.
// Vectors computed under different signatures must not be mixed.
func (c FeatureConfig) Signature() string {
	return fmt.Sprintf("v%d;sr=%d;dur=%s;nfft=%d;hop=%d;mfcc=%d;chroma=%d;mel=%d;contrast=%d@%g;hpss=%d/%g;tonnetz=%d",
		signatureVersion, c.SampleRate, c.Duration, c.WindowSize, c.HopSize,
		MFCCCoefficients, ChromaBins, MelBands,
		ContrastBands, c.ContrastFMin,
		c.HPSSKernel, c.HPSSMargin, TonnetzDims)
}
