package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultFeatureConfigIsValid(t *testing.T) {
	cfg := DefaultFeatureConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 173, FeatureVectorLength)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FeatureConfig)
		field  string
	}{
		{"zero sample rate", func(c *FeatureConfig) { c.SampleRate = 0 }, "sample_rate"},
		{"negative duration", func(c *FeatureConfig) { c.Duration = -time.Second }, "duration"},
		{"odd window", func(c *FeatureConfig) { c.WindowSize = 2047 }, "window_size"},
		{"hop larger than window", func(c *FeatureConfig) { c.HopSize = 4096 }, "hop_size"},
		{"contrast above nyquist", func(c *FeatureConfig) { c.ContrastFMin = 400; c.SampleRate = 22050 }, "contrast_fmin"},
		{"no contrast fmin", func(c *FeatureConfig) { c.ContrastFMin = 0 }, "contrast_fmin"},
		{"even kernel", func(c *FeatureConfig) { c.HPSSKernel = 30 }, "hpss_kernel"},
		{"margin below one", func(c *FeatureConfig) { c.HPSSMargin = 0.5 }, "hpss_margin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFeatureConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.True(t, strings.HasPrefix(err.Error(), tt.field), "error %q should name %s", err, tt.field)
			}
		})
	}
}

func TestSignatureIsStable(t *testing.T) {
	a := DefaultFeatureConfig()
	b := DefaultFeatureConfig()
	assert.Equal(t, a.Signature(), b.Signature())

	b.Duration = 20 * time.Second
	assert.NotEqual(t, a.Signature(), b.Signature())
}
