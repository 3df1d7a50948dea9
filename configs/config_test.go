package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(viper.New())
	require.NoError(t, err)

	defaults := GetDefaultConfig()
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Curation, cfg.Curation)
	assert.Equal(t, defaults.Audio, cfg.Audio)
	assert.Equal(t, defaults.Training, cfg.Training)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Telemetry.StatsdAddress)
	assert.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, filepath.Join("models", "music_genre_model.json"), cfg.Paths.ModelPath())
	assert.Equal(t, filepath.Join("models", "scaler.json"), cfg.Paths.ScalerPath())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genremood.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
paths:
  dataset_dir: /srv/gtzan
curation:
  tolerance: 2s
training:
  trees: 50
audio:
  duration: 10s
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/gtzan", cfg.Paths.DatasetDir)
	assert.Equal(t, "data/clean_files.txt", cfg.Paths.TrackList)
	assert.Equal(t, 2*time.Second, cfg.Curation.Tolerance)
	assert.Equal(t, 50, cfg.Training.Trees)
	assert.Equal(t, 25, cfg.Training.MaxDepth)
	assert.Equal(t, 10*time.Second, cfg.Audio.Duration)
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigFile("genremood.example.yaml")
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)

	defaults := GetDefaultConfig()
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Curation, cfg.Curation)
	assert.Equal(t, defaults.Audio, cfg.Audio)
	assert.Equal(t, defaults.Training, cfg.Training)
	assert.Equal(t, defaults.Server, cfg.Server)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"dataset dir", func(c *Config) { c.Paths.DatasetDir = "" }},
		{"model file", func(c *Config) { c.Paths.ModelFile = "" }},
		{"extensions", func(c *Config) { c.Curation.Extensions = nil }},
		{"probe", func(c *Config) { c.Curation.ProbeDuration = 0 }},
		{"silence", func(c *Config) { c.Curation.SilenceEpsilon = -1 }},
		{"tolerance", func(c *Config) { c.Curation.Tolerance = time.Minute }},
		{"workers", func(c *Config) { c.Training.Workers = -2 }},
		{"audio", func(c *Config) { c.Audio.HopSize = 0 }},
		{"test size", func(c *Config) { c.Training.TestSize = 1 }},
		{"upload", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestAudioExtension(t *testing.T) {
	c := GetDefaultCurationConfig()
	assert.True(t, c.AudioExtension(".wav"))
	assert.True(t, c.AudioExtension(".MP3"))
	assert.False(t, c.AudioExtension(".txt"))
	assert.False(t, c.AudioExtension(""))
}
