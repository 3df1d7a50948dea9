package configs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	audioconfig "github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose   bool   `mapstructure:"verbose"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// File locations shared by every stage
	Paths PathsConfig `mapstructure:"paths"`

	// Dataset curation
	Curation CurationConfig `mapstructure:"curation"`

	// Feature extraction parameters
	Audio audioconfig.FeatureConfig `mapstructure:"audio"`

	// Model training
	Training TrainingConfig `mapstructure:"training"`

	// HTTP prediction API
	Server ServerConfig `mapstructure:"server"`

	// StatsD metrics
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// PathsConfig contains the locations read and written by the pipeline
type PathsConfig struct {
	DatasetDir   string `mapstructure:"dataset_dir"`   // root of <genre>/<file> collections
	TrackList    string `mapstructure:"track_list"`    // clean track list
	FeatureTable string `mapstructure:"feature_table"` // CSV feature table
	FeatureCache string `mapstructure:"feature_cache"` // sqlite extraction cache, empty disables
	ModelDir     string `mapstructure:"model_dir"`
	ModelFile    string `mapstructure:"model_file"`
	ScalerFile   string `mapstructure:"scaler_file"`
	MoodTable    string `mapstructure:"mood_table"` // optional YAML/JSON mood table
}

// CurationConfig contains the quality checks applied to raw tracks
type CurationConfig struct {
	Extensions     []string      `mapstructure:"extensions"`
	ProbeDuration  time.Duration `mapstructure:"probe_duration"`  // prefix decoded by the corruption check
	SilenceEpsilon float64       `mapstructure:"silence_epsilon"` // peak amplitude below which a track is silent
	TargetDuration time.Duration `mapstructure:"target_duration"`
	Tolerance      time.Duration `mapstructure:"tolerance"`
	Workers        int           `mapstructure:"workers"` // 0 uses GOMAXPROCS
}

// TrainingConfig contains the split and forest settings
type TrainingConfig struct {
	TestSize        float64 `mapstructure:"test_size"`
	Seed            int64   `mapstructure:"seed"`
	Trees           int     `mapstructure:"trees"`
	MaxDepth        int     `mapstructure:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf"`
	Workers         int     `mapstructure:"workers"` // 0 uses GOMAXPROCS
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// TelemetryConfig contains StatsD settings; an empty address disables metrics
type TelemetryConfig struct {
	StatsdAddress string   `mapstructure:"statsd_address"`
	Namespace     string   `mapstructure:"namespace"`
	Tags          []string `mapstructure:"tags"`
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom fills in missing defaults on v and decodes it
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	switch strings.ToLower(config.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", config.LogFormat)
	}

	if config.Paths.DatasetDir == "" || config.Paths.TrackList == "" || config.Paths.FeatureTable == "" {
		return fmt.Errorf("dataset, track list and feature table paths must be set")
	}

	if config.Paths.ModelFile == "" || config.Paths.ScalerFile == "" {
		return fmt.Errorf("model and scaler file names must be set")
	}

	if len(config.Curation.Extensions) == 0 {
		return fmt.Errorf("curation needs at least one audio extension")
	}

	if config.Curation.ProbeDuration <= 0 {
		return fmt.Errorf("curation probe duration must be positive")
	}

	if config.Curation.SilenceEpsilon < 0 {
		return fmt.Errorf("silence epsilon cannot be negative")
	}

	if config.Curation.TargetDuration <= 0 || config.Curation.Tolerance < 0 ||
		config.Curation.Tolerance >= config.Curation.TargetDuration {
		return fmt.Errorf("curation target duration must be positive and larger than the tolerance")
	}

	if config.Curation.Workers < 0 || config.Training.Workers < 0 {
		return fmt.Errorf("worker counts cannot be negative")
	}

	if err := config.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if config.Training.TestSize <= 0 || config.Training.TestSize >= 1 {
		return fmt.Errorf("training test size must be between 0 and 1")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max upload size must be positive")
	}

	return nil
}

// AudioExtension reports whether name carries one of the configured extensions
func (c CurationConfig) AudioExtension(ext string) bool {
	for _, e := range c.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// ModelPath returns the location of the classifier artifact
func (p PathsConfig) ModelPath() string {
	return filepath.Join(p.ModelDir, p.ModelFile)
}

// ScalerPath returns the location of the scaler artifact
func (p PathsConfig) ScalerPath() string {
	return filepath.Join(p.ModelDir, p.ScalerFile)
}
