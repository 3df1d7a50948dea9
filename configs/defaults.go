package configs

import (
	"time"

	"github.com/spf13/viper"

	audioconfig "github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}
	if !v.IsSet("log_format") {
		v.Set("log_format", "console")
	}

	setPathDefaults(v)
	setCurationDefaults(v)
	setAudioDefaults(v)
	setTrainingDefaults(v)

	// Server defaults
	if !v.IsSet("server.address") {
		v.Set("server.address", ":8080")
	}
	if !v.IsSet("server.max_upload_bytes") {
		v.Set("server.max_upload_bytes", 20<<20)
	}
	if !v.IsSet("server.allowed_origins") {
		v.Set("server.allowed_origins", []string{"*"})
	}
	if !v.IsSet("server.read_timeout") {
		v.Set("server.read_timeout", 30*time.Second)
	}
	if !v.IsSet("server.write_timeout") {
		v.Set("server.write_timeout", 2*time.Minute)
	}

	// Telemetry defaults
	if !v.IsSet("telemetry.statsd_address") {
		v.Set("telemetry.statsd_address", "")
	}
	if !v.IsSet("telemetry.namespace") {
		v.Set("telemetry.namespace", "genremood.")
	}
	if !v.IsSet("telemetry.tags") {
		v.Set("telemetry.tags", []string{})
	}
}

// setPathDefaults sets the fixed file locations used by the stage commands
func setPathDefaults(v *viper.Viper) {
	if !v.IsSet("paths.dataset_dir") {
		v.Set("paths.dataset_dir", "data/genres")
	}
	if !v.IsSet("paths.track_list") {
		v.Set("paths.track_list", "data/clean_files.txt")
	}
	if !v.IsSet("paths.feature_table") {
		v.Set("paths.feature_table", "features/features.csv")
	}
	if !v.IsSet("paths.feature_cache") {
		v.Set("paths.feature_cache", "features/cache.db")
	}
	if !v.IsSet("paths.model_dir") {
		v.Set("paths.model_dir", "models")
	}
	if !v.IsSet("paths.model_file") {
		v.Set("paths.model_file", "music_genre_model.json")
	}
	if !v.IsSet("paths.scaler_file") {
		v.Set("paths.scaler_file", "scaler.json")
	}
	if !v.IsSet("paths.mood_table") {
		v.Set("paths.mood_table", "")
	}
}

func setCurationDefaults(v *viper.Viper) {
	if !v.IsSet("curation.extensions") {
		v.Set("curation.extensions", []string{".wav", ".mp3"})
	}
	if !v.IsSet("curation.probe_duration") {
		v.Set("curation.probe_duration", 3*time.Second)
	}
	if !v.IsSet("curation.silence_epsilon") {
		v.Set("curation.silence_epsilon", 0.001)
	}
	if !v.IsSet("curation.target_duration") {
		v.Set("curation.target_duration", 30*time.Second)
	}
	if !v.IsSet("curation.tolerance") {
		v.Set("curation.tolerance", 5*time.Second)
	}
	if !v.IsSet("curation.workers") {
		v.Set("curation.workers", 0)
	}
}

func setAudioDefaults(v *viper.Viper) {
	d := audioconfig.DefaultFeatureConfig()

	if !v.IsSet("audio.sample_rate") {
		v.Set("audio.sample_rate", d.SampleRate)
	}
	if !v.IsSet("audio.duration") {
		v.Set("audio.duration", d.Duration)
	}
	if !v.IsSet("audio.window_size") {
		v.Set("audio.window_size", d.WindowSize)
	}
	if !v.IsSet("audio.hop_size") {
		v.Set("audio.hop_size", d.HopSize)
	}
	if !v.IsSet("audio.contrast_fmin") {
		v.Set("audio.contrast_fmin", d.ContrastFMin)
	}
	if !v.IsSet("audio.hpss_kernel") {
		v.Set("audio.hpss_kernel", d.HPSSKernel)
	}
	if !v.IsSet("audio.hpss_margin") {
		v.Set("audio.hpss_margin", d.HPSSMargin)
	}
}

func setTrainingDefaults(v *viper.Viper) {
	if !v.IsSet("training.test_size") {
		v.Set("training.test_size", 0.2)
	}
	if !v.IsSet("training.seed") {
		v.Set("training.seed", 42)
	}
	if !v.IsSet("training.trees") {
		v.Set("training.trees", 300)
	}
	if !v.IsSet("training.max_depth") {
		v.Set("training.max_depth", 25)
	}
	if !v.IsSet("training.min_samples_split") {
		v.Set("training.min_samples_split", 3)
	}
	if !v.IsSet("training.min_samples_leaf") {
		v.Set("training.min_samples_leaf", 2)
	}
	if !v.IsSet("training.workers") {
		v.Set("training.workers", 0)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:   false,
		LogLevel:  "info",
		LogFormat: "console",
		Paths:     GetDefaultPathsConfig(),
		Curation:  GetDefaultCurationConfig(),
		Audio:     audioconfig.DefaultFeatureConfig(),
		Training:  GetDefaultTrainingConfig(),
		Server: ServerConfig{
			Address:        ":8080",
			MaxUploadBytes: 20 << 20,
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Namespace: "genremood.",
			Tags:      []string{},
		},
	}
}

// GetDefaultPathsConfig returns the fixed pipeline locations
func GetDefaultPathsConfig() PathsConfig {
	return PathsConfig{
		DatasetDir:   "data/genres",
		TrackList:    "data/clean_files.txt",
		FeatureTable: "features/features.csv",
		FeatureCache: "features/cache.db",
		ModelDir:     "models",
		ModelFile:    "music_genre_model.json",
		ScalerFile:   "scaler.json",
	}
}

// GetDefaultCurationConfig returns the default quality checks
func GetDefaultCurationConfig() CurationConfig {
	return CurationConfig{
		Extensions:     []string{".wav", ".mp3"},
		ProbeDuration:  3 * time.Second,
		SilenceEpsilon: 0.001,
		TargetDuration: 30 * time.Second,
		Tolerance:      5 * time.Second,
	}
}

// GetDefaultTrainingConfig returns the default split and forest settings
func GetDefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		TestSize:        0.2,
		Seed:            42,
		Trees:           300,
		MaxDepth:        25,
		MinSamplesSplit: 3,
		MinSamplesLeaf:  2,
	}
}
