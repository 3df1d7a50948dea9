package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/curation"
	"github.com/RyanBlaney/genre-mood-classifier/internal/dataset"
	"github.com/RyanBlaney/genre-mood-classifier/internal/featurecache"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
	"github.com/RyanBlaney/genre-mood-classifier/internal/prediction"
	"github.com/RyanBlaney/genre-mood-classifier/internal/server"
	"github.com/RyanBlaney/genre-mood-classifier/internal/telemetry"
	"github.com/RyanBlaney/genre-mood-classifier/internal/training"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/extractors"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile string
	Verbose    bool
	LogLevel   string
	LogFormat  string
	Out        io.Writer // human-readable output, stdout when nil

	// Runtime context
	Logger logging.Logger
	Config *configs.Config // loaded from viper when nil
}

// App runs the pipeline stages with one configuration
type App struct {
	ctx     *Context
	config  *configs.Config
	metrics *telemetry.Client
	printer *Printer
	logger  logging.Logger
}

// NewApp creates the application for ctx
func NewApp(ctx *Context) (*App, error) {
	config, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config

	logger, err := setupLogging(config)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	ctx.Logger = logger

	metrics, err := telemetry.New(config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry client: %w", err)
	}

	out := ctx.Out
	if out == nil {
		out = os.Stdout
	}

	logger.Debug("Application initialized", logging.Fields{
		"config_file": ctx.ConfigFile,
		"dataset_dir": config.Paths.DatasetDir,
		"model_dir":   config.Paths.ModelDir,
		"statsd":      config.Telemetry.StatsdAddress,
	})

	return &App{
		ctx:     ctx,
		config:  config,
		metrics: metrics,
		printer: NewPrinter(out),
		logger:  logger,
	}, nil
}

// Config returns the effective configuration
func (app *App) Config() *configs.Config {
	return app.config
}

// Close flushes telemetry
func (app *App) Close() error {
	return app.metrics.Close()
}

// setupLogging configures the root logger from the merged configuration
func setupLogging(config *configs.Config) (logging.Logger, error) {
	level := config.LogLevel
	if config.Verbose {
		level = "debug"
	}

	err := logging.Configure(logging.Options{
		Level:  level,
		Format: config.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return nil, err
	}
	return logging.WithFields(logging.Fields{"component": "app"}), nil
}

// loadAndMergeConfig loads configuration and applies CLI overrides
func loadAndMergeConfig(ctx *Context) (*configs.Config, error) {
	config := ctx.Config
	if config == nil {
		loaded, err := configs.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load base configuration: %w", err)
		}
		config = loaded
	}

	if ctx.Verbose {
		config.Verbose = true
	}
	if ctx.LogLevel != "" {
		config.LogLevel = ctx.LogLevel
	}
	if ctx.LogFormat != "" {
		config.LogFormat = ctx.LogFormat
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Curate discovers the dataset, filters it and writes the clean track list
func (app *App) Curate(ctx context.Context) (*curation.Report, error) {
	defer app.metrics.Stage("curate")()
	paths := app.config.Paths

	tracks, err := curation.Discover(paths.DatasetDir)
	if err != nil {
		return nil, err
	}

	app.printer.CurationStarted()
	curator := curation.NewCurator(app.config.Curation)
	curator.OnOutcome(app.printer.CurationOutcome)

	report, err := curator.Curate(ctx, tracks)
	if err != nil {
		return nil, err
	}

	if err := curation.WriteTrackList(paths.TrackList, report.Accepted); err != nil {
		return nil, err
	}

	app.metrics.Count(telemetry.MetricTracksChecked, int64(report.Checked()))
	app.metrics.Count(telemetry.MetricTracksAccepted, int64(len(report.Accepted)))
	for reason, n := range report.Rejected {
		app.metrics.Count(telemetry.MetricTracksRejected, int64(n), "reason:"+string(reason))
	}

	app.printer.CurationFinished(report, paths.TrackList)
	return report, nil
}

// Extract builds the feature table from the clean track list
func (app *App) Extract(ctx context.Context) (*dataset.Dataset, *training.ExtractionReport, error) {
	defer app.metrics.Stage("extract")()
	paths := app.config.Paths

	catalog, err := curation.Discover(paths.DatasetDir)
	if err != nil {
		return nil, nil, err
	}
	tracks, err := curation.ReadTrackList(paths.TrackList, catalog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read clean track list, run curate first: %w", err)
	}

	extractor, err := extractors.NewGenreFeatureExtractor(app.config.Audio)
	if err != nil {
		return nil, nil, err
	}

	builder := training.NewDatasetBuilder(extractor, app.config.Training.Workers)
	builder.OnResult(app.printer.ExtractionResult)

	if paths.FeatureCache != "" {
		cache, err := featurecache.Open(paths.FeatureCache)
		if err != nil {
			return nil, nil, err
		}
		defer cache.Close()
		builder.WithCache(cache)

		defer func() {
			pruned, err := cache.Prune(context.WithoutCancel(ctx), extractor.Signature())
			if err != nil {
				app.logger.Warn("Failed to prune feature cache", logging.Fields{"error": err.Error()})
			} else if pruned > 0 {
				app.logger.Info("Pruned stale feature cache entries", logging.Fields{"entries": pruned})
			}
		}()
	}

	app.printer.ExtractionStarted()
	ds, report, err := builder.Build(ctx, tracks)
	if err != nil {
		return nil, nil, err
	}

	if err := dataset.WriteCSV(paths.FeatureTable, ds); err != nil {
		return nil, nil, err
	}

	app.metrics.Count(telemetry.MetricFeaturesDone, int64(report.Processed))
	app.metrics.Count(telemetry.MetricFeaturesFailed, int64(len(report.Failures)))
	app.metrics.Count(telemetry.MetricFeatureCacheHit, int64(report.CacheHits))

	app.printer.ExtractionFinished(report, paths.FeatureTable)
	return ds, report, nil
}

// Train fits and publishes the artifacts from the feature table
func (app *App) Train(ctx context.Context) (*training.Result, error) {
	defer app.metrics.Stage("train")()

	ds, err := dataset.ReadCSV(app.config.Paths.FeatureTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature table, run extract first: %w", err)
	}
	app.printer.DatasetLoaded(ds.Len(), ds.Width())

	store := training.NewArtifactStore(app.config.Paths)
	trainer := training.NewTrainer(app.config.Training, store, app.config.Audio.Signature())

	app.printer.TrainingStarted()
	result, err := trainer.Train(ctx, ds)
	if err != nil {
		return nil, err
	}

	app.metrics.Gauge(telemetry.MetricTrainAccuracy, result.Report.Accuracy)
	app.metrics.Gauge(telemetry.MetricTrainRows, float64(result.TrainRows))

	app.printer.TrainingFinished(result)
	return result, nil
}

// NewService loads the published artifacts and the mood table into a
// classify service
func (app *App) NewService() (*prediction.Service, error) {
	artifacts, err := prediction.LoadArtifacts(training.NewArtifactStore(app.config.Paths))
	if err != nil {
		return nil, err
	}

	extractor, err := extractors.NewGenreFeatureExtractor(app.config.Audio)
	if err != nil {
		return nil, err
	}

	predictor, err := prediction.NewPredictor(artifacts, extractor)
	if err != nil {
		return nil, err
	}

	table, err := loadMoodTable(app.config.Paths.MoodTable)
	if err != nil {
		return nil, err
	}

	service := prediction.NewService(predictor, mood.NewMapper(table))
	for _, label := range service.Uncovered() {
		app.printer.Warn("no mood for genre %q, using the fallback", label)
	}
	return service, nil
}

// Predict classifies one audio file
func (app *App) Predict(ctx context.Context, path string) (*prediction.Result, error) {
	defer app.metrics.Stage("predict")()

	service, err := app.NewService()
	if err != nil {
		return nil, err
	}

	app.printer.PredictionStarted()
	result, err := service.Classify(ctx, path)
	if err != nil {
		app.metrics.Count(telemetry.MetricPredictFailures, 1)
		return nil, err
	}

	app.metrics.Count(telemetry.MetricPredictions, 1, "genre:"+result.Genre)
	app.printer.Prediction(result.Genre, result.DisplayGenre, result.Mood)
	return result, nil
}

// Serve runs the HTTP API until ctx is cancelled. Missing artifacts fail
// start-up.
func (app *App) Serve(ctx context.Context) error {
	service, err := app.NewService()
	if err != nil {
		return err
	}

	return server.NewServer(app.config.Server, service, app.metrics).Run(ctx)
}

// Moods returns the mood table in effect
func (app *App) Moods() (mood.Table, error) {
	table, err := loadMoodTable(app.config.Paths.MoodTable)
	if err != nil {
		return mood.Table{}, err
	}
	return mood.NewMapper(table).Table(), nil
}

// PrintMoods prints the mood table in effect
func (app *App) PrintMoods() error {
	table, err := app.Moods()
	if err != nil {
		return err
	}
	app.printer.MoodTable(table)
	return nil
}
