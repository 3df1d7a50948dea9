package training

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/dataset"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/forest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/preprocessing"
)

// Result describes a completed training run
type Result struct {
	RunID      string                `json:"run_id"`
	TrainRows  int                   `json:"train_rows"`
	TestRows   int                   `json:"test_rows"`
	Features   int                   `json:"features"`
	Classes    []string              `json:"classes"`
	Report     *ClassificationReport `json:"report"`
	Duration   time.Duration         `json:"duration"`
	ModelPath  string                `json:"model_path"`
	ScalerPath string                `json:"scaler_path"`
}

// Trainer fits the scaler and classifier on a feature table and publishes
// the pair. A failed run leaves previously published artifacts untouched.
type Trainer struct {
	config    configs.TrainingConfig
	store     *ArtifactStore
	signature string
	logger    logging.Logger
}

// NewTrainer creates a trainer publishing to store. signature identifies
// the extractor parameters the feature table was built with.
func NewTrainer(cfg configs.TrainingConfig, store *ArtifactStore, signature string) *Trainer {
	return &Trainer{
		config:    cfg,
		store:     store,
		signature: signature,
		logger: logging.WithFields(logging.Fields{
			"component": "trainer",
		}),
	}
}

// ForestParams maps the training configuration onto forest parameters
func (t *Trainer) ForestParams() forest.Params {
	return forest.Params{
		NumTrees:        t.config.Trees,
		MaxDepth:        t.config.MaxDepth,
		MinSamplesSplit: t.config.MinSamplesSplit,
		MinSamplesLeaf:  t.config.MinSamplesLeaf,
		Seed:            t.config.Seed,
		Workers:         t.config.Workers,
	}
}

// Train splits ds, fits the scaler on the train partition only, fits the
// forest on the scaled train rows, evaluates on the test partition and
// publishes the artifacts.
func (t *Trainer) Train(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	start := time.Now()
	logger := t.logger.WithFields(logging.Fields{
		"function": "Train",
		"rows":     ds.Len(),
	})

	if ds.Len() == 0 {
		return nil, common.NewError(common.StageTrain, "", common.ErrCodeInvalidFormat, "feature table is empty", nil)
	}
	if err := ds.Validate(); err != nil {
		return nil, common.NewError(common.StageTrain, "", common.ErrCodeInvalidFormat, "feature table is inconsistent", err)
	}

	trainIdx, testIdx, err := StratifiedSplit(ds.Labels, t.config.TestSize, t.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	logger.Debug("Dataset split", logging.Fields{
		"train_rows": train.Len(),
		"test_rows":  test.Len(),
		"classes":    len(ds.Classes()),
	})

	scaler := preprocessing.NewStandardScaler()
	trainScaled, err := scaler.FitTransform(train.Features)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}

	model := forest.New(t.ForestParams())
	if err := model.Fit(ctx, trainScaled, train.Labels); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	report := &ClassificationReport{}
	if test.Len() > 0 {
		testScaled, err := scaler.Transform(test.Features)
		if err != nil {
			return nil, fmt.Errorf("scale test rows: %w", err)
		}
		predicted, err := model.PredictBatch(testScaled)
		if err != nil {
			return nil, fmt.Errorf("evaluate classifier: %w", err)
		}
		report = Evaluate(test.Labels, predicted)
	} else {
		logger.Warn("Test partition is empty, skipping evaluation")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("training cancelled before publish: %w", err)
	}

	runID, err := t.store.Publish(model, scaler, t.signature)
	if err != nil {
		return nil, fmt.Errorf("publish artifacts: %w", err)
	}

	result := &Result{
		RunID:      runID,
		TrainRows:  train.Len(),
		TestRows:   test.Len(),
		Features:   ds.Width(),
		Classes:    model.Classes,
		Report:     report,
		Duration:   time.Since(start),
		ModelPath:  t.store.ModelPath(),
		ScalerPath: t.store.ScalerPath(),
	}

	logger.Info("Training finished", logging.Fields{
		"run_id":    runID,
		"accuracy":  report.Accuracy,
		"max_depth": model.MaxDepth(),
		"duration":  result.Duration.String(),
	})
	return result, nil
}
