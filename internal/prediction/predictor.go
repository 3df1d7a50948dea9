package prediction

import (
	"context"
	"fmt"
	"io"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// VectorExtractor produces feature vectors from files or readers. It must be
// configured exactly like the extractor used to build the training table.
type VectorExtractor interface {
	ExtractFile(path string) ([]float64, error)
	ExtractReader(name string, r io.ReadSeeker) ([]float64, error)
	Signature() string
}

// Predictor classifies single tracks with a loaded artifact pair
type Predictor struct {
	artifacts *Artifacts
	extractor VectorExtractor
	logger    logging.Logger
}

// NewPredictor binds extractor to artifacts. The extractor's signature must
// match the one recorded at training time.
func NewPredictor(artifacts *Artifacts, extractor VectorExtractor) (*Predictor, error) {
	if artifacts.Signature() != extractor.Signature() {
		return nil, common.NewError(common.StagePredict, "", common.ErrCodeArtifactsUnavailable,
			"model was trained with different feature parameters",
			fmt.Errorf("model signature %q, extractor signature %q", artifacts.Signature(), extractor.Signature()))
	}
	if artifacts.scaler.NumFeatures() != artifacts.NumFeatures() {
		return nil, common.NewError(common.StagePredict, "", common.ErrCodeArtifactsUnavailable,
			"model and scaler disagree on feature count", nil)
	}

	return &Predictor{
		artifacts: artifacts,
		extractor: extractor,
		logger: logging.WithFields(logging.Fields{
			"component": "predictor",
			"run_id":    artifacts.RunID(),
		}),
	}, nil
}

// Artifacts returns the pair the predictor uses
func (p *Predictor) Artifacts() *Artifacts {
	return p.artifacts
}

// Predict classifies the audio file at path
func (p *Predictor) Predict(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	vector, err := p.extractor.ExtractFile(path)
	if err != nil {
		return "", err
	}
	return p.classify(ctx, path, vector)
}

// PredictReader classifies audio read from r. name is used for format
// detection and error messages.
func (p *Predictor) PredictReader(ctx context.Context, name string, r io.ReadSeeker) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	vector, err := p.extractor.ExtractReader(name, r)
	if err != nil {
		return "", err
	}
	return p.classify(ctx, name, vector)
}

// PredictVector classifies an already extracted, unscaled feature vector
func (p *Predictor) PredictVector(ctx context.Context, vector []float64) (string, error) {
	return p.classify(ctx, "", vector)
}

func (p *Predictor) classify(ctx context.Context, name string, vector []float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	scaled, err := p.artifacts.scaler.TransformRow(vector)
	if err != nil {
		return "", common.NewError(common.StagePredict, name, common.ErrCodeExtraction, "failed to scale features", err)
	}

	label, err := p.artifacts.model.Predict(scaled)
	if err != nil {
		return "", common.NewError(common.StagePredict, name, common.ErrCodeExtraction, "classifier rejected features", err)
	}

	p.logger.Debug("Track classified", logging.Fields{
		"function": "classify",
		"name":     name,
		"genre":    label,
	})
	return label, nil
}
