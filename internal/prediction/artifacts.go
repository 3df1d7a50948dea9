package prediction

import (
	"time"

	"github.com/RyanBlaney/genre-mood-classifier/internal/training"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/forest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/preprocessing"
)

// Artifacts is a read-only handle to one published (classifier, scaler)
// pair. It is loaded once and shared by every prediction.
type Artifacts struct {
	runID     string
	signature string
	createdAt time.Time
	model     *forest.RandomForest
	scaler    *preprocessing.StandardScaler
}

// LoadArtifacts reads the pair published in store. It never trains: a
// missing pair yields an error matching common.ErrArtifactsUnavailable.
func LoadArtifacts(store *training.ArtifactStore) (*Artifacts, error) {
	model, scaler, err := store.Load()
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		runID:     model.RunID,
		signature: model.Signature,
		createdAt: model.CreatedAt,
		model:     model.Forest,
		scaler:    scaler.Scaler,
	}, nil
}

// RunID identifies the training run that produced the pair
func (a *Artifacts) RunID() string {
	return a.runID
}

// Signature returns the extractor parameters the model was trained with
func (a *Artifacts) Signature() string {
	return a.signature
}

// CreatedAt returns when the pair was published
func (a *Artifacts) CreatedAt() time.Time {
	return a.createdAt
}

// Classes returns a copy of the labels the classifier can predict
func (a *Artifacts) Classes() []string {
	return append([]string(nil), a.model.Classes...)
}

// NumFeatures returns the expected feature vector length
func (a *Artifacts) NumFeatures() int {
	return a.model.NumFeatures
}
