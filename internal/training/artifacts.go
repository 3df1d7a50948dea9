package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/forest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/ml/preprocessing"
)

// lockName is the lock file guarding the artifact pair inside the model dir
const lockName = ".artifacts.lock"

// backupSuffix marks the previous pair while a new one is being renamed in
const backupSuffix = ".prev"

// ModelArtifact is the persisted classifier
type ModelArtifact struct {
	RunID     string               `json:"run_id"`
	CreatedAt time.Time            `json:"created_at"`
	Signature string               `json:"feature_signature"` // extractor parameters the model was trained with
	Forest    *forest.RandomForest `json:"forest"`
}

// ScalerArtifact is the persisted feature scaler
type ScalerArtifact struct {
	RunID     string                        `json:"run_id"`
	CreatedAt time.Time                     `json:"created_at"`
	Scaler    *preprocessing.StandardScaler `json:"scaler"`
}

// ArtifactStore publishes and loads the (classifier, scaler) pair. A pair is
// only ever replaced as a whole: both files are written to temporary files
// and renamed into place under an exclusive lock, and readers take a shared
// lock and refuse pairs from different runs. If either rename fails the
// previous pair is restored.
type ArtifactStore struct {
	dir        string
	modelPath  string
	scalerPath string
	lock       *flock.Flock
	rename     func(oldpath, newpath string) error
	logger     logging.Logger
}

// NewArtifactStore creates a store for the configured model locations
func NewArtifactStore(paths configs.PathsConfig) *ArtifactStore {
	return &ArtifactStore{
		dir:        paths.ModelDir,
		modelPath:  paths.ModelPath(),
		scalerPath: paths.ScalerPath(),
		lock:       flock.New(filepath.Join(paths.ModelDir, lockName)),
		rename:     os.Rename,
		logger: logging.WithFields(logging.Fields{
			"component": "artifact_store",
			"dir":       paths.ModelDir,
		}),
	}
}

// ModelPath returns the classifier location
func (s *ArtifactStore) ModelPath() string {
	return s.modelPath
}

// ScalerPath returns the scaler location
func (s *ArtifactStore) ScalerPath() string {
	return s.scalerPath
}

// Publish replaces the stored pair and returns the new run ID
func (s *ArtifactStore) Publish(model *forest.RandomForest, scaler *preprocessing.StandardScaler, signature string) (string, error) {
	if err := model.Validate(); err != nil {
		return "", fmt.Errorf("refusing to publish invalid model: %w", err)
	}
	if err := scaler.Validate(); err != nil {
		return "", fmt.Errorf("refusing to publish invalid scaler: %w", err)
	}
	if model.NumFeatures != scaler.NumFeatures() {
		return "", fmt.Errorf("model expects %d features but scaler has %d", model.NumFeatures, scaler.NumFeatures())
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	runID := uuid.NewString()
	now := time.Now().UTC()

	modelTmp, err := writeTemp(s.dir, ".model-*.tmp", ModelArtifact{
		RunID:     runID,
		CreatedAt: now,
		Signature: signature,
		Forest:    model,
	})
	if err != nil {
		return "", err
	}
	defer os.Remove(modelTmp)

	scalerTmp, err := writeTemp(s.dir, ".scaler-*.tmp", ScalerArtifact{
		RunID:     runID,
		CreatedAt: now,
		Scaler:    scaler,
	})
	if err != nil {
		return "", err
	}
	defer os.Remove(scalerTmp)

	if err := s.lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire artifact lock: %w", err)
	}
	defer s.lock.Unlock()

	logger := s.logger.WithFields(logging.Fields{
		"function": "Publish",
		"run_id":   runID,
	})

	backups, err := backupPair(s.modelPath, s.scalerPath)
	if err != nil {
		return "", err
	}

	if err := s.rename(modelTmp, s.modelPath); err != nil {
		restorePair(logger, backups)
		return "", fmt.Errorf("failed to publish model: %w", err)
	}
	if err := s.rename(scalerTmp, s.scalerPath); err != nil {
		restorePair(logger, backups)
		return "", fmt.Errorf("failed to publish scaler: %w", err)
	}
	discardBackups(backups)

	logger.Info("Artifacts published", logging.Fields{
		"model":  s.modelPath,
		"scaler": s.scalerPath,
	})
	return runID, nil
}

// backup records a live artifact and the hard link preserving it. An empty
// backup path means nothing was published there before.
type backup struct {
	live   string
	backup string
}

// backupPair links every live artifact to a sibling backup, leaving the live
// files in place for readers.
func backupPair(paths ...string) ([]backup, error) {
	backups := make([]backup, 0, len(paths))
	for _, live := range paths {
		b := backup{live: live}
		if _, err := os.Stat(live); err == nil {
			b.backup = live + backupSuffix
			os.Remove(b.backup)
			if err := linkOrCopy(live, b.backup); err != nil {
				discardBackups(backups)
				return nil, fmt.Errorf("failed to back up %s: %w", live, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			discardBackups(backups)
			return nil, fmt.Errorf("failed to stat %s: %w", live, err)
		}
		backups = append(backups, b)
	}
	return backups, nil
}

// restorePair puts the previous pair back. Artifacts that did not exist
// before the publish are removed.
func restorePair(logger logging.Logger, backups []backup) {
	for _, b := range backups {
		var err error
		if b.backup == "" {
			err = os.Remove(b.live)
			if errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
		} else {
			err = os.Rename(b.backup, b.live)
		}
		if err != nil {
			logger.Error(err, "Failed to restore previous artifact", logging.Fields{
				"path": b.live,
			})
		}
	}
}

func discardBackups(backups []backup) {
	for _, b := range backups {
		if b.backup != "" {
			os.Remove(b.backup)
		}
	}
}

func linkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Load reads the published pair. Missing, unreadable or mismatched
// artifacts yield an error matching common.ErrArtifactsUnavailable.
func (s *ArtifactStore) Load() (*ModelArtifact, *ScalerArtifact, error) {
	for _, path := range []string{s.modelPath, s.scalerPath} {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, unavailable(path, "artifact not found, run training first", err)
			}
			return nil, nil, unavailable(path, "artifact not accessible", err)
		}
	}

	if err := s.lock.RLock(); err != nil {
		return nil, nil, unavailable(s.dir, "failed to acquire artifact lock", err)
	}
	defer s.lock.Unlock()

	var model ModelArtifact
	if err := readJSON(s.modelPath, &model); err != nil {
		return nil, nil, unavailable(s.modelPath, "failed to read model", err)
	}
	var scaler ScalerArtifact
	if err := readJSON(s.scalerPath, &scaler); err != nil {
		return nil, nil, unavailable(s.scalerPath, "failed to read scaler", err)
	}

	if model.RunID == "" || model.RunID != scaler.RunID {
		return nil, nil, unavailable(s.dir, "model and scaler come from different training runs",
			fmt.Errorf("model run %q, scaler run %q", model.RunID, scaler.RunID))
	}
	if model.Forest == nil || scaler.Scaler == nil {
		return nil, nil, unavailable(s.dir, "artifact payload missing", nil)
	}
	if err := model.Forest.Validate(); err != nil {
		return nil, nil, unavailable(s.modelPath, "invalid model", err)
	}
	if err := scaler.Scaler.Validate(); err != nil {
		return nil, nil, unavailable(s.scalerPath, "invalid scaler", err)
	}

	model.Forest.SetLogger(logging.WithFields(logging.Fields{
		"component": "random_forest",
		"run_id":    model.RunID,
	}))

	s.logger.Debug("Artifacts loaded", logging.Fields{
		"function": "Load",
		"run_id":   model.RunID,
		"classes":  len(model.Forest.Classes),
		"trees":    len(model.Forest.Trees),
	})
	return &model, &scaler, nil
}

func unavailable(path, msg string, cause error) error {
	return common.NewError(common.StagePredict, path, common.ErrCodeArtifactsUnavailable, msg, cause)
}

// writeTemp writes v as JSON to a synced temporary file in dir
func writeTemp(dir, pattern string, v any) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary artifact: %w", err)
	}

	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	return f.Name(), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
