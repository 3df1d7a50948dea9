package prediction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/curation"
	"github.com/RyanBlaney/genre-mood-classifier/internal/dataset"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
	"github.com/RyanBlaney/genre-mood-classifier/internal/training"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/audiotest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/extractors"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

var centres = map[string][]float64{
	"blues": {0, 0, 5},
	"metal": {8, 0, 5},
	"pop":   {0, 8, 5},
}

// lookupExtractor returns the centre of the genre named by the file name or
// reader content
type lookupExtractor struct {
	signature string
}

func (e lookupExtractor) lookup(key string) ([]float64, error) {
	v, ok := centres[key]
	if !ok {
		return nil, common.NewError(common.StageExtract, key, common.ErrCodeDecoding, "unknown audio", nil)
	}
	return append([]float64(nil), v...), nil
}

func (e lookupExtractor) ExtractFile(path string) ([]float64, error) {
	return e.lookup(filepath.Base(path))
}

func (e lookupExtractor) ExtractReader(name string, r io.ReadSeeker) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return e.lookup(string(data))
}

func (e lookupExtractor) Signature() string {
	return e.signature
}

func trainedStore(t *testing.T, signature string) *training.ArtifactStore {
	t.Helper()

	rng := rand.New(rand.NewSource(9))
	ds := &dataset.Dataset{}
	for _, label := range []string{"blues", "metal", "pop"} {
		for range 15 {
			row := make([]float64, 3)
			for j, c := range centres[label] {
				row[j] = c + rng.NormFloat64()
			}
			ds.Add(label, row)
		}
	}

	paths := configs.GetDefaultPathsConfig()
	paths.ModelDir = filepath.Join(t.TempDir(), "models")
	store := training.NewArtifactStore(paths)

	cfg := configs.GetDefaultTrainingConfig()
	cfg.Trees = 25
	_, err := training.NewTrainer(cfg, store, signature).Train(context.Background(), ds)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, table mood.Table) *Service {
	t.Helper()

	artifacts, err := LoadArtifacts(trainedStore(t, "lookup-v1"))
	require.NoError(t, err)
	predictor, err := NewPredictor(artifacts, lookupExtractor{signature: "lookup-v1"})
	require.NoError(t, err)
	return NewService(predictor, mood.NewMapper(table))
}

func TestLoadArtifactsWithoutTraining(t *testing.T) {
	paths := configs.GetDefaultPathsConfig()
	paths.ModelDir = filepath.Join(t.TempDir(), "models")

	_, err := LoadArtifacts(training.NewArtifactStore(paths))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrArtifactsUnavailable))

	_, statErr := os.Stat(paths.ModelPath())
	assert.True(t, os.IsNotExist(statErr), "loading must never train")
}

func TestLoadArtifactsExposesRun(t *testing.T) {
	artifacts, err := LoadArtifacts(trainedStore(t, "lookup-v1"))
	require.NoError(t, err)

	assert.NotEmpty(t, artifacts.RunID())
	assert.Equal(t, "lookup-v1", artifacts.Signature())
	assert.Equal(t, []string{"blues", "metal", "pop"}, artifacts.Classes())
	assert.Equal(t, 3, artifacts.NumFeatures())
	assert.False(t, artifacts.CreatedAt().IsZero())
}

func TestNewPredictorRejectsSignatureMismatch(t *testing.T) {
	artifacts, err := LoadArtifacts(trainedStore(t, "lookup-v1"))
	require.NoError(t, err)

	_, err = NewPredictor(artifacts, lookupExtractor{signature: "lookup-v2"})
	assert.True(t, errors.Is(err, common.ErrArtifactsUnavailable))
}

func TestPredict(t *testing.T) {
	artifacts, err := LoadArtifacts(trainedStore(t, "lookup-v1"))
	require.NoError(t, err)
	p, err := NewPredictor(artifacts, lookupExtractor{signature: "lookup-v1"})
	require.NoError(t, err)

	for label := range centres {
		got, err := p.Predict(context.Background(), filepath.Join("/music", label))
		require.NoError(t, err)
		assert.Equal(t, label, got)

		got, err = p.PredictReader(context.Background(), "upload", bytes.NewReader([]byte(label)))
		require.NoError(t, err)
		assert.Equal(t, label, got)
	}

	_, err = p.Predict(context.Background(), "/music/noise")
	assert.True(t, errors.Is(err, common.ErrDecoding))

	_, err = p.PredictVector(context.Background(), []float64{1, 2})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Predict(ctx, "/music/pop")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	s := newTestService(t, mood.DefaultTable())

	r, err := s.Classify(context.Background(), "/music/metal")
	require.NoError(t, err)
	assert.Equal(t, &Result{
		Genre:        "metal",
		Mood:         mood.DefaultTable().Moods["metal"],
		DisplayGenre: "Metal",
	}, r)

	r, err = s.ClassifyBytes(context.Background(), "song.wav", []byte("blues"))
	require.NoError(t, err)
	assert.Equal(t, "blues", r.Genre)
	assert.Equal(t, mood.DefaultTable().Moods["blues"], r.Mood)

	assert.Empty(t, s.Uncovered())
	assert.Equal(t, []string{"blues", "metal", "pop"}, s.Classes())
}

func TestClassifyFallsBackForUncoveredLabels(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mapper := mood.NewMapper(mood.Table{Moods: map[string]string{"blues": "sad"}})
	mapper.SetLogger(logging.FromZap(zap.New(core)))

	artifacts, err := LoadArtifacts(trainedStore(t, "lookup-v1"))
	require.NoError(t, err)
	predictor, err := NewPredictor(artifacts, lookupExtractor{signature: "lookup-v1"})
	require.NoError(t, err)
	s := NewService(predictor, mapper)

	assert.Equal(t, []string{"metal", "pop"}, s.Uncovered())
	assert.Equal(t, 2, logs.Len())

	r, err := s.Classify(context.Background(), "/music/pop")
	require.NoError(t, err)
	assert.Equal(t, mood.DefaultFallback, r.Mood)
}

func TestDisplayGenre(t *testing.T) {
	assert.Equal(t, "Hiphop", DisplayGenre("hiphop"))
	assert.Equal(t, "Classical", DisplayGenre("classical"))
	assert.Equal(t, "", DisplayGenre(""))
}

// TestTenGenreEndToEnd runs curation, batch extraction, training and
// classification on synthetic recordings of ten styles.
func TestTenGenreEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end pipeline in short mode")
	}

	genres := mood.DefaultTable().Labels()
	require.Len(t, genres, 10)

	root := t.TempDir()
	const perGenre = 4
	for style, genre := range genres {
		dir := filepath.Join(root, "genres", genre)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for i := range perGenre {
			samples := audiotest.GenreSignal(style, 6, audiotest.DefaultSampleRate, int64(style*100+i))
			require.NoError(t, audiotest.WriteWAV(filepath.Join(dir, fmt.Sprintf("%s.%05d.wav", genre, i)), samples, audiotest.DefaultSampleRate))
		}
	}

	tracks, err := curation.Discover(filepath.Join(root, "genres"))
	require.NoError(t, err)
	require.Len(t, tracks, 10*perGenre)

	curationConfig := configs.GetDefaultCurationConfig()
	curationConfig.TargetDuration = 6 * time.Second
	curationConfig.Tolerance = time.Second
	report, err := curation.NewCurator(curationConfig).Curate(context.Background(), tracks)
	require.NoError(t, err)
	require.Len(t, report.Accepted, 10*perGenre)

	extractor, err := extractors.NewGenreFeatureExtractor(config.DefaultFeatureConfig())
	require.NoError(t, err)
	ds, extraction, err := training.NewDatasetBuilder(extractor, 0).Build(context.Background(), report.Accepted)
	require.NoError(t, err)
	require.Empty(t, extraction.Failures)
	require.Equal(t, config.FeatureVectorLength, ds.Width())

	paths := configs.GetDefaultPathsConfig()
	paths.ModelDir = filepath.Join(root, "models")
	store := training.NewArtifactStore(paths)
	trainingConfig := configs.GetDefaultTrainingConfig()
	trainingConfig.Trees = 60
	_, err = training.NewTrainer(trainingConfig, store, extractor.Signature()).Train(context.Background(), ds)
	require.NoError(t, err)

	artifacts, err := LoadArtifacts(store)
	require.NoError(t, err)
	assert.Equal(t, genres, artifacts.Classes())
	predictor, err := NewPredictor(artifacts, extractor)
	require.NoError(t, err)
	s := NewService(predictor, mood.NewMapper(mood.DefaultTable()))
	assert.Empty(t, s.Uncovered())

	correct := 0
	for _, track := range report.Accepted {
		r, err := s.Classify(context.Background(), track.Path)
		require.NoError(t, err)
		assert.Contains(t, genres, r.Genre)
		assert.Equal(t, mood.DefaultTable().Moods[r.Genre], r.Mood)
		if r.Genre == track.Label {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, len(report.Accepted)/2)
}
