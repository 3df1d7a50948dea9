package extractors

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-sonar/algorithms/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/audiotest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

func newTestExtractor(t *testing.T, duration time.Duration) *GenreFeatureExtractor {
	t.Helper()
	cfg := config.DefaultFeatureConfig()
	cfg.Duration = duration
	e, err := NewGenreFeatureExtractor(cfg)
	require.NoError(t, err)
	return e
}

func signal(samples []float64) *audio.Signal {
	return &audio.Signal{Samples: samples, SampleRate: audiotest.DefaultSampleRate}
}

func TestExtractProducesFixedLengthVector(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	for style := range 3 {
		vector, err := e.Extract(signal(audiotest.GenreSignal(style, 3, audiotest.DefaultSampleRate, 1)))
		require.NoError(t, err)
		assert.Len(t, vector, common.FeatureVectorLength)
		assert.Len(t, vector, config.FeatureVectorLength)
	}
}

func TestBlockLayout(t *testing.T) {
	sizes := make([]int, len(Blocks))
	names := make([]string, len(Blocks))
	for i, b := range Blocks {
		sizes[i], names[i] = b.Size, b.Name
	}

	assert.Equal(t, []string{"mfcc", "chroma", "mel", "contrast", "tonnetz"}, names)
	assert.Equal(t, []int{20, 12, 128, 7, 6}, sizes)
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)
	samples := audiotest.GenreSignal(6, 2, audiotest.DefaultSampleRate, 3)

	first, err := e.Extract(signal(samples))
	require.NoError(t, err)
	second, err := e.Extract(signal(samples))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractUsesOnlyConfiguredPrefix(t *testing.T) {
	e := newTestExtractor(t, 2*time.Second)
	long := audiotest.GenreSignal(2, 3, audiotest.DefaultSampleRate, 5)

	full, err := e.Extract(signal(long))
	require.NoError(t, err)
	prefix, err := e.Extract(signal(long[:2*audiotest.DefaultSampleRate]))
	require.NoError(t, err)

	assert.Equal(t, prefix, full)
}

func TestChromaBlockFollowsPitch(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	vector, err := e.Extract(signal(audiotest.Sine(440, 2, audiotest.DefaultSampleRate, 0.5)))
	require.NoError(t, err)

	blocks, err := SplitVector(vector)
	require.NoError(t, err)
	assert.Equal(t, 9, floats.MaxIdx(blocks["chroma"]), "A440 peaks in pitch class A")
}

func TestMelBankHasNoEmptyFilters(t *testing.T) {
	cfg := config.DefaultFeatureConfig()
	bank := spectral.NewMelScale().CreateMelFilterBank(config.MelBands, cfg.WindowSize, cfg.SampleRate, 0, float64(cfg.SampleRate)/2)

	require.Len(t, bank, config.MelBands)
	for i, filter := range bank {
		require.Len(t, filter, cfg.WindowSize/2+1)
		assert.Greater(t, floats.Sum(filter), 0.0, "filter %d is empty", i)
	}
}

func TestLouderSignalRaisesEnergyBlocks(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	quiet, err := e.Extract(signal(audiotest.Sine(440, 1, audiotest.DefaultSampleRate, 0.1)))
	require.NoError(t, err)
	loud, err := e.Extract(signal(audiotest.Sine(440, 1, audiotest.DefaultSampleRate, 0.8)))
	require.NoError(t, err)

	quietBlocks, err := SplitVector(quiet)
	require.NoError(t, err)
	loudBlocks, err := SplitVector(loud)
	require.NoError(t, err)

	assert.Greater(t, loudBlocks["mfcc"][0], quietBlocks["mfcc"][0], "c0 tracks log energy")
	assert.Greater(t, floats.Sum(loudBlocks["mel"]), floats.Sum(quietBlocks["mel"]))
	assert.InDeltaSlice(t, quietBlocks["chroma"], loudBlocks["chroma"], 1e-6, "chroma is level independent")
}

func TestExtractIsSafeForConcurrentUse(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)
	samples := audiotest.GenreSignal(4, 1, audiotest.DefaultSampleRate, 2)

	want, err := e.Extract(signal(samples))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = e.Extract(signal(samples))
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestExtractResamplesForeignRates(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	vector, err := e.Extract(&audio.Signal{
		Samples:    audiotest.Sine(440, 1, 44100, 0.5),
		SampleRate: 44100,
	})
	require.NoError(t, err)
	assert.Len(t, vector, common.FeatureVectorLength)
}

func TestExtractFile(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)
	dir := t.TempDir()

	path := filepath.Join(dir, "clip.wav")
	require.NoError(t, audiotest.WriteWAV(path, audiotest.GenreSignal(1, 2, audiotest.DefaultSampleRate, 1), audiotest.DefaultSampleRate))

	vector, err := e.ExtractFile(path)
	require.NoError(t, err)
	assert.Len(t, vector, common.FeatureVectorLength)

	_, err = e.ExtractFile(filepath.Join(dir, "missing.wav"))
	assert.True(t, errors.Is(err, common.ErrDecoding), "got %v", err)
}

func TestExtractRejectsEmptySignal(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	_, err := e.Extract(&audio.Signal{SampleRate: audiotest.DefaultSampleRate})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtraction))
}

func TestSilenceGivesFiniteVector(t *testing.T) {
	e := newTestExtractor(t, 30*time.Second)

	vector, err := e.Extract(signal(audiotest.Silence(1, audiotest.DefaultSampleRate)))
	require.NoError(t, err)
	assert.Len(t, vector, common.FeatureVectorLength)
}

func TestSplitVectorRejectsWrongLength(t *testing.T) {
	_, err := SplitVector(make([]float64, 10))
	assert.Error(t, err)
}

func TestSignatureTracksParameters(t *testing.T) {
	a := newTestExtractor(t, 30*time.Second)

	cfg := config.DefaultFeatureConfig()
	cfg.HopSize = 256
	b, err := NewGenreFeatureExtractor(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a.Signature(), b.Signature())
	assert.Equal(t, config.DefaultFeatureConfig().Signature(), a.Signature())
}

func TestNewGenreFeatureExtractorValidates(t *testing.T) {
	cfg := config.DefaultFeatureConfig()
	cfg.HPSSKernel = 4
	_, err := NewGenreFeatureExtractor(cfg)
	assert.Error(t, err)
}
