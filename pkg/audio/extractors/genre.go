package extractors

import (
	"fmt"
	"io"

	"github.com/RyanBlaney/sonido-sonar/algorithms/spectral"
	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/analyzers"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// GenreFeatureExtractor turns a recording into the fixed-length vector the
// genre classifier is trained on. It is safe for concurrent use.
type GenreFeatureExtractor struct {
	config   config.FeatureConfig
	decoder  *audio.Decoder
	analyzer *analyzers.SpectralAnalyzer

	// mfcc is initialised up front and only read afterwards
	mfcc       *spectral.MFCC
	chromaBank *mat.Dense
	tonnetz    *mat.Dense

	logger logging.Logger
}

// NewGenreFeatureExtractor creates an extractor for the given analysis parameters
func NewGenreFeatureExtractor(featureConfig config.FeatureConfig) (*GenreFeatureExtractor, error) {
	if err := featureConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}

	sr, n := featureConfig.SampleRate, featureConfig.WindowSize
	mfcc := spectral.NewMFCCWithParams(sr, spectral.MFCCParams{
		NumCoefficients: config.MFCCCoefficients,
		NumMelFilters:   config.MelBands,
		LowFreq:         0,
		HighFreq:        float64(sr) / 2,
		UseLiftering:    false,
	})
	if err := mfcc.Initialize(n); err != nil {
		return nil, fmt.Errorf("mfcc: %w", err)
	}

	return &GenreFeatureExtractor{
		config:     featureConfig,
		decoder:    audio.NewDecoder(),
		analyzer:   analyzers.NewSpectralAnalyzer(sr),
		mfcc:       mfcc,
		chromaBank: analyzers.ChromaFilterBank(sr, n, config.ChromaBins),
		tonnetz:    analyzers.TonnetzBasis(config.ChromaBins),
		logger: logging.WithFields(logging.Fields{
			"component": "genre_feature_extractor",
		}),
	}, nil
}

func (e *GenreFeatureExtractor) GetName() string {
	return "GenreFeatureExtractor"
}

// Config returns the analysis parameters
func (e *GenreFeatureExtractor) Config() config.FeatureConfig {
	return e.config
}

// Signature identifies the analysis parameters of every vector this
// extractor produces.
func (e *GenreFeatureExtractor) Signature() string {
	return e.config.Signature()
}

func (e *GenreFeatureExtractor) loadOptions() audio.LoadOptions {
	return audio.LoadOptions{
		SampleRate:  e.config.SampleRate,
		MaxDuration: e.config.Duration,
	}
}

// ExtractFile decodes the file at path and extracts its feature vector
func (e *GenreFeatureExtractor) ExtractFile(path string) ([]float64, error) {
	sig, err := e.decoder.LoadFile(path, e.loadOptions())
	if err != nil {
		return nil, err
	}
	return e.extract(path, sig)
}

// ExtractReader decodes r and extracts its feature vector
func (e *GenreFeatureExtractor) ExtractReader(name string, r io.ReadSeeker) ([]float64, error) {
	sig, err := e.decoder.Load(name, r, e.loadOptions())
	if err != nil {
		return nil, err
	}
	return e.extract(name, sig)
}

// Extract computes the feature vector of an already decoded signal
func (e *GenreFeatureExtractor) Extract(sig *audio.Signal) ([]float64, error) {
	return e.extract("", sig)
}

func (e *GenreFeatureExtractor) extract(name string, sig *audio.Signal) ([]float64, error) {
	features, err := e.ExtractFeatures(sig)
	if err != nil {
		return nil, common.NewError(common.StageExtract, name, common.ErrCodeExtraction, "feature extraction failed", err)
	}

	vector, err := features.Vector()
	if err != nil {
		return nil, common.NewError(common.StageExtract, name, common.ErrCodeExtraction, "feature vector assembly failed", err)
	}
	if !analyzers.AllFinite(vector) {
		return nil, common.NewError(common.StageExtract, name, common.ErrCodeExtraction, "feature vector contains non-finite values", nil)
	}
	return vector, nil
}

// ExtractFeatures computes every feature block of sig. Signals at another
// rate are resampled and anything past the configured duration is ignored.
func (e *GenreFeatureExtractor) ExtractFeatures(sig *audio.Signal) (*GenreFeatures, error) {
	if sig == nil || len(sig.Samples) == 0 {
		return nil, fmt.Errorf("PCM data cannot be empty")
	}
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	pcm := sig.Samples
	if sig.SampleRate != e.config.SampleRate {
		pcm = audio.Resample(pcm, sig.SampleRate, e.config.SampleRate)
	}
	if limit := int(e.config.Duration.Seconds() * float64(e.config.SampleRate)); len(pcm) > limit {
		pcm = pcm[:limit]
	}

	logger := e.logger.WithFields(logging.Fields{
		"function": "ExtractFeatures",
		"samples":  len(pcm),
	})

	spectrogram, err := e.analyzer.STFT(pcm, e.config.WindowSize, e.config.HopSize)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}
	power := e.analyzer.ComputePowerSpectrum(spectrogram)

	features := &GenreFeatures{
		ExtractionMetadata: map[string]any{
			"extractor_type": "genre",
			"time_frames":    spectrogram.TimeFrames,
			"signature":      e.Signature(),
		},
	}

	features.MFCC, features.MelSpectrum, err = e.extractMFCCAndMel(spectrogram)
	if err != nil {
		logger.Error(err, "Failed to extract MFCC")
		return nil, fmt.Errorf("mfcc: %w", err)
	}

	chroma, err := analyzers.Chromagram(pcm, e.config.SampleRate, e.config.WindowSize, e.config.HopSize)
	if err != nil {
		logger.Error(err, "Failed to extract chroma")
		return nil, fmt.Errorf("chroma: %w", err)
	}
	features.Chroma = analyzers.ColumnMeans(chroma)

	contrast, err := analyzers.SpectralContrast(spectrogram, e.config.ContrastFMin, config.ContrastBands)
	if err != nil {
		logger.Error(err, "Failed to extract spectral contrast")
		return nil, fmt.Errorf("spectral contrast: %w", err)
	}
	features.SpectralContrast = analyzers.ColumnMeans(contrast)

	tonnetz, err := e.extractTonnetz(spectrogram, power)
	if err != nil {
		logger.Error(err, "Failed to extract tonnetz")
		return nil, fmt.Errorf("tonnetz: %w", err)
	}
	features.Tonnetz = tonnetz

	logger.Debug("Genre features extracted", logging.Fields{
		"time_frames": spectrogram.TimeFrames,
	})

	return features, nil
}

// extractMFCCAndMel returns the mean MFCCs and the mean mel power over
// every frame.
func (e *GenreFeatureExtractor) extractMFCCAndMel(spectrogram *analyzers.SpectrogramResult) ([]float64, []float64, error) {
	mfccFrames := make([][]float64, spectrogram.TimeFrames)
	melFrames := make([][]float64, spectrogram.TimeFrames)
	for t, magnitude := range spectrogram.Magnitude {
		result, err := e.mfcc.Compute(magnitude)
		if err != nil {
			return nil, nil, fmt.Errorf("frame %d: %w", t, err)
		}
		mfccFrames[t] = result.MFCC
		melFrames[t] = result.MelSpectrum
	}
	return analyzers.ColumnMeans(analyzers.ToDense(mfccFrames)), analyzers.ColumnMeans(analyzers.ToDense(melFrames)), nil
}

// extractTonnetz projects the chroma of the harmonic component onto the
// tonal centroid basis.
func (e *GenreFeatureExtractor) extractTonnetz(spectrogram *analyzers.SpectrogramResult, power [][]float64) ([]float64, error) {
	mask, err := analyzers.HarmonicMask(spectrogram, e.config.HPSSKernel, e.config.HPSSMargin)
	if err != nil {
		return nil, err
	}

	// |X * mask|^2 = mask^2 * |X|^2
	harmonic := mask
	for t := range harmonic {
		for f, m := range harmonic[t] {
			harmonic[t][f] = m * m * power[t][f]
		}
	}

	chroma := analyzers.ApplyBank(harmonic, e.chromaBank)
	analyzers.NormalizeRows(chroma, 1)

	var tonnetz mat.Dense
	tonnetz.Mul(chroma, e.tonnetz.T())
	return analyzers.ColumnMeans(&tonnetz), nil
}
