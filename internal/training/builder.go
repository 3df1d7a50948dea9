package training

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"

	"github.com/RyanBlaney/genre-mood-classifier/internal/curation"
	"github.com/RyanBlaney/genre-mood-classifier/internal/dataset"
	"github.com/RyanBlaney/genre-mood-classifier/internal/featurecache"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// FeatureExtractor turns an audio file into a fixed-length feature vector
type FeatureExtractor interface {
	ExtractFile(path string) ([]float64, error)
	Signature() string
}

// Extraction is the outcome of extracting one track
type Extraction struct {
	Track    common.Track
	Features []float64
	Cached   bool
	Err      error
}

// ExtractionReport summarises a batch extraction
type ExtractionReport struct {
	Processed int          `json:"processed"`
	CacheHits int          `json:"cache_hits"`
	Failures  []Extraction `json:"-"`
	Err       error        `json:"-"` // every failure combined
}

// DatasetBuilder extracts features for a track list into a Dataset
type DatasetBuilder struct {
	extractor FeatureExtractor
	cache     *featurecache.Cache
	workers   int
	onResult  func(Extraction)
	logger    logging.Logger
}

// NewDatasetBuilder creates a builder running at most workers extractions
// at once; 0 uses GOMAXPROCS.
func NewDatasetBuilder(extractor FeatureExtractor, workers int) *DatasetBuilder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &DatasetBuilder{
		extractor: extractor,
		workers:   workers,
		logger: logging.WithFields(logging.Fields{
			"component": "dataset_builder",
		}),
	}
}

// WithCache makes the builder reuse and record vectors in cache
func (b *DatasetBuilder) WithCache(cache *featurecache.Cache) *DatasetBuilder {
	b.cache = cache
	return b
}

// OnResult registers fn to receive every extraction in track order
func (b *DatasetBuilder) OnResult(fn func(Extraction)) {
	b.onResult = fn
}

// Build extracts every track, keeping input order. Failed tracks are left
// out of the dataset and recorded in the report; only cancellation aborts
// the batch.
func (b *DatasetBuilder) Build(ctx context.Context, tracks []common.Track) (*dataset.Dataset, *ExtractionReport, error) {
	logger := b.logger.WithFields(logging.Fields{
		"function": "Build",
		"tracks":   len(tracks),
		"workers":  b.workers,
	})
	logger.Debug("Starting batch feature extraction")

	mapper := iter.Mapper[common.Track, Extraction]{MaxGoroutines: b.workers}
	results, err := mapper.MapErr(tracks, func(t *common.Track) (Extraction, error) {
		if err := ctx.Err(); err != nil {
			return Extraction{}, err
		}
		return b.extract(ctx, *t), nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("feature extraction interrupted: %w", err)
	}

	ds := &dataset.Dataset{}
	report := &ExtractionReport{}
	for _, r := range results {
		if r.Err != nil {
			report.Failures = append(report.Failures, r)
			report.Err = multierr.Append(report.Err, r.Err)
			logger.Error(r.Err, "Feature extraction failed", logging.Fields{
				"path":  r.Track.Path,
				"label": r.Track.Label,
				"code":  common.CodeOf(r.Err),
			})
		} else {
			ds.Add(r.Track.Label, r.Features)
			report.Processed++
			if r.Cached {
				report.CacheHits++
			}
		}

		if b.onResult != nil {
			b.onResult(r)
		}
	}

	logger.Info("Batch feature extraction finished", logging.Fields{
		"processed":  report.Processed,
		"failed":     len(report.Failures),
		"cache_hits": report.CacheHits,
	})
	return ds, report, nil
}

func (b *DatasetBuilder) extract(ctx context.Context, t common.Track) Extraction {
	result := Extraction{Track: t}

	var hash string
	if b.cache != nil {
		h, err := curation.HashFile(t.Path)
		if err != nil {
			result.Err = common.NewError(common.StageExtract, t.Path, common.ErrCodeDecoding, "failed to read audio file", err)
			return result
		}
		hash = h

		vector, ok, err := b.cache.Get(ctx, hash, b.extractor.Signature())
		if err != nil {
			b.logger.Warn("Feature cache lookup failed", logging.Fields{
				"path":  t.Path,
				"error": err.Error(),
			})
		} else if ok && len(vector) > 0 {
			result.Features = vector
			result.Cached = true
			return result
		}
	}

	vector, err := b.extractor.ExtractFile(t.Path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Features = vector

	if b.cache != nil {
		if err := b.cache.Put(ctx, hash, b.extractor.Signature(), t.Path, vector); err != nil {
			b.logger.Warn("Feature cache store failed", logging.Fields{
				"path":  t.Path,
				"error": err.Error(),
			})
		}
	}
	return result
}
