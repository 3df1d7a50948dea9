package extractors

import (
	"fmt"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/config"
)

// GenreFeatures holds the frame-averaged blocks that make up one feature vector
type GenreFeatures struct {
	MFCC             []float64 `json:"mfcc"`              // Timbre: cepstrum of the dB mel spectrum
	Chroma           []float64 `json:"chroma"`            // Energy per pitch class, C first
	MelSpectrum      []float64 `json:"mel_spectrum"`      // Mean mel-band power
	SpectralContrast []float64 `json:"spectral_contrast"` // Peak/valley dB difference per octave band
	Tonnetz          []float64 `json:"tonnetz"`           // Tonal centroid of the harmonic part

	// Extraction metadata
	ExtractionMetadata map[string]any `json:"extraction_metadata,omitempty"`
}

// Block names one contiguous section of the feature vector
type Block struct {
	Name string
	Size int
}

// Blocks lists the vector layout in order
var Blocks = []Block{
	{Name: "mfcc", Size: config.MFCCCoefficients},
	{Name: "chroma", Size: config.ChromaBins},
	{Name: "mel", Size: config.MelBands},
	{Name: "contrast", Size: config.ContrastBands},
	{Name: "tonnetz", Size: config.TonnetzDims},
}

// Vector concatenates the blocks in layout order
func (g *GenreFeatures) Vector() ([]float64, error) {
	parts := [][]float64{g.MFCC, g.Chroma, g.MelSpectrum, g.SpectralContrast, g.Tonnetz}

	vector := make([]float64, 0, config.FeatureVectorLength)
	for i, block := range Blocks {
		if len(parts[i]) != block.Size {
			return nil, fmt.Errorf("%s block has %d values, want %d", block.Name, len(parts[i]), block.Size)
		}
		vector = append(vector, parts[i]...)
	}
	return vector, nil
}

// SplitVector slices a feature vector back into its named blocks
func SplitVector(vector []float64) (map[string][]float64, error) {
	if len(vector) != config.FeatureVectorLength {
		return nil, fmt.Errorf("feature vector has %d values, want %d", len(vector), config.FeatureVectorLength)
	}

	blocks := make(map[string][]float64, len(Blocks))
	offset := 0
	for _, block := range Blocks {
		blocks[block.Name] = vector[offset : offset+block.Size]
		offset += block.Size
	}
	return blocks, nil
}
