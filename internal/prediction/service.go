package prediction

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Result is a classified track
type Result struct {
	Genre        string `json:"genre"`
	Mood         string `json:"mood"`
	DisplayGenre string `json:"display_genre"`
}

// Service combines a Predictor and a mood Mapper into the caller-facing
// classify contract.
type Service struct {
	predictor *Predictor
	mapper    *mood.Mapper
	missing   []string
	logger    logging.Logger
}

// NewService creates a service and warns about trained labels the mood
// table does not cover.
func NewService(predictor *Predictor, mapper *mood.Mapper) *Service {
	s := &Service{
		predictor: predictor,
		mapper:    mapper,
		logger: logging.WithFields(logging.Fields{
			"component": "classify_service",
		}),
	}
	s.missing = mapper.Covers(predictor.Artifacts().Classes())
	return s
}

// Uncovered returns the trained labels that map to the fallback mood
func (s *Service) Uncovered() []string {
	return append([]string(nil), s.missing...)
}

// Moods returns the mood table in use
func (s *Service) Moods() mood.Table {
	return s.mapper.Table()
}

// Classes returns the labels the model can predict
func (s *Service) Classes() []string {
	return s.predictor.Artifacts().Classes()
}

// Classify predicts the genre and mood of the file at path
func (s *Service) Classify(ctx context.Context, path string) (*Result, error) {
	genre, err := s.predictor.Predict(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.result(genre), nil
}

// ClassifyBytes predicts the genre and mood of an in-memory recording
func (s *Service) ClassifyBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	return s.ClassifyReader(ctx, name, bytes.NewReader(data))
}

// ClassifyReader predicts the genre and mood of audio read from r
func (s *Service) ClassifyReader(ctx context.Context, name string, r io.ReadSeeker) (*Result, error) {
	genre, err := s.predictor.PredictReader(ctx, name, r)
	if err != nil {
		return nil, err
	}
	return s.result(genre), nil
}

func (s *Service) result(genre string) *Result {
	r := &Result{
		Genre:        genre,
		Mood:         s.mapper.Mood(genre),
		DisplayGenre: DisplayGenre(genre),
	}
	s.logger.Info("Track classified", logging.Fields{
		"function": "result",
		"genre":    r.Genre,
		"mood":     r.Mood,
	})
	return r
}

// DisplayGenre capitalises a label for presentation, e.g. "hiphop" becomes
// "Hiphop".
func DisplayGenre(label string) string {
	// Casers are stateful, so one is created per call
	return cases.Title(language.English).String(label)
}
