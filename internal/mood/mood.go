package mood

import (
	"maps"
	"slices"
	"strings"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// DefaultFallback is reported for labels the table does not know
const DefaultFallback = "🙂 Neutral Mood"

// Table maps genre labels to mood phrases
type Table struct {
	Moods    map[string]string `json:"moods" yaml:"moods"`
	Fallback string            `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// DefaultTable returns the moods for the ten GTZAN genres
func DefaultTable() Table {
	return Table{
		Moods: map[string]string{
			"classical": "😌 Calm / Relaxed",
			"jazz":      "🎷 Chill / Smooth",
			"blues":     "😔 Sad / Emotional",
			"hiphop":    "💪 Energetic / Confident",
			"rock":      "🔥 Powerful / Aggressive",
			"metal":     "🤘 Intense / Angry",
			"reggae":    "🌴 Chill / Happy",
			"pop":       "😊 Happy / Bright",
			"country":   "🏞 Relaxed / Storytelling",
			"disco":     "💃 Party / Dance",
		},
		Fallback: DefaultFallback,
	}
}

// Labels returns the table's labels in sorted order
func (t Table) Labels() []string {
	return slices.Sorted(maps.Keys(t.Moods))
}

// Mapper resolves predicted labels to moods. It is safe for concurrent use
// because the table is copied on construction and never modified.
type Mapper struct {
	moods    map[string]string
	fallback string
	logger   logging.Logger
}

// NewMapper creates a mapper over a copy of table. An empty fallback is
// replaced by DefaultFallback.
func NewMapper(table Table) *Mapper {
	fallback := table.Fallback
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultFallback
	}

	return &Mapper{
		moods:    maps.Clone(table.Moods),
		fallback: fallback,
		logger: logging.WithFields(logging.Fields{
			"component": "mood_mapper",
		}),
	}
}

// Mood returns the mood for label, or the fallback. It never fails.
func (m *Mapper) Mood(label string) string {
	if mood, ok := m.moods[label]; ok {
		return mood
	}
	return m.fallback
}

// Fallback returns the phrase used for unknown labels
func (m *Mapper) Fallback() string {
	return m.fallback
}

// Covers returns the labels that have no entry in the table, sorted. Each
// missing label is logged as a warning.
func (m *Mapper) Covers(labels []string) []string {
	var missing []string
	for _, label := range labels {
		if _, ok := m.moods[label]; !ok {
			missing = append(missing, label)
		}
	}
	slices.Sort(missing)
	missing = slices.Compact(missing)

	for _, label := range missing {
		m.logger.Warn("Trained label has no mood, fallback will be used", logging.Fields{
			"function": "Covers",
			"label":    label,
			"fallback": m.fallback,
		})
	}
	return missing
}

// Table returns a copy of the mapper's table
func (m *Mapper) Table() Table {
	return Table{Moods: maps.Clone(m.moods), Fallback: m.fallback}
}

// SetLogger replaces the logger
func (m *Mapper) SetLogger(logger logging.Logger) {
	m.logger = logger
}
