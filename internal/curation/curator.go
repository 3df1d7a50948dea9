package curation

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Status is the verdict for one discovered file
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped" // not an audio file, never counted as a rejection
)

// Reason explains a rejection
type Reason string

const (
	ReasonCorrupted     Reason = "corrupted"
	ReasonSilent        Reason = "silent"
	ReasonWrongDuration Reason = "wrong_duration"
	ReasonDuplicate     Reason = "duplicate"
)

// Title returns the human-readable form of the reason
func (r Reason) Title() string {
	switch r {
	case ReasonCorrupted:
		return "Corrupted"
	case ReasonSilent:
		return "Silent"
	case ReasonWrongDuration:
		return "Wrong duration"
	case ReasonDuplicate:
		return "Duplicate"
	default:
		return string(r)
	}
}

// Outcome is the result of curating one file
type Outcome struct {
	Track       common.Track `json:"track"`
	Status      Status       `json:"status"`
	Reason      Reason       `json:"reason,omitempty"`
	DuplicateOf string       `json:"duplicate_of,omitempty"`
	Duration    float64      `json:"duration,omitempty"` // seconds, zero when never measured
	Hash        string       `json:"hash,omitempty"`
	Err         error        `json:"-"`
}

// Report summarises a curation run
type Report struct {
	Outcomes []Outcome      `json:"outcomes"`
	Accepted []common.Track `json:"accepted"`
	Rejected map[Reason]int `json:"rejected"`
	Skipped  int            `json:"skipped"`
}

// Checked returns the number of audio files that went through the checks
func (r *Report) Checked() int {
	return len(r.Outcomes) - r.Skipped
}

// RejectedTotal returns the number of rejected files
func (r *Report) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Curator filters discovered tracks down to a clean, duplicate-free list.
// No file is ever modified or deleted.
type Curator struct {
	config   configs.CurationConfig
	decoder  *audio.Decoder
	onResult func(Outcome)
	logger   logging.Logger
}

// NewCurator creates a curator applying the checks in cfg
func NewCurator(cfg configs.CurationConfig) *Curator {
	return &Curator{
		config:  cfg,
		decoder: audio.NewDecoder(),
		logger: logging.WithFields(logging.Fields{
			"component": "dataset_curator",
		}),
	}
}

// OnOutcome registers fn to receive every outcome in discovery order
func (c *Curator) OnOutcome(fn func(Outcome)) {
	c.onResult = fn
}

// Curate checks each track in order: corrupted, silent, wrong duration,
// duplicate. The first failing check decides the rejection. Probing runs on
// a worker pool; duplicates are resolved afterwards in discovery order so
// the accepted list does not depend on the worker count.
func (c *Curator) Curate(ctx context.Context, tracks []common.Track) (*Report, error) {
	logger := c.logger.WithFields(logging.Fields{
		"function": "Curate",
		"tracks":   len(tracks),
	})
	logger.Debug("Starting dataset curation")

	workers := c.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	mapper := iter.Mapper[common.Track, Outcome]{MaxGoroutines: workers}

	probed, err := mapper.MapErr(tracks, func(t *common.Track) (Outcome, error) {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		return c.probe(*t), nil
	})
	if err != nil {
		return nil, fmt.Errorf("curation interrupted: %w", err)
	}

	registry := NewHashRegistry()
	report := &Report{
		Outcomes: make([]Outcome, 0, len(probed)),
		Rejected: make(map[Reason]int),
	}

	for _, outcome := range probed {
		if outcome.Status == StatusAccepted {
			if owner, ok := registry.Claim(outcome.Hash, outcome.Track.Path); !ok {
				outcome.Status = StatusRejected
				outcome.Reason = ReasonDuplicate
				outcome.DuplicateOf = owner
			}
		}

		switch outcome.Status {
		case StatusAccepted:
			report.Accepted = append(report.Accepted, outcome.Track)
		case StatusRejected:
			report.Rejected[outcome.Reason]++
		case StatusSkipped:
			report.Skipped++
		}

		report.Outcomes = append(report.Outcomes, outcome)
		c.logOutcome(logger, outcome)
		if c.onResult != nil {
			c.onResult(outcome)
		}
	}

	logger.Info("Dataset curation finished", logging.Fields{
		"accepted": len(report.Accepted),
		"rejected": report.RejectedTotal(),
		"skipped":  report.Skipped,
	})

	return report, nil
}

// probe runs every check except duplicate resolution
func (c *Curator) probe(t common.Track) Outcome {
	outcome := Outcome{Track: t, Status: StatusAccepted}

	if !c.config.AudioExtension(filepath.Ext(t.Path)) {
		outcome.Status = StatusSkipped
		return outcome
	}

	reject := func(reason Reason, err error) Outcome {
		outcome.Status = StatusRejected
		outcome.Reason = reason
		outcome.Err = err
		return outcome
	}

	if _, err := c.decoder.LoadFile(t.Path, audio.LoadOptions{MaxDuration: c.config.ProbeDuration}); err != nil {
		return reject(ReasonCorrupted, err)
	}

	// A file whose prefix decodes but whose body does not is treated as silent
	full, err := c.decoder.LoadFile(t.Path, audio.LoadOptions{})
	if err != nil {
		return reject(ReasonSilent, err)
	}
	if isSilent(full.Samples, c.config.SilenceEpsilon) {
		return reject(ReasonSilent, nil)
	}

	outcome.Duration = full.SourceDuration
	if !c.validDuration(full.SourceDuration) {
		return reject(ReasonWrongDuration, nil)
	}

	hash, err := HashFile(t.Path)
	if err != nil {
		return reject(ReasonCorrupted, err)
	}
	outcome.Hash = hash

	return outcome
}

// validDuration accepts target ± tolerance, both bounds inclusive
func (c *Curator) validDuration(seconds float64) bool {
	lo := (c.config.TargetDuration - c.config.Tolerance).Seconds()
	hi := (c.config.TargetDuration + c.config.Tolerance).Seconds()
	return seconds >= lo && seconds <= hi
}

// isSilent reports a mean of exactly zero or a peak magnitude below epsilon
func isSilent(samples []float64, epsilon float64) bool {
	if len(samples) == 0 || stat.Mean(samples, nil) == 0 {
		return true
	}

	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}
	return peak < epsilon
}

func (c *Curator) logOutcome(logger logging.Logger, o Outcome) {
	fields := logging.Fields{
		"path":   o.Track.Path,
		"label":  o.Track.Label,
		"status": o.Status,
	}

	switch o.Status {
	case StatusRejected:
		fields["reason"] = o.Reason
		if o.DuplicateOf != "" {
			fields["duplicate_of"] = o.DuplicateOf
		}
		if o.Err != nil {
			fields["error"] = o.Err.Error()
		}
		logger.Debug("Track rejected", fields)
	case StatusSkipped:
		logger.Debug("Non-audio file skipped", fields)
	default:
		fields["duration"] = o.Duration
		logger.Debug("Track accepted", fields)
	}
}
