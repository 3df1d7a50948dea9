package curation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/audio/audiotest"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

// fixtureRate keeps the 30 s fixtures small; curation never resamples
const fixtureRate = 8000

func tone(seconds float64, seed int64) []float64 {
	return audiotest.Mix(
		audiotest.Sine(220, seconds, fixtureRate, 0.4),
		audiotest.Noise(seconds, fixtureRate, 0.05, seed),
	)
}

type CurationSuite struct {
	suite.Suite
	root string
}

func TestCurationSuite(t *testing.T) {
	suite.Run(t, new(CurationSuite))
}

func (s *CurationSuite) SetupTest() {
	s.root = filepath.Join(s.T().TempDir(), "genres")
}

func (s *CurationSuite) writeWAV(rel string, samples []float64) string {
	path := filepath.Join(s.root, rel)
	s.Require().NoError(audiotest.WriteWAV(path, samples, fixtureRate))
	return path
}

func (s *CurationSuite) writeRaw(rel string, data []byte) string {
	path := filepath.Join(s.root, rel)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, data, 0o644))
	return path
}

func (s *CurationSuite) curate(workers int) *Report {
	tracks, err := Discover(s.root)
	s.Require().NoError(err)

	cfg := configs.GetDefaultCurationConfig()
	cfg.Workers = workers
	report, err := NewCurator(cfg).Curate(context.Background(), tracks)
	s.Require().NoError(err)
	return report
}

func (s *CurationSuite) TestDiscoverLabelsFromCollections() {
	s.writeWAV("blues/a.wav", tone(1, 1))
	s.writeRaw("blues/notes.txt", []byte("liner notes"))
	s.writeWAV("rock/b.wav", tone(1, 2))
	s.writeWAV("rock/live/c.wav", tone(1, 3))
	s.writeRaw("README.md", []byte("top level"))

	tracks, err := Discover(s.root)
	s.Require().NoError(err)

	abs, err := filepath.Abs(s.root)
	s.Require().NoError(err)
	s.Equal([]common.Track{
		{Path: filepath.Join(abs, "blues", "a.wav"), Label: "blues"},
		{Path: filepath.Join(abs, "blues", "notes.txt"), Label: "blues"},
		{Path: filepath.Join(abs, "rock", "b.wav"), Label: "rock"},
	}, tracks)
	s.Equal([]string{"blues", "rock"}, Labels(tracks))
}

func (s *CurationSuite) TestDiscoverMissingRoot() {
	_, err := Discover(filepath.Join(s.root, "nope"))
	s.Error(err)
}

func (s *CurationSuite) TestChecksRunInOrder() {
	good := s.writeWAV("blues/good.wav", tone(30, 1))
	s.writeRaw("blues/broken.wav", []byte("RIFF this is not really a wave file"))
	s.writeWAV("blues/quiet.wav", audiotest.Sine(220, 30, fixtureRate, 0.0005))
	s.writeWAV("blues/silent_short.wav", audiotest.Silence(5, fixtureRate))
	s.writeWAV("jazz/short.wav", tone(10, 2))
	s.writeWAV("jazz/long.wav", tone(40, 3))
	s.writeRaw("jazz/cover.jpg", []byte{0xFF, 0xD8, 0xFF})
	copied := s.writeRaw("rock/copy.wav", audiotest.EncodeWAV(tone(30, 1), fixtureRate, 1))
	kept := s.writeWAV("rock/own.wav", tone(30, 4))

	report := s.curate(0)

	byName := make(map[string]Outcome)
	for _, o := range report.Outcomes {
		byName[filepath.Base(o.Track.Path)] = o
	}

	s.Equal(StatusAccepted, byName["good.wav"].Status)
	s.Equal(ReasonCorrupted, byName["broken.wav"].Reason)
	s.Equal(ReasonSilent, byName["quiet.wav"].Reason)
	s.Equal(ReasonSilent, byName["silent_short.wav"].Reason, "silence is checked before duration")
	s.Equal(ReasonWrongDuration, byName["short.wav"].Reason)
	s.Equal(ReasonWrongDuration, byName["long.wav"].Reason)
	s.Equal(StatusSkipped, byName["cover.jpg"].Status)
	s.Equal(ReasonDuplicate, byName["copy.wav"].Reason)
	s.Equal(good, byName["copy.wav"].DuplicateOf)

	s.Equal([]string{good, kept}, paths(report.Accepted))
	s.Equal(1, report.Skipped)
	s.Equal(8, report.Checked())
	s.Equal(map[Reason]int{
		ReasonCorrupted:     1,
		ReasonSilent:        2,
		ReasonWrongDuration: 2,
		ReasonDuplicate:     1,
	}, report.Rejected)

	// Nothing is ever deleted
	for _, o := range report.Outcomes {
		s.FileExists(o.Track.Path)
	}
	s.FileExists(copied)
}

func (s *CurationSuite) TestDurationBoundariesAreInclusive() {
	s.writeWAV("pop/a_25.0.wav", tone(25.0, 1))
	s.writeWAV("pop/b_35.0.wav", tone(35.0, 2))
	s.writeWAV("pop/c_24.9.wav", tone(24.9, 3))
	s.writeWAV("pop/d_35.1.wav", tone(35.1, 4))

	report := s.curate(0)
	s.Require().Len(report.Outcomes, 4)

	s.Equal(StatusAccepted, report.Outcomes[0].Status)
	s.InDelta(25.0, report.Outcomes[0].Duration, 1e-9)
	s.Equal(StatusAccepted, report.Outcomes[1].Status)
	s.Equal(ReasonWrongDuration, report.Outcomes[2].Reason)
	s.Equal(ReasonWrongDuration, report.Outcomes[3].Reason)
}

func (s *CurationSuite) TestLowerBoundAcceptedAtCommonRates() {
	for _, rate := range []int{22050, 44100} {
		path := filepath.Join(s.root, "jazz", fmt.Sprintf("a_%d.wav", rate))
		s.Require().NoError(audiotest.WriteWAV(path, audiotest.Sine(220, 25.0, rate, 0.4), rate))
	}

	report := s.curate(0)
	s.Require().Len(report.Outcomes, 2)
	for _, o := range report.Outcomes {
		s.Equal(StatusAccepted, o.Status, o.Track.Path)
		s.Equal(25.0, o.Duration, o.Track.Path)
	}
}

func (s *CurationSuite) TestFirstOccurrenceWinsRegardlessOfWorkers() {
	original := audiotest.EncodeWAV(tone(30, 9), fixtureRate, 1)
	for _, rel := range []string{"blues/x.wav", "country/y.wav", "disco/z.wav"} {
		s.writeRaw(rel, original)
	}
	for i, rel := range []string{"blues/u.wav", "country/v.wav", "disco/w.wav"} {
		s.writeWAV(rel, tone(30, int64(20+i)))
	}

	sequential := s.curate(1)
	parallel := s.curate(8)

	s.Equal(sequential.Accepted, parallel.Accepted)
	s.Len(sequential.Accepted, 4)
	s.Equal(2, sequential.Rejected[ReasonDuplicate])

	for _, o := range sequential.Outcomes {
		if o.Reason == ReasonDuplicate {
			s.Equal("x.wav", filepath.Base(o.DuplicateOf))
		}
	}
}

func (s *CurationSuite) TestOutcomesStreamInDiscoveryOrder() {
	s.writeWAV("metal/b.wav", tone(30, 1))
	s.writeWAV("metal/a.wav", tone(30, 2))
	s.writeRaw("classical/a.txt", []byte("x"))

	tracks, err := Discover(s.root)
	s.Require().NoError(err)

	var seen []string
	c := NewCurator(configs.GetDefaultCurationConfig())
	c.OnOutcome(func(o Outcome) { seen = append(seen, o.Track.Path) })

	_, err = c.Curate(context.Background(), tracks)
	s.Require().NoError(err)
	s.Equal(paths(tracks), seen)
}

func (s *CurationSuite) TestCurateStopsWhenCancelled() {
	s.writeWAV("pop/a.wav", tone(1, 1))
	tracks, err := Discover(s.root)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewCurator(configs.GetDefaultCurationConfig()).Curate(ctx, tracks)
	s.ErrorIs(err, context.Canceled)
}

func paths(tracks []common.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Path
	}
	return out
}

func TestTrackListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	catalog := []common.Track{
		{Path: filepath.Join(dir, "genres", "rock", "a.wav"), Label: "rock"},
		{Path: filepath.Join(dir, "genres", "jazz", "b.wav"), Label: "jazz"},
		{Path: filepath.Join(dir, "genres", "jazz", "c.wav"), Label: "jazz"},
	}
	list := filepath.Join(dir, "data", "clean_files.txt")

	require.NoError(t, WriteTrackList(list, catalog[:2]))

	got, err := ReadTrackList(list, catalog)
	require.NoError(t, err)
	assert.Equal(t, catalog[:2], got)

	entries, err := os.ReadDir(filepath.Dir(list))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestReadTrackListRejectsUnknownPaths(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "clean_files.txt")
	require.NoError(t, os.WriteFile(list, []byte("/elsewhere/rock/a.wav\n"), 0o644))

	_, err := ReadTrackList(list, nil)
	assert.Error(t, err)

	_, err = ReadTrackList(filepath.Join(dir, "missing.txt"), nil)
	assert.Error(t, err)
}

func TestHashRegistryKeepsFirstClaim(t *testing.T) {
	r := NewHashRegistry()

	owner, ok := r.Claim("abc", "/a.wav")
	assert.True(t, ok)
	assert.Equal(t, "/a.wav", owner)

	owner, ok = r.Claim("abc", "/b.wav")
	assert.False(t, ok)
	assert.Equal(t, "/a.wav", owner)
	assert.Equal(t, 1, r.Len())
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	data := []byte("same bytes, same hash")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	h, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(data), h)
	assert.Len(t, h, 40)
}

func TestIsSilent(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    bool
	}{
		{"empty", nil, true},
		{"zeros", []float64{0, 0, 0}, true},
		{"zero mean", []float64{0.5, -0.5}, true},
		{"quiet", []float64{0.0002, 0.0009}, true},
		{"audible", []float64{0.2, -0.1}, false},
		{"negative peak", []float64{-0.5, 0.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSilent(tt.samples, 0.001))
		})
	}
}

func TestValidDuration(t *testing.T) {
	c := NewCurator(configs.CurationConfig{TargetDuration: 30 * time.Second, Tolerance: 5 * time.Second})

	assert.True(t, c.validDuration(25))
	assert.True(t, c.validDuration(35))
	assert.True(t, c.validDuration(30))
	assert.False(t, c.validDuration(24.999))
	assert.False(t, c.validDuration(35.001))
}
