package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mjibson/go-dsp/wav"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// Format identifies a container the decoder understands
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

// Signal is decoded mono PCM in [-1, 1]
type Signal struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`

	// Source properties, taken from the container before any truncation
	SourceSampleRate int     `json:"source_sample_rate"`
	SourceChannels   int     `json:"source_channels"`
	SourceDuration   float64 `json:"source_duration"` // seconds
	Format           Format  `json:"format"`
}

// Duration returns the length of the decoded samples in seconds
func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// LoadOptions controls decoding
type LoadOptions struct {
	// SampleRate resamples the output when non-zero
	SampleRate int
	// MaxDuration keeps only the first MaxDuration of audio when non-zero
	MaxDuration time.Duration
}

// Decoder turns WAV and MP3 files into mono float64 signals
type Decoder struct {
	logger logging.Logger
}

// NewDecoder creates a new decoder
func NewDecoder() *Decoder {
	return &Decoder{
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// LoadFile decodes the file at path
func (d *Decoder) LoadFile(path string, opts LoadOptions) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewError("", path, common.ErrCodeDecoding, "failed to open audio file", err)
	}
	defer f.Close()

	return d.Load(path, f, opts)
}

// LoadBytes decodes an in-memory recording; name is only used for messages
// and as an extension hint.
func (d *Decoder) LoadBytes(name string, data []byte, opts LoadOptions) (*Signal, error) {
	return d.Load(name, bytes.NewReader(data), opts)
}

// Load decodes r, sniffing the container from its first bytes
func (d *Decoder) Load(name string, r io.ReadSeeker, opts LoadOptions) (*Signal, error) {
	format, err := sniffFormat(name, r)
	if err != nil {
		return nil, common.NewError("", name, common.ErrCodeDecoding, "failed to read audio header", err)
	}

	logger := d.logger.WithFields(logging.Fields{
		"function": "Load",
		"name":     name,
		"format":   format,
	})

	var sig *Signal
	switch format {
	case FormatWAV:
		sig, err = decodeWAV(r, opts.MaxDuration)
	case FormatMP3:
		sig, err = decodeMP3(r, opts.MaxDuration)
	default:
		return nil, common.NewError("", name, common.ErrCodeDecoding,
			"unsupported audio format", fmt.Errorf("extension %q", filepath.Ext(name)))
	}
	if err != nil {
		return nil, common.NewError("", name, common.ErrCodeDecoding, "failed to decode audio", err)
	}
	if len(sig.Samples) == 0 {
		return nil, common.NewError("", name, common.ErrCodeDecoding, "no audio samples", nil)
	}

	if opts.SampleRate > 0 && opts.SampleRate != sig.SampleRate {
		sig.Samples = Resample(sig.Samples, sig.SampleRate, opts.SampleRate)
		sig.SampleRate = opts.SampleRate
	}

	logger.Debug("Audio decoded", logging.Fields{
		"source_sample_rate": sig.SourceSampleRate,
		"source_channels":    sig.SourceChannels,
		"source_duration":    sig.SourceDuration,
		"samples":            len(sig.Samples),
	})

	return sig, nil
}

// DetectFormat guesses the container from a file extension
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	default:
		return FormatUnknown
	}
}

func sniffFormat(name string, r io.ReadSeeker) (Format, error) {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, err
	}
	header = header[:n]

	switch {
	case len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		return FormatWAV, nil
	case len(header) >= 3 && string(header[0:3]) == "ID3":
		return FormatMP3, nil
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}

	// Truncated or damaged headers still go to the decoder named by the
	// extension so the failure is reported as a decode error.
	return DetectFormat(name), nil
}

func decodeWAV(r io.ReadSeeker, maxDuration time.Duration) (*Signal, error) {
	dataSize, err := wavDataSize(r)
	if err != nil {
		return nil, err
	}

	w, err := wav.New(r)
	if err != nil {
		return nil, err
	}

	channels := int(w.NumChannels)
	rate := int(w.SampleRate)
	if channels <= 0 || rate <= 0 || w.BitsPerSample == 0 {
		return nil, fmt.Errorf("invalid wav header: %d channels at %d Hz", channels, rate)
	}

	// wav.Wav.Samples rounds the data chunk down to a multiple of 8 samples,
	// so frames are counted from the chunk size instead.
	blockAlign := int(w.BlockAlign)
	if blockAlign == 0 {
		blockAlign = channels * int(w.BitsPerSample) / 8
	}
	frames := int(dataSize) / blockAlign
	want := limitFrames(frames, rate, maxDuration)

	raw, err := w.ReadSamples(want * channels)
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}

	var interleaved []float64
	switch data := raw.(type) {
	case []uint8:
		interleaved = make([]float64, len(data))
		for i, v := range data {
			interleaved[i] = (float64(v) - 128) / 128
		}
	case []int16:
		interleaved = make([]float64, len(data))
		for i, v := range data {
			interleaved[i] = float64(v) / 32768
		}
	case []float32:
		interleaved = make([]float64, len(data))
		for i, v := range data {
			interleaved[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported wav sample type %T", raw)
	}

	return &Signal{
		Samples:          downmix(interleaved, channels),
		SampleRate:       rate,
		SourceSampleRate: rate,
		SourceChannels:   channels,
		SourceDuration:   float64(frames) / float64(rate),
		Format:           FormatWAV,
	}, nil
}

// wavDataSize returns the byte length declared by the data chunk and rewinds
// r. Chunks are walked the same way wav.New walks them.
func wavDataSize(r io.ReadSeeker) (uint32, error) {
	defer r.Seek(0, io.SeekStart)

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, fmt.Errorf("wav: missing RIFF/WAVE header")
	}

	for {
		if _, err := io.ReadFull(r, header[:8]); err != nil {
			return 0, err
		}
		size := binary.LittleEndian.Uint32(header[4:8])
		if string(header[:4]) == "data" {
			return size, nil
		}
		if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

func decodeMP3(r io.Reader, maxDuration time.Duration) (*Signal, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	// go-mp3 always emits 16-bit little-endian stereo
	const channels, bytesPerFrame = 2, 4
	rate := dec.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("invalid mp3 sample rate %d", rate)
	}

	var pcm []byte
	totalFrames := -1
	if length := dec.Length(); length >= 0 {
		totalFrames = int(length / bytesPerFrame)
		want := limitFrames(totalFrames, rate, maxDuration)
		pcm = make([]byte, want*bytesPerFrame)
		n, err := io.ReadFull(dec, pcm)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, fmt.Errorf("read mp3 frames: %w", err)
		}
		pcm = pcm[:n-n%bytesPerFrame]
	} else {
		limit := int64(-1)
		if maxDuration > 0 {
			limit = int64(limitFrames(int(^uint(0)>>1)/bytesPerFrame, rate, maxDuration)) * bytesPerFrame
		}
		var src io.Reader = dec
		if limit >= 0 {
			src = io.LimitReader(dec, limit)
		}
		if pcm, err = io.ReadAll(src); err != nil {
			return nil, fmt.Errorf("read mp3 frames: %w", err)
		}
		pcm = pcm[:len(pcm)-len(pcm)%bytesPerFrame]
	}

	interleaved := make([]float64, len(pcm)/2)
	for i := range interleaved {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		interleaved[i] = float64(sample) / 32768
	}

	if totalFrames < 0 {
		totalFrames = len(interleaved) / channels
	}

	return &Signal{
		Samples:          downmix(interleaved, channels),
		SampleRate:       rate,
		SourceSampleRate: rate,
		SourceChannels:   channels,
		SourceDuration:   float64(totalFrames) / float64(rate),
		Format:           FormatMP3,
	}, nil
}

func limitFrames(frames, rate int, maxDuration time.Duration) int {
	if maxDuration <= 0 {
		return frames
	}
	limit := int(maxDuration.Seconds() * float64(rate))
	return min(frames, limit)
}

// downmix averages interleaved channels into one
func downmix(interleaved []float64, channels int) []float64 {
	if channels == 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
