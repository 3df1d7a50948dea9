// Package audiotest generates synthetic recordings for tests across the module.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// DefaultSampleRate is the rate used by the generators unless told otherwise
const DefaultSampleRate = 22050

// Sine returns seconds of a sine tone at freq Hz
func Sine(freq, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Chord sums equal-amplitude sines; amplitude is the peak of the sum
func Chord(freqs []float64, seconds float64, sampleRate int, amplitude float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for _, f := range freqs {
		tone := Sine(f, seconds, sampleRate, amplitude/float64(len(freqs)))
		for i := range out {
			out[i] += tone[i]
		}
	}
	return out
}

// Noise returns seeded uniform white noise
func Noise(seconds float64, sampleRate int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, int(seconds*float64(sampleRate)))
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

// Clicks returns decaying noise bursts every period seconds
func Clicks(period, seconds float64, sampleRate int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, int(seconds*float64(sampleRate)))
	step := int(period * float64(sampleRate))
	decay := float64(sampleRate) / 200
	for start := 0; start < len(out); start += step {
		for i := 0; i < step && start+i < len(out); i++ {
			env := math.Exp(-float64(i) / decay)
			out[start+i] = amplitude * env * (2*rng.Float64() - 1)
		}
	}
	return out
}

// Silence returns seconds of digital silence
func Silence(seconds float64, sampleRate int) []float64 {
	return make([]float64, int(seconds*float64(sampleRate)))
}

// Mix adds signals sample by sample, truncating to the shortest
func Mix(signals ...[]float64) []float64 {
	if len(signals) == 0 {
		return nil
	}
	n := len(signals[0])
	for _, s := range signals[1:] {
		n = min(n, len(s))
	}
	out := make([]float64, n)
	for _, s := range signals {
		for i := range out {
			out[i] += s[i]
		}
	}
	return out
}

// EncodeWAV renders mono samples as a 16-bit PCM WAV file with the given
// number of identical channels.
func EncodeWAV(samples []float64, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(samples) * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		v := int16(math.Round(math.Max(-1, math.Min(1, s)) * 32767))
		for range channels {
			binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	return buf.Bytes()
}

// WriteWAV writes a mono 16-bit WAV file, creating parent directories
func WriteWAV(path string, samples []float64, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, EncodeWAV(samples, sampleRate, 1), 0o644)
}

// GenreSignal synthesises a recording with a timbre that depends on style,
// so classifiers can tell styles apart. Different seeds vary the
// recording without changing its style.
func GenreSignal(style int, seconds float64, sampleRate int, seed int64) []float64 {
	root := 110 * math.Pow(2, float64(style%5)/5)
	detune := 1 + 0.002*float64(seed%7)

	var parts [][]float64
	switch style % 4 {
	case 0:
		parts = append(parts, Chord([]float64{root * detune, root * 1.5, root * 2}, seconds, sampleRate, 0.5))
	case 1:
		parts = append(parts, Chord([]float64{root * detune, root * 1.26, root * 1.5, root * 4}, seconds, sampleRate, 0.5))
	case 2:
		parts = append(parts, Sine(root*4*detune, seconds, sampleRate, 0.3))
	case 3:
		parts = append(parts, Chord([]float64{root * 8 * detune, root * 12}, seconds, sampleRate, 0.3))
	}

	if style >= 5 {
		parts = append(parts, Clicks(0.25+0.05*float64(style-5), seconds, sampleRate, 0.4, seed))
	} else {
		parts = append(parts, Noise(seconds, sampleRate, 0.01*float64(style+1), seed))
	}
	return Mix(parts...)
}
