// Package audio reads and rewrites the PCM WAV clips of a dataset.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/wav"
)

// ErrInvalidWAV is returned for input that is not a decodable PCM WAV.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Clip is a decoded clip. Samples are interleaved and normalized to [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frames is the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// LengthMS is the clip length in milliseconds, rounded to the nearest one.
func (c Clip) LengthMS() int {
	if c.SampleRate <= 0 {
		return 0
	}
	return int(math.Round(float64(c.Frames()) * 1000 / float64(c.SampleRate)))
}

// WithSilence returns a copy of c with ms milliseconds of silence appended.
func (c Clip) WithSilence(ms int) Clip {
	frames := int(math.Round(float64(ms) * float64(c.SampleRate) / 1000))
	if frames <= 0 {
		return c
	}
	out := make([]float32, len(c.Samples), len(c.Samples)+frames*c.Channels)
	copy(out, c.Samples)
	out = append(out, make([]float32, frames*c.Channels)...)
	c.Samples = out
	return c
}

// DecodeWAV decodes WAV bytes of any PCM rate, channel count and bit depth.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("%w: empty input", ErrInvalidWAV)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Clip{}, ErrInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("reading PCM data: %w", err)
	}

	return Clip{
		Samples:    buf.Data,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// ReadClip decodes the WAV file at path.
func ReadClip(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, err
	}
	c, err := DecodeWAV(data)
	if err != nil {
		return Clip{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
