package testutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// WAVSpec describes a PCM WAV fixture.
type WAVSpec struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// MakeWAV builds a PCM WAV file. 16-bit fixtures carry a small sawtooth so
// they are not pure silence; other depths are zero-filled.
func MakeWAV(spec WAVSpec) []byte {
	blockAlign := spec.Channels * spec.BitDepth / 8
	byteRate := spec.SampleRate * blockAlign
	dataSize := spec.Frames * blockAlign
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(spec.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(spec.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(spec.BitDepth))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	if spec.BitDepth == 16 {
		for i := range spec.Frames * spec.Channels {
			_ = binary.Write(buf, binary.LittleEndian, int16((i%64-32)*256))
		}
	} else {
		buf.Write(make([]byte, dataSize))
	}

	return buf.Bytes()
}

// WriteWAV writes a MakeWAV fixture to dir/name and returns its path.
func WriteWAV(tb testing.TB, dir, name string, spec WAVSpec) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, MakeWAV(spec), 0o644); err != nil {
		tb.Fatalf("write WAV fixture: %v", err)
	}
	return path
}

// ParseWAV reads the format and frame count from a PCM WAV header.
func ParseWAV(data []byte) (WAVSpec, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return WAVSpec{}, errors.New("missing RIFF/WAVE header")
	}

	var spec WAVSpec
	haveFmt := false

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return WAVSpec{}, errors.New("truncated fmt chunk")
			}
			spec.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			spec.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			spec.BitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAVSpec{}, errors.New("data chunk before fmt chunk")
			}
			blockAlign := spec.Channels * spec.BitDepth / 8
			if blockAlign == 0 {
				return WAVSpec{}, errors.New("zero block align")
			}
			spec.Frames = size / blockAlign
			return spec, nil
		}

		offset = body + size
		// Pad to even boundary.
		if size%2 != 0 {
			offset++
		}
	}

	return WAVSpec{}, errors.New("data chunk not found in WAV")
}

// ReadWAVSpec parses the WAV file at path, failing the test on error.
func ReadWAVSpec(tb testing.TB, path string) WAVSpec {
	tb.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read WAV: %v", err)
	}
	spec, err := ParseWAV(data)
	if err != nil {
		tb.Fatalf("WAV %s: %v", path, err)
	}
	return spec
}

// AssertWAVFrames asserts the format and frame count of the WAV at path.
func AssertWAVFrames(tb testing.TB, path string, want WAVSpec) {
	tb.Helper()
	got := ReadWAVSpec(tb, path)
	if got != want {
		tb.Fatalf("WAV %s = %+v, want %+v", filepath.Base(path), got, want)
	}
}
