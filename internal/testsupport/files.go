package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WAV encodes mono 16-bit PCM samples in [-1, 1] as a RIFF/WAVE file.
func WAV(samples []float64, sampleRate int) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		_ = binary.Write(&data, binary.LittleEndian, int16(s*math.MaxInt16))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// WriteWAV writes a short sine tone as a WAV file at path.
func WriteWAV(t testing.TB, path string) {
	t.Helper()

	const rate = 8000
	samples := make([]float64, rate/10)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	WriteFile(t, path, WAV(samples, rate))
}

// WriteFLAC writes a file carrying the FLAC stream marker followed by padding.
// It sniffs as audio/flac but is not decodable.
func WriteFLAC(t testing.TB, path string) {
	t.Helper()

	content := append([]byte("fLaC"), bytes.Repeat([]byte{0}, 60)...)
	WriteFile(t, path, content)
}
