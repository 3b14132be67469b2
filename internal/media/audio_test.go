package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"reelforge/internal/domain"
)

func buildWAV(t *testing.T, sampleRate, channels, seconds int) []byte {
	t.Helper()
	bits := 16
	dataLen := sampleRate * channels * bits / 8 * seconds

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bits/8))
	binary.Write(buf, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestDecodeWAVDuration(t *testing.T) {
	data := buildWAV(t, 22050, 1, 3)
	buf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if buf.SampleRate != 22050 {
		t.Fatalf("SampleRate = %d, want 22050", buf.SampleRate)
	}
	if math.Abs(buf.Duration-3.0) > 1e-9 {
		t.Fatalf("Duration = %f, want 3.0", buf.Duration)
	}
	if len(buf.PCM) != 22050*2*3 {
		t.Fatalf("PCM length = %d, want %d", len(buf.PCM), 22050*2*3)
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte("<html>not audio</html>"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeTruncatedWAV(t *testing.T) {
	data := buildWAV(t, 8000, 1, 1)
	if _, err := Decode(data[:20]); err == nil {
		t.Fatalf("expected error for truncated wav")
	}
}

func TestRehydrateDerivesDurationFromBytes(t *testing.T) {
	scenes := []*domain.Scene{
		{ID: 0, AudioEncoded: buildWAV(t, 8000, 1, 2)},
		{ID: 1},
		{ID: 2, AudioEncoded: []byte("garbage"), Audio: &domain.AudioBuffer{}, ActualDuration: 9},
	}
	Rehydrate(scenes)

	if scenes[0].Audio == nil || math.Abs(scenes[0].ActualDuration-2.0) > 1e-9 {
		t.Fatalf("scene 0 not rehydrated: %+v", scenes[0])
	}
	if scenes[1].Audio != nil {
		t.Fatalf("scene 1 should have no audio")
	}
	if scenes[2].Audio != nil || scenes[2].ActualDuration != 0 {
		t.Fatalf("scene 2 should drop buffer and duration together: %+v", scenes[2])
	}
}
