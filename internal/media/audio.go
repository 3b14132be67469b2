package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"reelforge/internal/domain"
)

// ErrUnsupportedFormat is returned when the encoded bytes match neither a
// WAV container nor an MP3 stream.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode turns encoded narration audio into a PCM buffer with a measured
// duration. The duration read here is authoritative for scene timing, so both
// branches compute it from the decoded sample count rather than any header
// hint.
func Decode(data []byte) (*domain.AudioBuffer, error) {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")):
		return decodeWAV(data)
	case looksLikeMP3(data):
		return decodeMP3(data)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Rehydrate re-derives decoded buffers for scenes loaded from a snapshot,
// which stores only the encoded bytes. Scenes whose bytes no longer decode
// lose both the buffer and the actual duration together.
func Rehydrate(scenes []*domain.Scene) {
	for _, s := range scenes {
		if len(s.AudioEncoded) == 0 {
			continue
		}
		buf, err := Decode(s.AudioEncoded)
		if err != nil {
			s.Audio = nil
			s.ActualDuration = 0
			continue
		}
		s.Audio = buf
		s.ActualDuration = buf.Duration
	}
}

func looksLikeMP3(data []byte) bool {
	if len(data) < 3 {
		return false
	}
	if bytes.Equal(data[:3], []byte("ID3")) {
		return true
	}
	// Frame sync: eleven set bits.
	return data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func decodeMP3(data []byte) (*domain.AudioBuffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 samples: %w", err)
	}
	rate := dec.SampleRate()
	if rate <= 0 || len(pcm) == 0 {
		return nil, fmt.Errorf("decode mp3: empty stream")
	}
	// go-mp3 always emits 16-bit stereo.
	duration := float64(len(pcm)) / float64(rate*4)
	return &domain.AudioBuffer{PCM: pcm, SampleRate: rate, Duration: duration}, nil
}

// decodeWAV handles canonical PCM RIFF files, walking chunks until it finds
// fmt and data.
func decodeWAV(data []byte) (*domain.AudioBuffer, error) {
	if len(data) < 12 || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("decode wav: not a WAVE container")
	}

	var (
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		pcm           []byte
		haveFmt       bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := data[offset : offset+4]
		chunkLen := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkLen > len(data) {
			return nil, fmt.Errorf("decode wav: truncated %q chunk", chunkID)
		}
		switch string(chunkID) {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("decode wav: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("decode wav: unsupported format %d", format)
			}
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkLen]
		}
		// Chunks are word-aligned.
		offset = body + chunkLen + chunkLen%2
	}

	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("decode wav: missing fmt or data chunk")
	}
	if channels == 0 || sampleRate == 0 || bitsPerSample == 0 {
		return nil, fmt.Errorf("decode wav: invalid fmt chunk")
	}

	bytesPerSecond := int(sampleRate) * int(channels) * int(bitsPerSample) / 8
	if bytesPerSecond == 0 {
		return nil, fmt.Errorf("decode wav: invalid fmt chunk")
	}
	duration := float64(len(pcm)) / float64(bytesPerSecond)
	return &domain.AudioBuffer{PCM: pcm, SampleRate: int(sampleRate), Duration: duration}, nil
}
