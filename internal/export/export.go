// Package export packages a finished (possibly partially populated) scene
// list for the offline compositor: per-scene media files named by scene id
// plus a manifest referencing them.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/timeline"
	"reelforge/pkg/zip"
)

// Mode selects how media lands in the manifest: as file-path references next
// to the archive entries, or inlined into the manifest itself. The two
// representations are mutually exclusive per field and compositors accept
// both.
type Mode int

const (
	// ModeFileRefs writes media as separate files and references them by name.
	ModeFileRefs Mode = iota
	// ModeInline embeds the encoded media directly in the manifest.
	ModeInline
)

// Manifest is the compositor contract for one project.
type Manifest struct {
	Topic         string          `json:"topic"`
	PlaybackSpeed float64         `json:"playbackSpeed"`
	SafetyBuffer  float64         `json:"safetyBufferSeconds"`
	TotalSeconds  float64         `json:"totalSeconds"`
	Scenes        []ManifestScene `json:"scenes"`
}

// ManifestScene carries one scene's text, timing, and media. For each media
// kind either the file reference or the inline bytes is set, never both.
type ManifestScene struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Narration        string  `json:"narration"`
	DurationSeconds  float64 `json:"durationSeconds"`
	EffectiveSeconds float64 `json:"effectiveSeconds"`
	ImageFile        string  `json:"imageFile,omitempty"`
	ImageData        []byte  `json:"imageData,omitempty"`
	AudioFile        string  `json:"audioFile,omitempty"`
	AudioData        []byte  `json:"audioData,omitempty"`
}

// Package is a manifest plus the media files it references. Assets is empty
// in inline mode.
type Package struct {
	Manifest Manifest
	Assets   []zip.Entry
}

// Build assembles the export package. Media files follow the fixed naming
// convention {id+1}.<ext>, extension sniffed from the encoded bytes. Scenes
// without an asset simply omit that media; timing still comes from the
// shared timeline so the compositor and the player agree.
func Build(topic string, scenes []*domain.Scene, speed float64, buffer time.Duration, mode Mode) Package {
	pkg := Package{
		Manifest: Manifest{
			Topic:         topic,
			PlaybackSpeed: speed,
			SafetyBuffer:  buffer.Seconds(),
			TotalSeconds:  timeline.Total(scenes, speed, buffer),
			Scenes:        make([]ManifestScene, len(scenes)),
		},
	}

	for i, s := range scenes {
		entry := ManifestScene{
			ID:               s.ID,
			Title:            s.Title,
			Narration:        s.Narration,
			DurationSeconds:  timeline.RawDuration(s),
			EffectiveSeconds: timeline.EffectiveDuration(s, speed),
		}

		if s.HasImage() {
			if mode == ModeInline {
				entry.ImageData = s.Image
			} else {
				entry.ImageFile = fmt.Sprintf("%d%s", s.ID+1, SniffExtension(s.Image))
				pkg.Assets = append(pkg.Assets, zip.Entry{Name: entry.ImageFile, Data: s.Image})
			}
		}
		if len(s.AudioEncoded) > 0 {
			if mode == ModeInline {
				entry.AudioData = s.AudioEncoded
			} else {
				entry.AudioFile = fmt.Sprintf("%d%s", s.ID+1, SniffExtension(s.AudioEncoded))
				pkg.Assets = append(pkg.Assets, zip.Entry{Name: entry.AudioFile, Data: s.AudioEncoded})
			}
		}

		pkg.Manifest.Scenes[i] = entry
	}

	return pkg
}

// Archive zips the manifest and media files into a distributable bundle.
func Archive(pkg Package) ([]byte, error) {
	manifest, err := json.MarshalIndent(pkg.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	entries := append([]zip.Entry{{Name: "manifest.json", Data: manifest}}, pkg.Assets...)
	return zip.Archive(entries)
}

// SniffExtension maps encoded media bytes to a file extension via magic
// numbers. Unknown formats get a neutral extension rather than an error;
// the bytes are preserved either way.
func SniffExtension(data []byte) string {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 'P', 'N', 'G'}):
		return ".png"
	case len(data) >= 6 && bytes.Equal(data[:6], []byte("GIF89a")):
		return ".gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ".wav"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return ".webp"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return ".mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ".mp3"
	default:
		return ".bin"
	}
}
