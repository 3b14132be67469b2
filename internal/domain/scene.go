package domain

import "time"

// Scene is the unit of work for the generation pipeline and the unit of
// output for playback and export. IDs are assigned once, when the script is
// generated, and always equal the scene's position in the slice.
type Scene struct {
	ID                int          `json:"id"`
	Title             string       `json:"title"`
	Narration         string       `json:"narration"`
	VisualDescription string       `json:"visualDescription"`
	DurationHint      float64      `json:"durationHintSeconds"`
	Image             []byte       `json:"imageAsset,omitempty"`
	AudioEncoded      []byte       `json:"audioEncoded,omitempty"`
	Audio             *AudioBuffer `json:"-"`
	ActualDuration    float64      `json:"actualDurationSeconds,omitempty"`
}

// AudioBuffer is a decoded narration track. It is derived from a scene's
// encoded audio and never serialized; loaders re-derive it from the stored
// encoded bytes.
type AudioBuffer struct {
	PCM        []byte
	SampleRate int
	Duration   float64
}

// HasImage reports whether image generation succeeded for the scene.
func (s *Scene) HasImage() bool { return len(s.Image) > 0 }

// HasAudio reports whether speech generation and decoding succeeded.
func (s *Scene) HasAudio() bool { return s.Audio != nil }

// Failed reports whether the scene obtained neither asset. Failed scenes stay
// in the list for manual handling and never block their siblings.
func (s *Scene) Failed() bool { return !s.HasImage() && !s.HasAudio() }

// Snapshot is the durable representation of a run. The decoded audio buffer
// is excluded from serialization by construction.
type Snapshot struct {
	Topic   string    `json:"topic"`
	Scenes  []*Scene  `json:"scenes"`
	SavedAt time.Time `json:"savedAt"`
}

// CountAssets returns how many scenes hold a populated image and how many
// hold decoded audio.
func CountAssets(scenes []*Scene) (images, audio int) {
	for _, s := range scenes {
		if s.HasImage() {
			images++
		}
		if s.HasAudio() {
			audio++
		}
	}
	return images, audio
}
