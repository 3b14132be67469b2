// Package timeline defines scene timing exactly once. The interactive player
// and the offline exporter both compute durations through this package, so
// audio and visuals cannot drift apart between preview and export.
package timeline

import (
	"time"

	"reelforge/internal/domain"
)

const (
	// DefaultSceneSeconds is the fallback when a scene has neither a
	// measured duration nor a model-supplied hint.
	DefaultSceneSeconds = 5.0

	// DefaultPlaybackSpeed is the fixed multiplier applied uniformly to
	// narration audio and to the derived visual duration.
	DefaultPlaybackSpeed = 1.5

	// DefaultSafetyBuffer pads each scene against decode and measurement
	// imprecision. Every consumer that needs timeline agreement with
	// another consumer must apply the same buffer.
	DefaultSafetyBuffer = 200 * time.Millisecond
)

// RawDuration is a scene's duration before speed adjustment: the measured
// audio duration when present, the model's hint otherwise, and the fixed
// default as a last resort.
func RawDuration(s *domain.Scene) float64 {
	if s.ActualDuration > 0 {
		return s.ActualDuration
	}
	if s.DurationHint > 0 {
		return s.DurationHint
	}
	return DefaultSceneSeconds
}

// EffectiveDuration is the on-screen time for a scene at the given playback
// speed. A consumer that shows the scene for this long while playing its
// audio at the same speed has both end together.
func EffectiveDuration(s *domain.Scene, speed float64) float64 {
	if speed <= 0 {
		speed = DefaultPlaybackSpeed
	}
	return RawDuration(s) / speed
}

// Entry is one scene's slot on the shared timeline.
type Entry struct {
	SceneID  int
	Start    float64
	Duration float64
}

// Schedule lays the scenes out back to back. Each entry's duration is the
// effective duration plus the safety buffer; Start accumulates so a
// precomputed total matches what a renderer applying the same buffer
// produces.
func Schedule(scenes []*domain.Scene, speed float64, buffer time.Duration) []Entry {
	entries := make([]Entry, len(scenes))
	elapsed := 0.0
	pad := buffer.Seconds()
	for i, s := range scenes {
		d := EffectiveDuration(s, speed) + pad
		entries[i] = Entry{SceneID: s.ID, Start: elapsed, Duration: d}
		elapsed += d
	}
	return entries
}

// Total is the full timeline length for the given scenes.
func Total(scenes []*domain.Scene, speed float64, buffer time.Duration) float64 {
	entries := Schedule(scenes, speed, buffer)
	if len(entries) == 0 {
		return 0
	}
	last := entries[len(entries)-1]
	return last.Start + last.Duration
}
