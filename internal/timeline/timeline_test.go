package timeline

import (
	"math"
	"testing"
	"time"

	"reelforge/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRawDurationPrecedence(t *testing.T) {
	cases := []struct {
		name  string
		scene *domain.Scene
		want  float64
	}{
		{"measured wins", &domain.Scene{ActualDuration: 7.2, DurationHint: 4}, 7.2},
		{"hint fallback", &domain.Scene{DurationHint: 4}, 4},
		{"fixed default", &domain.Scene{}, DefaultSceneSeconds},
	}
	for _, tc := range cases {
		if got := RawDuration(tc.scene); !almostEqual(got, tc.want) {
			t.Fatalf("%s: RawDuration = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestEffectiveDurationLaw(t *testing.T) {
	s := &domain.Scene{ActualDuration: 6.0}
	if got := EffectiveDuration(s, 1.5); !almostEqual(got, 4.0) {
		t.Fatalf("EffectiveDuration = %f, want 4.0", got)
	}
	// Zero speed falls back to the fixed default.
	if got := EffectiveDuration(s, 0); !almostEqual(got, 6.0/DefaultPlaybackSpeed) {
		t.Fatalf("EffectiveDuration with zero speed = %f", got)
	}
}

func TestScheduleAppliesBufferUniformly(t *testing.T) {
	scenes := []*domain.Scene{
		{ID: 0, ActualDuration: 3.0},
		{ID: 1, DurationHint: 6.0},
		{ID: 2},
	}
	buffer := 200 * time.Millisecond
	entries := Schedule(scenes, 1.5, buffer)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	wantDurations := []float64{3.0/1.5 + 0.2, 6.0/1.5 + 0.2, DefaultSceneSeconds/1.5 + 0.2}
	elapsed := 0.0
	for i, e := range entries {
		if e.SceneID != i {
			t.Fatalf("entry %d scene id = %d", i, e.SceneID)
		}
		if !almostEqual(e.Duration, wantDurations[i]) {
			t.Fatalf("entry %d duration = %f, want %f", i, e.Duration, wantDurations[i])
		}
		if !almostEqual(e.Start, elapsed) {
			t.Fatalf("entry %d start = %f, want %f", i, e.Start, elapsed)
		}
		elapsed += e.Duration
	}

	if total := Total(scenes, 1.5, buffer); !almostEqual(total, elapsed) {
		t.Fatalf("Total = %f, want %f", total, elapsed)
	}
}

func TestTotalEmpty(t *testing.T) {
	if got := Total(nil, 1.5, 0); got != 0 {
		t.Fatalf("Total(nil) = %f, want 0", got)
	}
}
