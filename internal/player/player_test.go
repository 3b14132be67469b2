package player

import (
	"context"
	"math"
	"testing"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/timeline"
)

type recordingClock struct {
	sleeps []time.Duration
}

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return ctx.Err()
}

func TestPlayVisitsScenesForEffectiveDurations(t *testing.T) {
	scenes := []*domain.Scene{
		{ID: 0, ActualDuration: 3},
		{ID: 1, DurationHint: 6},
		{ID: 2},
	}

	clock := &recordingClock{}
	var visited []int
	p := New(1.5, 200*time.Millisecond).WithClock(clock)
	err := p.Play(context.Background(), scenes, func(s *domain.Scene, e timeline.Entry) {
		visited = append(visited, s.ID)
	})
	if err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if len(visited) != 3 || visited[0] != 0 || visited[2] != 2 {
		t.Fatalf("visited = %v, want [0 1 2]", visited)
	}

	wantSeconds := []float64{3.0/1.5 + 0.2, 6.0/1.5 + 0.2, timeline.DefaultSceneSeconds/1.5 + 0.2}
	for i, d := range clock.sleeps {
		if math.Abs(d.Seconds()-wantSeconds[i]) > 1e-6 {
			t.Fatalf("sleep %d = %v, want %fs", i, d, wantSeconds[i])
		}
	}
}

func TestPlayMatchesExportTotal(t *testing.T) {
	scenes := []*domain.Scene{
		{ID: 0, ActualDuration: 2.5},
		{ID: 1, ActualDuration: 4.25},
	}
	clock := &recordingClock{}
	p := New(1.5, 200*time.Millisecond).WithClock(clock)
	if err := p.Play(context.Background(), scenes, nil); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	var played float64
	for _, d := range clock.sleeps {
		played += d.Seconds()
	}
	total := timeline.Total(scenes, 1.5, 200*time.Millisecond)
	if math.Abs(played-total) > 1e-6 {
		t.Fatalf("played %fs, timeline total %fs; consumers disagree", played, total)
	}
}

func TestPlayStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(1.5, 0).WithClock(&recordingClock{})
	visits := 0
	err := p.Play(ctx, []*domain.Scene{{ID: 0}, {ID: 1}}, func(*domain.Scene, timeline.Entry) {
		visits++
	})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if visits > 1 {
		t.Fatalf("visits = %d, want at most 1 after cancel", visits)
	}
}
