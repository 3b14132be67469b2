// Package player drives an interactive timed playthrough of a scene list.
// Durations come from the shared timeline, so a preview here and an export
// from the compositor end each scene at the same instant.
package player

import (
	"context"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/timeline"
)

// Clock abstracts waiting so tests can play a full project instantly.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// SceneVisitor is invoked as each scene comes on screen.
type SceneVisitor func(scene *domain.Scene, entry timeline.Entry)

// Player plays scenes back to back at a fixed speed.
type Player struct {
	speed  float64
	buffer time.Duration
	clock  Clock
}

// New builds a player. Zero speed falls back to the shared default so the
// player can never disagree with the exporter about timing.
func New(speed float64, buffer time.Duration) *Player {
	return &Player{speed: speed, buffer: buffer, clock: realClock{}}
}

// WithClock substitutes the waiting strategy. Used by tests.
func (p *Player) WithClock(clock Clock) *Player {
	p.clock = clock
	return p
}

// Play visits every scene in order, holding each for its effective duration
// plus the safety buffer. Failed scenes still get their slot: they show
// whatever assets they have, and their duration falls back through the same
// timing rule as everywhere else. Returns early only on context
// cancellation.
func (p *Player) Play(ctx context.Context, scenes []*domain.Scene, visit SceneVisitor) error {
	entries := timeline.Schedule(scenes, p.speed, p.buffer)
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if visit != nil {
			visit(scenes[i], entry)
		}
		if err := p.clock.Sleep(ctx, time.Duration(entry.Duration*float64(time.Second))); err != nil {
			return err
		}
	}
	return nil
}
