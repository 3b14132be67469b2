package pipeline

import (
	"context"
	"time"

	"reelforge/internal/infra"
)

// SaveGate coalesces concurrent save requests into a durable snapshot store.
// It is a capacity-1 drop-and-replace work queue consumed by one goroutine:
// at most one save is in flight, at most one is pending, and any requests
// arriving while one is already pending collapse into it. A cooldown
// separates a completed save from the deferred one so bursts do not hammer
// the store.
//
// Save failures are logged and swallowed; an incremental save must never
// abort the pipeline. The scheduler's final synchronous save is the
// durability backstop.
type SaveGate struct {
	save     func(context.Context) error
	cooldown time.Duration
	logger   infra.Logger
	requests chan struct{}
	done     chan struct{}
}

// NewSaveGate wraps the save function. Run must be called for requests to be
// consumed.
func NewSaveGate(save func(context.Context) error, cooldown time.Duration, logger infra.Logger) *SaveGate {
	return &SaveGate{
		save:     save,
		cooldown: cooldown,
		logger:   logger,
		requests: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Request asks for an incremental save. It never blocks: if a save is already
// pending the request folds into it.
func (g *SaveGate) Request() {
	select {
	case g.requests <- struct{}{}:
	default:
	}
}

// Run consumes save requests until ctx is canceled.
func (g *SaveGate) Run(ctx context.Context) {
	defer close(g.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.requests:
		}

		if err := g.save(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("pipeline: incremental save failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(g.cooldown):
		}
	}
}

// Wait blocks until Run has returned.
func (g *SaveGate) Wait() {
	<-g.done
}
