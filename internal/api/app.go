// Package api exposes the project workflow over HTTP: script a topic,
// review and edit the scenes, launch asset generation, watch progress, and
// download the export bundle. One project is active at a time; starting a
// new one replaces the old.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
	"reelforge/internal/media"
	"reelforge/internal/pipeline"

	"github.com/google/uuid"
)

// ScriptWriter produces a reviewed scene list for a topic.
type ScriptWriter interface {
	GenerateScript(ctx context.Context, topic string) ([]*domain.Scene, error)
}

// PipelineFunc runs asset generation over the scene list, reporting counts
// as assets land. Production wires pipeline.Scheduler here.
type PipelineFunc func(ctx context.Context, topic string, scenes []*domain.Scene, progress pipeline.ProgressFunc) (pipeline.Result, error)

// SnapshotStore is the slice of the snapshot store the API drives directly.
// Incremental saves during generation happen inside the pipeline, not here.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Snapshot, bool, error)
	Clear(ctx context.Context) error
}

// Phase tracks where the active project is in its lifecycle.
type Phase string

const (
	PhaseReview     Phase = "review"
	PhaseGenerating Phase = "generating"
	PhaseReady      Phase = "ready"
	PhaseFailed     Phase = "failed"
)

type project struct {
	id     string
	topic  string
	scenes []*domain.Scene
	// frozen is a text-only copy taken when generation starts. Views served
	// during generation read it, so they never race the pipeline goroutines
	// writing asset fields into scenes.
	frozen     []*domain.Scene
	phase      Phase
	imagesDone int
	audioDone  int
	failure    string
	cancel     context.CancelFunc
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Scripts       ScriptWriter
	Pipeline      PipelineFunc
	Store         SnapshotStore
	Logger        infra.Logger
	PlaybackSpeed float64
	SafetyBuffer  time.Duration
}

// App owns the active project and serializes access to it.
type App struct {
	deps Deps

	mu      sync.Mutex
	current *project
}

func NewApp(deps Deps) *App {
	return &App{deps: deps}
}

// Restore loads the persisted snapshot, if any, and installs it as the
// active project. Decoded audio is rebuilt from the encoded bytes; a scene
// whose audio no longer decodes keeps the rest of its assets. A snapshot
// with any asset resumes as ready, one without resumes at review.
func (a *App) Restore(ctx context.Context) error {
	snap, ok, err := a.deps.Store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	media.Rehydrate(snap.Scenes)
	phase := PhaseReview
	if images, audio := domain.CountAssets(snap.Scenes); images > 0 || audio > 0 {
		phase = PhaseReady
	}

	a.mu.Lock()
	a.current = &project{
		id:     uuid.NewString(),
		topic:  snap.Topic,
		scenes: snap.Scenes,
		phase:  phase,
	}
	a.mu.Unlock()

	a.deps.Logger.Info().
		Str("topic", snap.Topic).
		Int("scenes", len(snap.Scenes)).
		Str("phase", string(phase)).
		Msg("api: restored persisted project")
	return nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func cloneText(scenes []*domain.Scene) []*domain.Scene {
	out := make([]*domain.Scene, len(scenes))
	for i, s := range scenes {
		out[i] = &domain.Scene{
			ID:                s.ID,
			Title:             s.Title,
			Narration:         s.Narration,
			VisualDescription: s.VisualDescription,
			DurationHint:      s.DurationHint,
		}
	}
	return out
}
