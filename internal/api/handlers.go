package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reelforge/internal/domain"
	"reelforge/internal/export"
	"reelforge/internal/timeline"

	"github.com/google/uuid"
)

type createProjectRequest struct {
	Topic string `json:"topic"`
}

type sceneEdit struct {
	ID                int      `json:"id"`
	Title             *string  `json:"title"`
	Narration         *string  `json:"narration"`
	VisualDescription *string  `json:"visualDescription"`
	DurationSeconds   *float64 `json:"durationSeconds"`
}

type updateScenesRequest struct {
	Scenes []sceneEdit `json:"scenes"`
}

type sceneView struct {
	ID                int     `json:"id"`
	Title             string  `json:"title"`
	Narration         string  `json:"narration"`
	VisualDescription string  `json:"visualDescription"`
	DurationSeconds   float64 `json:"durationSeconds,omitempty"`
	HasImage          bool    `json:"hasImage"`
	HasAudio          bool    `json:"hasAudio"`
	ActualSeconds     float64 `json:"actualSeconds,omitempty"`
	EffectiveSeconds  float64 `json:"effectiveSeconds,omitempty"`
}

type projectView struct {
	ID           string      `json:"id"`
	Topic        string      `json:"topic"`
	Phase        Phase       `json:"phase"`
	Error        string      `json:"error,omitempty"`
	TotalSeconds float64     `json:"totalSeconds,omitempty"`
	Scenes       []sceneView `json:"scenes"`
}

type progressView struct {
	Phase      Phase   `json:"phase"`
	ImagesDone int     `json:"imagesDone"`
	AudioDone  int     `json:"audioDone"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	Error      string  `json:"error,omitempty"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateProject scripts a new project from a topic and puts it in review.
// Replaces any previous project that is not mid-generation.
func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, errBody("invalid JSON body"))
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		a.json(w, http.StatusUnprocessableEntity, errBody("topic is required"))
		return
	}

	a.mu.Lock()
	if a.current != nil && a.current.phase == PhaseGenerating {
		a.mu.Unlock()
		a.json(w, http.StatusConflict, errBody("generation in progress; delete the project first"))
		return
	}
	a.mu.Unlock()

	scenes, err := a.deps.Scripts.GenerateScript(r.Context(), topic)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.mu.Lock()
	a.current = &project{
		id:     uuid.NewString(),
		topic:  topic,
		scenes: scenes,
		phase:  PhaseReview,
	}
	view := a.viewLocked()
	a.mu.Unlock()

	a.deps.Logger.Info().Str("topic", topic).Int("scenes", len(scenes)).Msg("api: project scripted")
	a.json(w, http.StatusCreated, view)
}

// UpdateScenes applies review edits to the scripted text. Only present
// fields change; scene identity and order are fixed at scripting time.
func (a *App) UpdateScenes(w http.ResponseWriter, r *http.Request) {
	var req updateScenesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, errBody("invalid JSON body"))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.current
	if p == nil {
		a.json(w, http.StatusNotFound, errBody("no active project"))
		return
	}
	if p.phase != PhaseReview {
		a.json(w, http.StatusConflict, errBody("scenes are frozen once generation starts"))
		return
	}

	index := make(map[int]*domain.Scene, len(p.scenes))
	for _, s := range p.scenes {
		index[s.ID] = s
	}
	for _, edit := range req.Scenes {
		s, ok := index[edit.ID]
		if !ok {
			a.json(w, http.StatusUnprocessableEntity, errBody(fmt.Sprintf("unknown scene id %d", edit.ID)))
			return
		}
		if edit.Title != nil {
			s.Title = *edit.Title
		}
		if edit.Narration != nil {
			s.Narration = *edit.Narration
		}
		if edit.VisualDescription != nil {
			s.VisualDescription = *edit.VisualDescription
		}
		if edit.DurationSeconds != nil {
			s.DurationHint = *edit.DurationSeconds
		}
	}

	a.json(w, http.StatusOK, a.viewLocked())
}

// StartGeneration freezes the script and launches the asset pipeline in the
// background. The run outlives the request; progress is polled separately.
func (a *App) StartGeneration(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	p := a.current
	if p == nil {
		a.mu.Unlock()
		a.json(w, http.StatusNotFound, errBody("no active project"))
		return
	}
	switch p.phase {
	case PhaseGenerating:
		a.mu.Unlock()
		a.json(w, http.StatusConflict, errBody("generation already running"))
		return
	case PhaseReady, PhaseFailed:
		a.mu.Unlock()
		a.json(w, http.StatusConflict, errBody("project already generated; delete it to start over"))
		return
	}

	p.phase = PhaseGenerating
	p.frozen = cloneText(p.scenes)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	topic, scenes := p.topic, p.scenes
	a.mu.Unlock()

	go func() {
		defer cancel()
		a.runPipeline(ctx, p, topic, scenes)
	}()

	a.json(w, http.StatusAccepted, map[string]string{"status": string(PhaseGenerating)})
}

func (a *App) runPipeline(ctx context.Context, p *project, topic string, scenes []*domain.Scene) {
	result, err := a.deps.Pipeline(ctx, topic, scenes, func(imagesDone, audioDone, total int) {
		a.mu.Lock()
		p.imagesDone, p.audioDone = imagesDone, audioDone
		a.mu.Unlock()
	})

	a.mu.Lock()
	if a.current != p {
		a.mu.Unlock()
		// The project was deleted mid-run, so the result has no home. A gate
		// save already past its context check can commit after the reset's
		// clear; clear again now that the run is over so no stale snapshot
		// survives.
		if clearErr := a.deps.Store.Clear(context.Background()); clearErr != nil {
			a.deps.Logger.Warn().Err(clearErr).Msg("api: post-reset snapshot clear failed")
		}
		return
	}
	p.cancel = nil
	switch {
	case errors.Is(err, domain.ErrTotalFailure):
		p.phase = PhaseFailed
		p.failure = "no assets could be generated; check the model credential and retry"
	case err != nil:
		p.phase = PhaseFailed
		p.failure = err.Error()
	default:
		p.phase = PhaseReady
	}
	phase := p.phase
	a.mu.Unlock()

	a.deps.Logger.Info().
		Str("topic", topic).
		Int("images", result.ValidImages).
		Int("audio", result.ValidAudio).
		Str("phase", string(phase)).
		Msg("api: generation settled")
}

// Progress reports asset counts for the active project. Overall percent is
// completed slots over 2*scenes, images and audio weighted equally.
func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.current
	if p == nil {
		a.json(w, http.StatusNotFound, errBody("no active project"))
		return
	}

	resp := progressView{
		Phase:      p.phase,
		ImagesDone: p.imagesDone,
		AudioDone:  p.audioDone,
		Total:      len(p.scenes),
		Error:      p.failure,
	}
	if resp.Total > 0 {
		resp.Percent = float64(p.imagesDone+p.audioDone) / float64(2*resp.Total) * 100
	}
	a.json(w, http.StatusOK, resp)
}

// GetProject returns the active project. While generation runs the view is
// built from the frozen script and omits asset details, which are only
// authoritative once the run settles.
func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		a.json(w, http.StatusNotFound, errBody("no active project"))
		return
	}
	a.json(w, http.StatusOK, a.viewLocked())
}

// Export streams the project bundle as a zip attachment. Available once
// generation has settled with at least one asset. ?inline=true embeds media
// in the manifest instead of packing separate files.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	p := a.current
	if p == nil {
		a.mu.Unlock()
		a.json(w, http.StatusNotFound, errBody("no active project"))
		return
	}
	if p.phase != PhaseReady {
		a.mu.Unlock()
		a.json(w, http.StatusConflict, errBody("project has no generated assets to export"))
		return
	}
	topic, scenes := p.topic, p.scenes
	a.mu.Unlock()

	mode := export.ModeFileRefs
	if r.URL.Query().Get("inline") == "true" {
		mode = export.ModeInline
	}
	pkg := export.Build(topic, scenes, a.deps.PlaybackSpeed, a.deps.SafetyBuffer, mode)
	data, err := export.Archive(pkg)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(topic)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Reset drops the active project and its snapshot. A running generation is
// cancelled; its late result is discarded.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	var cancel context.CancelFunc
	if a.current != nil {
		cancel = a.current.cancel
	}
	a.current = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := a.deps.Store.Clear(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// viewLocked builds the project view. Caller holds a.mu.
func (a *App) viewLocked() projectView {
	p := a.current
	scenes := p.scenes
	withAssets := p.phase != PhaseGenerating
	if !withAssets {
		scenes = p.frozen
	}

	view := projectView{
		ID:     p.id,
		Topic:  p.topic,
		Phase:  p.phase,
		Error:  p.failure,
		Scenes: make([]sceneView, len(scenes)),
	}
	if withAssets {
		view.TotalSeconds = timeline.Total(scenes, a.deps.PlaybackSpeed, a.deps.SafetyBuffer)
	}
	for i, s := range scenes {
		sv := sceneView{
			ID:                s.ID,
			Title:             s.Title,
			Narration:         s.Narration,
			VisualDescription: s.VisualDescription,
			DurationSeconds:   s.DurationHint,
		}
		if withAssets {
			sv.HasImage = s.HasImage()
			sv.HasAudio = s.HasAudio()
			sv.ActualSeconds = s.ActualDuration
			sv.EffectiveSeconds = timeline.EffectiveDuration(s, a.deps.PlaybackSpeed)
		}
		view.Scenes[i] = sv
	}
	return view
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedResponse):
		a.json(w, http.StatusBadGateway, errBody("the model returned an unusable script; retry or rephrase the topic"))
	case errors.Is(err, context.DeadlineExceeded):
		a.json(w, http.StatusGatewayTimeout, errBody("upstream call timed out"))
	default:
		a.deps.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("api: request failed")
		a.json(w, http.StatusInternalServerError, errBody("internal error"))
	}
}

// exportFilename derives a safe attachment name from the topic.
func exportFilename(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "project"
	}
	return slug + ".zip"
}
