package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/genai"
	"reelforge/internal/infra"
	"reelforge/internal/media"
)

// Generator is the slice of the generation client the scheduler drives.
type Generator interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) ([]byte, error)
	GenerateSpeech(ctx context.Context, text string) ([]byte, error)
}

// Saver persists the current scene list. The scheduler routes incremental
// saves through the gate and issues one final synchronous save itself.
type Saver interface {
	Save(ctx context.Context, topic string, scenes []*domain.Scene) error
}

// ProgressFunc observes pipeline progress: completed image count, completed
// audio count, and the total scene count. Overall percentage is
// (images+audio)/(2*total).
type ProgressFunc func(imagesDone, audioDone, total int)

// Options tunes the scheduler. Unset values fall back to product defaults;
// MaxRetries defaults only when negative, so zero keeps meaning no retries.
type Options struct {
	BatchSize         int
	MaxRetries        int
	RetryInitialDelay time.Duration
	SaveCooldown      time.Duration
	Progress          ProgressFunc
}

// Scheduler drives the image and the audio pipeline over one scene list.
// The two pipelines run fully concurrently and are mutually independent;
// within each, scenes are processed in fixed-size batches, a batch settling
// completely before the next one launches. Peak concurrency per pipeline is
// the batch size.
//
// The scene slice is the single shared structure. Each pipeline writes only
// the fields it owns for a given scene (image bytes vs. audio bytes, decoded
// buffer, and duration), so concurrent writers never touch the same field.
// Asset writes still go through one mutex: the incremental save path reads
// every field, and it takes a consistent copy under that lock instead of
// marshaling scenes the pipelines are mutating.
type Scheduler struct {
	client    Generator
	store     Saver
	logger    infra.Logger
	batchSize int
	retries   int
	delay     time.Duration
	cooldown  time.Duration
	progress  ProgressFunc

	mu sync.Mutex
}

// Result summarizes a completed run.
type Result struct {
	ValidImages int
	ValidAudio  int
}

// NewScheduler builds a scheduler over the given client and store.
func NewScheduler(client Generator, store Saver, logger infra.Logger, opts Options) *Scheduler {
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 3
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 2
	}
	delay := opts.RetryInitialDelay
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}
	cooldown := opts.SaveCooldown
	if cooldown <= 0 {
		cooldown = 500 * time.Millisecond
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int, int, int) {}
	}
	return &Scheduler{
		client:    client,
		store:     store,
		logger:    logger,
		batchSize: batchSize,
		retries:   retries,
		delay:     delay,
		cooldown:  cooldown,
		progress:  progress,
	}
}

// Run populates the scenes' assets in place and returns the asset counts.
// Per-scene failures are contained: a scene that exhausts its retries keeps
// its field unset and never blocks a sibling. The only fatal outcome is zero
// assets of either kind across all scenes, reported as ErrTotalFailure with
// no handoff; any partial success is accepted.
func (s *Scheduler) Run(ctx context.Context, topic string, scenes []*domain.Scene) (Result, error) {
	var imagesDone, audioDone atomic.Int64
	total := len(scenes)

	gate := NewSaveGate(func(ctx context.Context) error {
		return s.store.Save(ctx, topic, s.copyScenes(scenes))
	}, s.cooldown, s.logger)
	gateCtx, stopGate := context.WithCancel(ctx)
	go gate.Run(gateCtx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runBatches(ctx, scenes, func(ctx context.Context, scene *domain.Scene) {
			if !s.generateImage(ctx, scene, total) {
				return
			}
			s.progress(int(imagesDone.Add(1)), int(audioDone.Load()), total)
			gate.Request()
		})
	}()
	go func() {
		defer wg.Done()
		s.runBatches(ctx, scenes, func(ctx context.Context, scene *domain.Scene) {
			if !s.generateAudio(ctx, scene) {
				return
			}
			s.progress(int(imagesDone.Load()), int(audioDone.Add(1)), total)
			gate.Request()
		})
	}()
	wg.Wait()

	stopGate()
	gate.Wait()

	result := Result{}
	result.ValidImages, result.ValidAudio = domain.CountAssets(scenes)

	if result.ValidImages == 0 && result.ValidAudio == 0 {
		s.logger.Error().Int("scenes", total).Msg("pipeline: no scene obtained any asset")
		return result, domain.ErrTotalFailure
	}

	if err := s.store.Save(ctx, topic, scenes); err != nil {
		s.logger.Warn().Err(err).Msg("pipeline: final save failed")
	}

	s.logger.Info().
		Int("scenes", total).
		Int("images", result.ValidImages).
		Int("audio", result.ValidAudio).
		Msg("pipeline: generation finished")

	return result, nil
}

// runBatches partitions the scenes into consecutive batches and lets each
// batch settle completely before launching the next. This throttles
// concurrency and keeps scene indices mostly increasing for progress
// reporting and the positional style rule.
func (s *Scheduler) runBatches(ctx context.Context, scenes []*domain.Scene, process func(context.Context, *domain.Scene)) {
	for start := 0; start < len(scenes); start += s.batchSize {
		end := start + s.batchSize
		if end > len(scenes) {
			end = len(scenes)
		}
		var batch sync.WaitGroup
		for _, scene := range scenes[start:end] {
			batch.Add(1)
			go func(scene *domain.Scene) {
				defer batch.Done()
				process(ctx, scene)
			}(scene)
		}
		batch.Wait()
	}
}

func (s *Scheduler) generateImage(ctx context.Context, scene *domain.Scene, total int) bool {
	// Already populated, typically from a resumed snapshot.
	if scene.HasImage() {
		return true
	}
	data, err := Retry(ctx, s.retries, s.delay, func(ctx context.Context) ([]byte, error) {
		return s.client.GenerateImage(ctx, genai.ImageRequest{
			VisualDescription: scene.VisualDescription,
			Narration:         scene.Narration,
			SceneIndex:        scene.ID,
			SceneCount:        total,
		})
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("scene", scene.ID).Msg("pipeline: image generation failed")
		return false
	}
	s.mu.Lock()
	scene.Image = data
	s.mu.Unlock()
	return true
}

func (s *Scheduler) generateAudio(ctx context.Context, scene *domain.Scene) bool {
	if scene.HasAudio() {
		return true
	}
	type decoded struct {
		encoded []byte
		buffer  *domain.AudioBuffer
	}
	result, err := Retry(ctx, s.retries, s.delay, func(ctx context.Context) (decoded, error) {
		data, err := s.client.GenerateSpeech(ctx, scene.Narration)
		if err != nil {
			return decoded{}, err
		}
		buf, err := media.Decode(data)
		if err != nil {
			return decoded{}, err
		}
		return decoded{encoded: data, buffer: buf}, nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("scene", scene.ID).Msg("pipeline: speech generation failed")
		return false
	}
	// Buffer and measured duration always land together.
	s.mu.Lock()
	scene.AudioEncoded = result.encoded
	scene.Audio = result.buffer
	scene.ActualDuration = result.buffer.Duration
	s.mu.Unlock()
	return true
}

// copyScenes takes a consistent snapshot of the scene list under the write
// lock. The save path serializes the copies, never the live structs the
// pipelines are writing; the byte slices themselves are write-once, so
// sharing them is safe.
func (s *Scheduler) copyScenes(scenes []*domain.Scene) []*domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Scene, len(scenes))
	for i, scene := range scenes {
		dup := *scene
		out[i] = &dup
	}
	return out
}
