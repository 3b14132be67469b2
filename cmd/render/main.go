// Command render runs the whole workflow once from the terminal: script a
// topic, generate its assets, and write the export bundle. With -resume it
// picks up the persisted snapshot instead of scripting anew, regenerating
// only the assets that are missing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"reelforge/internal/domain"
	"reelforge/internal/export"
	"reelforge/internal/genai"
	"reelforge/internal/infra"
	"reelforge/internal/media"
	"reelforge/internal/pipeline"
	"reelforge/internal/player"
	"reelforge/internal/storage"
	"reelforge/internal/store"
	"reelforge/internal/timeline"
)

func main() {
	out := flag.String("out", "", "zip output path (default <topic>.zip)")
	dir := flag.String("dir", "", "also lay the bundle out unpacked in this directory")
	resume := flag.Bool("resume", false, "resume from the persisted snapshot instead of scripting a topic")
	inline := flag.Bool("inline", false, "embed media in the manifest instead of separate files")
	play := flag.Bool("play", false, "preview the timeline on stdout after rendering")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := store.Open(cfg.SnapshotPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("render: failed to open snapshot store")
	}
	defer snapshots.Close()

	var topic string
	var scenes []*domain.Scene
	if *resume {
		snap, ok, err := snapshots.Load(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("render: failed to load snapshot")
		}
		if !ok {
			logger.Fatal().Msg("render: nothing to resume")
		}
		media.Rehydrate(snap.Scenes)
		topic, scenes = snap.Topic, snap.Scenes
		images, audio := domain.CountAssets(scenes)
		logger.Info().
			Str("topic", topic).
			Int("scenes", len(scenes)).
			Int("images", images).
			Int("audio", audio).
			Msg("render: resuming snapshot")
	} else {
		topic = strings.TrimSpace(flag.Arg(0))
		if topic == "" {
			fmt.Fprintln(os.Stderr, "usage: render [flags] <topic>")
			flag.PrintDefaults()
			os.Exit(2)
		}
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		ScriptModel: cfg.ScriptModel,
		ImageModel:  cfg.ImageModel,
		SpeechModel: cfg.SpeechModel,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("render: generation client unavailable; set GEMINI_API_KEY")
	}

	if scenes == nil {
		scenes, err = client.GenerateScript(ctx, topic)
		if err != nil {
			logger.Fatal().Err(err).Str("topic", topic).Msg("render: scripting failed")
		}
		logger.Info().Int("scenes", len(scenes)).Msg("render: script ready")
	}

	sched := pipeline.NewScheduler(client, snapshots, logger, pipeline.Options{
		BatchSize:         cfg.BatchSize,
		MaxRetries:        cfg.MaxRetries,
		RetryInitialDelay: cfg.RetryInitialDelay,
		SaveCooldown:      cfg.SaveCooldown,
		Progress: func(imagesDone, audioDone, total int) {
			logger.Info().
				Int("images", imagesDone).
				Int("audio", audioDone).
				Int("total", total).
				Msg("render: progress")
		},
	})
	result, err := sched.Run(ctx, topic, scenes)
	if err != nil {
		logger.Fatal().Err(err).Msg("render: generation failed")
	}

	mode := export.ModeFileRefs
	if *inline {
		mode = export.ModeInline
	}
	pkg := export.Build(topic, scenes, cfg.PlaybackSpeed, cfg.SafetyBuffer, mode)

	if *dir != "" {
		fs, err := storage.NewFileStore(*dir)
		if err != nil {
			logger.Fatal().Err(err).Msg("render: failed to prepare output directory")
		}
		if err := fs.WritePackage(ctx, "", pkg); err != nil {
			logger.Fatal().Err(err).Msg("render: failed to write unpacked bundle")
		}
		logger.Info().Str("dir", fs.BasePath()).Msg("render: unpacked bundle written")
	}

	path := *out
	if path == "" {
		path = bundleName(topic)
	}
	data, err := export.Archive(pkg)
	if err != nil {
		logger.Fatal().Err(err).Msg("render: failed to build archive")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("render: failed to write archive")
	}

	logger.Info().
		Str("path", path).
		Int("bytes", len(data)).
		Int("images", result.ValidImages).
		Int("audio", result.ValidAudio).
		Float64("seconds", pkg.Manifest.TotalSeconds).
		Msg("render: bundle written")

	if *play {
		p := player.New(cfg.PlaybackSpeed, cfg.SafetyBuffer)
		err := p.Play(ctx, scenes, func(s *domain.Scene, e timeline.Entry) {
			fmt.Printf("[%6.2fs] scene %d: %s\n", e.Start, s.ID+1, s.Title)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("render: playback interrupted")
		}
	}
}

// bundleName derives a filesystem-friendly archive name from the topic.
func bundleName(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "bundle"
	}
	return name + ".zip"
}
