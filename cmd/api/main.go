package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reelforge/internal/api"
	"reelforge/internal/domain"
	"reelforge/internal/genai"
	"reelforge/internal/infra"
	"reelforge/internal/pipeline"
	"reelforge/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	snapshots, err := store.Open(cfg.SnapshotPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot store")
	}
	defer snapshots.Close()

	client, err := genai.NewClient(genai.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		ScriptModel: cfg.ScriptModel,
		ImageModel:  cfg.ImageModel,
		SpeechModel: cfg.SpeechModel,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("generation client unavailable; set GEMINI_API_KEY")
	}

	runPipeline := func(ctx context.Context, topic string, scenes []*domain.Scene, progress pipeline.ProgressFunc) (pipeline.Result, error) {
		sched := pipeline.NewScheduler(client, snapshots, logger, pipeline.Options{
			BatchSize:         cfg.BatchSize,
			MaxRetries:        cfg.MaxRetries,
			RetryInitialDelay: cfg.RetryInitialDelay,
			SaveCooldown:      cfg.SaveCooldown,
			Progress:          progress,
		})
		return sched.Run(ctx, topic, scenes)
	}

	app := api.NewApp(api.Deps{
		Scripts:       client,
		Pipeline:      runPipeline,
		Store:         snapshots,
		Logger:        logger,
		PlaybackSpeed: cfg.PlaybackSpeed,
		SafetyBuffer:  cfg.SafetyBuffer,
	})
	if err := app.Restore(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("snapshot restore failed; starting empty")
	}

	router := api.NewRouter(app, logger, cfg.AllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
