// main package for the cinema-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/cinema-ai/cinema-service/internal/config"
	"github.com/cinema-ai/cinema-service/internal/core"
	"github.com/cinema-ai/cinema-service/internal/engine"
	"github.com/cinema-ai/cinema-service/internal/media"
	"github.com/cinema-ai/cinema-service/internal/objectstore"
	"github.com/cinema-ai/cinema-service/internal/pipeline"
	"github.com/cinema-ai/cinema-service/internal/request"
	"github.com/cinema-ai/cinema-service/internal/script"
	"github.com/cinema-ai/cinema-service/internal/server"
	"github.com/cinema-ai/cinema-service/internal/worker"
)

const serviceVersion = "1.0.0"

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "cinema-service-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A missing .env file is fine; deployments inject the environment.
	_ = godotenv.Load()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve wires the transports around the router and blocks until shutdown.
func serve(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	natsConnection, store, err := connectNATS(ctx, cfg, log)
	if err != nil {
		return err
	}

	if natsConnection != nil {
		defer natsConnection.Close()
	}

	// Engines are built on first render so health checks pass before any
	// backend is reachable.
	lazy := pipeline.NewLazy(func() (*pipeline.Renderer, error) {
		return buildRenderer(ctx, cfg, store, log)
	})

	router := request.NewRouter(lazy, scriptBreaker(cfg, log), serviceVersion, log)

	if natsConnection != nil && cfg.NATS.RenderSubject != "" {
		renderWorker, workerErr := worker.NewNatsWorker(natsConnection, cfg.NATS.RenderSubject, router, log)
		if workerErr != nil {
			return fmt.Errorf("failed to create render worker: %w", workerErr)
		}

		go func() {
			runErr := renderWorker.Run(ctx)
			if runErr != nil {
				log.Error("Render worker stopped: %v", runErr)
			}
		}()

		log.System("Render worker listening on subject: %s", cfg.NATS.RenderSubject)
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.System("Cinema-Service %s initialized. Serving on %s", serviceVersion, addr)

	httpServer := server.New(router, log)

	return httpServer.Run(ctx, addr)
}

// connectNATS establishes the optional NATS connection and artifact store.
// Both are disabled when no URL is configured.
func connectNATS(_ context.Context, cfg *config.Config, log *logger.Logger) (*nats.Conn, core.ObjectStore, error) {
	if cfg.NATS.URL == "" {
		return nil, nil, nil
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	var store core.ObjectStore

	if cfg.NATS.ArtifactStoreBucket != "" {
		jetstreamContext, jsErr := natsConnection.JetStream()
		if jsErr != nil {
			natsConnection.Close()

			return nil, nil, fmt.Errorf("failed to get JetStream context: %w", jsErr)
		}

		store, err = objectstore.New(jetstreamContext, cfg.NATS.ArtifactStoreBucket)
		if err != nil {
			natsConnection.Close()

			return nil, nil, fmt.Errorf("failed to create artifact store: %w", err)
		}

		log.Info("Artifact store bound to bucket '%s'.", cfg.NATS.ArtifactStoreBucket)
	}

	return natsConnection, store, nil
}

// buildRenderer assembles the render pipeline from the configured engines.
func buildRenderer(ctx context.Context, cfg *config.Config, store core.ObjectStore, log *logger.Logger) (*pipeline.Renderer, error) {
	video, err := videoGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	speech := engine.NewSpeechEngine(cfg.Speech.BaseURL, engineTimeout(cfg.Speech.TimeoutSeconds))
	music := engine.NewMusicEngine(cfg.Music.BaseURL, engineTimeout(cfg.Music.TimeoutSeconds))
	effects := engine.NewEffectsEngine(cfg.Effects.BaseURL, engineTimeout(cfg.Effects.TimeoutSeconds))
	compositor := media.NewCompositor(cfg.Pipeline.MusicVolume, log)

	opts := pipeline.Options{
		OutputDir:          cfg.Pipeline.OutputDir,
		TempDir:            cfg.Pipeline.TempDir,
		Workers:            cfg.Pipeline.Workers,
		AudioFailurePolicy: cfg.Pipeline.AudioFailurePolicy,
		SceneTimeout:       time.Duration(cfg.Pipeline.SceneTimeoutSecs) * time.Second,
		SpeechLanguage:     cfg.Speech.Language,
		SpeechTemperature:  cfg.Speech.Temperature,
	}

	return pipeline.NewRenderer(video, speech, music, effects, compositor, store, opts, log), nil
}

// videoGenerator selects the configured video backend.
func videoGenerator(ctx context.Context, cfg *config.Config) (core.VideoGenerator, error) {
	if cfg.Video.Backend == config.VideoBackendVeo {
		veoEngine, err := engine.NewVeoEngine(ctx, engine.VeoConfig{
			Model:        cfg.Veo.Model,
			APIKey:       cfg.Veo.APIKey,
			ProjectID:    cfg.Veo.ProjectID,
			Location:     cfg.Veo.Location,
			PollInterval: time.Duration(cfg.Veo.PollSeconds) * time.Second,
			AspectRatio:  cfg.Veo.AspectRatio,
			PersonPolicy: cfg.Veo.PersonPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create veo backend: %w", err)
		}

		return veoEngine, nil
	}

	return engine.NewVideoEngine(cfg.Video.BaseURL, engineTimeout(cfg.Video.TimeoutSeconds)), nil
}

// engineTimeout converts a configured timeout, zero meaning no client bound.
func engineTimeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// scriptBreaker prefers the LLM analyzer when credentials are configured and
// falls back to the heuristic screenplay parser.
func scriptBreaker(cfg *config.Config, log *logger.Logger) request.ScriptBreaker {
	parser := script.NewParser(cfg.Script.MaxSceneDurationSecs)

	if cfg.Script.AnalyzerAPIKey != "" {
		analyzer := script.NewAnalyzer(
			cfg.Script.AnalyzerAPIKey,
			cfg.Script.AnalyzerBaseURL,
			cfg.Script.AnalyzerModel,
			cfg.Script.MaxSceneDurationSecs,
		)

		return script.NewFallbackBreaker(analyzer, parser, log)
	}

	return parser
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
