package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/api"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/auth"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/config"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/events"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/imaging"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/gemini"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/localfs"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/platform/memory"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/prompt"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/store"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/task"
)

// sseHeartbeat is the keep-alive interval of event streams.
const sseHeartbeat = 15 * time.Second

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	store       store.ArtifactStore
	generator   generation.Generator
	studio      *task.Studio
	broadcaster *events.Broadcaster
	tokens      auth.TokenService

	handler http.Handler
}

// newApplication creates a new application instance with all dependencies
// initialized. The dispatchers are not started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...gemini.Option) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.store, err = newArtifactStore(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}
	logger.Info("Artifact store initialized", "backend", cfg.Storage.Backend)

	transport, err := gemini.NewTransport(ctx, logger, cfg.LLM, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image transport: %w", err)
	}
	app.generator, err = generation.NewGateway(transport, generation.Policy{
		MaxRetries: cfg.LLM.MaxRetries,
		Unit:       cfg.LLM.BackoffUnit,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation gateway: %w", err)
	}

	builder, err := prompt.NewBuilder(cfg.LLM.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt builder: %w", err)
	}
	canonicalizer, err := imaging.NewCanonicalizer(cfg.Output.Size, cfg.Output.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize canonicalizer: %w", err)
	}

	app.broadcaster = events.NewBroadcaster(logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(app.broadcaster)

	app.studio, err = task.NewStudio(task.Dependencies{
		Store:         app.store,
		Generator:     app.generator,
		Builder:       builder,
		Canonicalizer: canonicalizer,
		Emitter:       emitter,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize studio: %w", err)
	}

	if cfg.Auth.Enabled() {
		app.tokens, err = auth.NewTokenService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
		logger.Info("Bearer authentication enabled", "token_lifetime", cfg.Auth.TokenLifetime)
	}

	studioHandler, err := api.NewStudioHandler(api.HandlerConfig{
		Studio:         app.studio,
		Store:          app.store,
		Broadcaster:    app.broadcaster,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Heartbeat:      sseHeartbeat,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handler: %w", err)
	}

	app.handler = api.NewRouter(api.RouterConfig{
		Handler:        studioHandler,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Tokens:         app.tokens,
	}, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

func newArtifactStore(cfg config.StorageConfig, logger *slog.Logger) (store.ArtifactStore, error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewArtifactStore(), nil
	case "localfs":
		return localfs.New(cfg.Root, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Run starts the dispatchers and serves HTTP on the configured port until
// ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.run(ctx, listener)
}

func (app *application) run(ctx context.Context, listener net.Listener) error {
	if err := app.studio.Start(); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to start studio: %w", err)
	}
	defer app.cleanup()

	if err := app.serve(ctx, listener, app.handler); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the dispatchers. Running generations are cancelled.
func (app *application) cleanup() {
	app.studio.Stop()
	app.logger.Info("Studio stopped")
}
