package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/imagegen-api/internal/api"
	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/phrazzld/imagegen-api/internal/generation"
	"github.com/phrazzld/imagegen-api/internal/platform/postgres"
	"github.com/phrazzld/imagegen-api/internal/platform/zimage"
	"github.com/phrazzld/imagegen-api/internal/service"
	"github.com/phrazzld/imagegen-api/internal/task"
)

// sessionPruneInterval is how often settled sessions are swept.
const sessionPruneInterval = time.Minute

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when history is disabled.
	db *sql.DB

	gateway  generation.Gateway
	policy   task.Policy
	history  *service.HistoryService
	sessions *api.SessionRegistry
}

// appOption adjusts an application before its components are built.
type appOption func(*application)

// withGateway replaces the zimage client, e.g. with a fake in tests.
func withGateway(gw generation.Gateway) appOption {
	return func(app *application) {
		app.gateway = gw
	}
}

// newApplication creates a new application instance with all dependencies initialized.
// When database.url is set the schema is migrated and history is enabled.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		policy: task.PolicyFromConfig(cfg.Polling),
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.gateway == nil {
		app.gateway = zimage.NewClient(cfg.Upstream, logger)
	}
	if cfg.Upstream.APIKey == "" {
		logger.Warn("upstream API key is not configured; generation requests will fail")
	}

	if cfg.Database.URL != "" {
		if err := app.setupHistory(ctx); err != nil {
			return nil, err
		}
	}

	app.sessions = api.NewSessionRegistry(app.newController, cfg.Server.SessionRetention, nil, logger)

	logger.Info("Application initialized successfully",
		"poll_interval", app.policy.Interval,
		"max_attempts", app.policy.MaxAttempts,
		"session_retention", cfg.Server.SessionRetention)
	return app, nil
}

func (app *application) setupHistory(ctx context.Context) error {
	db, err := postgres.Open(ctx, app.config.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.Migrate(ctx, db, postgres.MigrateUp, app.logger); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	history, err := service.NewHistoryService(postgres.NewPostgresGenerationStore(db), app.logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create history service: %w", err)
	}

	app.db = db
	app.history = history
	app.logger.Info("Generation history enabled")
	return nil
}

// newController builds one session's controller with the shared policy and
// the history listener, when enabled.
func (app *application) newController() *task.Controller {
	c := task.NewController(app.gateway, app.gateway,
		task.WithPolicy(app.policy),
		task.WithLogger(app.logger))
	if app.history != nil {
		c.OnStateChange(app.history)
	}
	return c
}

// Run serves HTTP until ctx is cancelled, then cleans up.
func (app *application) Run(ctx context.Context) error {
	go app.pruneSessions(ctx)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sessions.Prune()
		}
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.sessions != nil {
		app.sessions.Close()
	}
	if app.history != nil {
		app.history.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
