// Package main implements the imagegen API server. It relays generation
// requests to the remote task API, runs server-side generation sessions,
// and optionally records their outcomes in Postgres.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/imagegen-api/internal/config"
	"github.com/phrazzld/imagegen-api/internal/platform/logger"
	"github.com/phrazzld/imagegen-api/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "imagegen-server: %v\n", err)
		os.Exit(1)
	}
}

// run parses flags, loads configuration, and either executes a migration
// command or serves HTTP until ctx is cancelled.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("imagegen-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to a config file (default: ./config.yaml if present)")
	migrateCmd := fs.String("migrate", "", "Run database migrations: up, down, reset, status, version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"upstream", cfg.Upstream.BaseURL,
		"api_key_present", cfg.Upstream.APIKey != "",
		"history_enabled", cfg.Database.URL != "")

	if *migrateCmd != "" {
		return handleMigrations(ctx, cfg, *migrateCmd, log)
	}

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// handleMigrations runs one goose command against the configured database.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, log *slog.Logger) error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required to run migrations")
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database", "error", cerr)
		}
	}()

	log.Info("Executing migrations", "command", command)
	if err := postgres.Migrate(ctx, db, command, log); err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}
	log.Info("Migrations completed", "command", command)
	return nil
}
