// Command predictify serves the event attendance prediction API and its
// maintenance tasks.
//
// Usage:
//
//	predictify serve --config configs/config.yaml
//	predictify migrate
//	predictify score --file attrs.yaml
//	predictify rescore

// @title Predictify API
// @version 1.0
// @description Event catalog with rule-based attendance predictions.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/OldStager01/predictify/api"
	"github.com/OldStager01/predictify/api/handlers"
	"github.com/OldStager01/predictify/internal/app"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/pkg/config"
	"github.com/OldStager01/predictify/pkg/database"
)

func main() {
	_ = godotenv.Load(".env")

	var configPath string
	root := &cobra.Command{
		Use:           "predictify",
		Short:         "Event attendance prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	root.AddCommand(scoreCmd())
	root.AddCommand(rescoreCmd(&configPath))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub and rescorer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	initCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	application, err := app.New(initCtx, cfg)
	if err != nil {
		return err
	}
	if err := application.Start(); err != nil {
		application.Stop()
		return err
	}
	defer application.Stop()

	if cfg.Prometheus.Enabled {
		metrics.StartServer(cfg.Prometheus.Port)
	}

	checks := make(map[string]handlers.CheckFunc)
	for name, check := range application.HealthChecks() {
		checks[name] = check
	}

	server := api.NewServer(cfg, api.Dependencies{
		Catalog:  application.Catalog(),
		Accounts: application.Accounts(),
		History:  application.History(),
		Bus:      application.EventBus(),
		Checks:   checks,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			logger.Info("Running database migrations")
			if err := app.Migrate(ctx, db, cfg.Database.MigrationTimeout); err != nil {
				return err
			}

			missing, err := db.MissingTables(ctx, database.RequiredTables...)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("tables missing after migration: %v", missing)
			}

			db.LogPoolStats()
			logger.Info("Migrations completed successfully")
			return nil
		},
	}
}

func rescoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recompute predictions for every published event once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			cfg.Rescorer.Enabled = false

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := application.Start(); err != nil {
				application.Stop()
				return err
			}
			defer application.Stop()

			ctx := cmd.Context()
			if cfg.Rescorer.CycleTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Rescorer.CycleTimeout)
				defer cancel()
			}

			summary, err := application.Rescorer().RunOnce(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}
