package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OldStager01/predictify/internal/auth"
	"github.com/OldStager01/predictify/internal/cache"
	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/internal/rescorer"
	"github.com/OldStager01/predictify/internal/tracker"
	"github.com/OldStager01/predictify/pkg/config"
	"github.com/OldStager01/predictify/pkg/database"
	"github.com/OldStager01/predictify/pkg/database/queries"
	"github.com/OldStager01/predictify/pkg/models"
)

// HistoryStore persists computed predictions and reads them back.
type HistoryStore interface {
	events.PredictionStore
	History(ctx context.Context, eventID string, limit int) ([]*models.PredictionRecord, error)
}

// App owns every long-lived component of the service and their lifecycle.
type App struct {
	config      *config.Config
	db          *database.DB
	redis       *cache.RedisCache
	memCache    *cache.MemoryCache
	cache       cache.PredictionCache
	repo        catalog.EventRepository
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	kafkaSink   *events.KafkaSink
	history     HistoryStore
	tracker     *tracker.InterestTracker
	catalog     *catalog.Service
	accounts    *auth.Accounts
	rescorer    *rescorer.Rescorer
	ctx         context.Context
	cancel      context.CancelFunc
}

// New connects the configured backends and builds the services on top of
// them. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{config: cfg}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	if err := a.setupStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.eventBus = events.NewEventBus(cfg.Events.BufferSize)
	a.eventLogger = events.NewEventLogger(a.history, a.eventBus.SubscribeAll())
	if cfg.Kafka.Enabled {
		writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.kafkaSink = events.NewKafkaSink(writer, a.eventBus.Subscribe(
			models.EventTypePredictionComputed,
			models.EventTypeStatusChanged,
			models.EventTypeInterestRegistered,
		))
	}

	a.tracker = tracker.New(tracker.Config{
		Window:           cfg.Prediction.TrendWindow,
		MaxHistoryLength: cfg.Prediction.MaxHistoryLength,
	})

	publisher := events.NewPublisher(a.eventBus)
	a.catalog = catalog.NewService(a.repo, catalog.Config{
		Engine:    prediction.NewEngine(prediction.Config{Trend: a.trendEstimator()}),
		Cache:     a.cache,
		Publisher: publisher,
		Tracker:   a.tracker,
	})

	a.rescorer = rescorer.New(rescorer.Config{
		Interval:     cfg.Rescorer.Interval,
		CycleTimeout: cfg.Rescorer.CycleTimeout,
		Catalog:      a.catalog,
		Publisher:    publisher,
	})

	if err := a.seed(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) setupStorage(ctx context.Context) error {
	tokens := auth.NewService(a.config.API.JWTSecret, a.config.API.JWTDuration)

	if a.config.Storage.Driver != "postgres" {
		a.repo = catalog.NewMemoryRepository()
		a.history = events.NewMemoryHistory(a.config.Prediction.MaxHistoryLength)
		a.accounts = auth.NewAccounts(auth.NewMemoryUserStore(), tokens)
		logger.Info("Using in-memory storage")
		return nil
	}

	db, err := database.New(a.config.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	if version, err := db.ServerVersion(ctx); err == nil {
		logger.WithField("version", version).Info("Database connection established")
	}

	if a.config.Database.AutoMigrate {
		if err := Migrate(ctx, db, a.config.Database.MigrationTimeout); err != nil {
			return err
		}
	}

	a.repo = queries.NewEventRepository(db)
	a.history = queries.NewPredictionRepository(db.DB)
	a.accounts = auth.NewAccounts(queries.NewUserRepository(db.DB), tokens)
	return nil
}

// Migrate applies the embedded schema migrations, bounded by timeout when set.
func Migrate(ctx context.Context, db *database.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	applied, err := database.NewMigrator(db).Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.WithField("applied", len(applied)).Info("Database schema up to date")
	return nil
}

func (a *App) setupCache(ctx context.Context) error {
	cfg := a.config.Cache

	var backend cache.PredictionCache
	switch cfg.Type {
	case "memory":
		a.memCache = cache.NewMemoryCache(cfg.TTL)
		backend = a.memCache
	case "redis":
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = cache.NewRedisCache(client, cfg.TTL)
		backend = a.redis
	default:
		logger.Info("Prediction cache disabled")
		return nil
	}

	a.cache = cache.NewResilientCache(cache.ResilientCacheConfig{
		Backend:     backend,
		MaxFailures: cfg.CircuitBreaker.MaxFailures,
		OpenTimeout: cfg.CircuitBreaker.Timeout,
		CallTimeout: cfg.CallTimeout,
	})
	logger.WithField("type", cfg.Type).Info("Prediction cache enabled")
	return nil
}

func (a *App) trendEstimator() prediction.TrendEstimator {
	switch strings.ToLower(a.config.Prediction.Trend) {
	case "seeded":
		return prediction.NewSeededTrend(a.config.Prediction.Seed)
	case "history":
		return a.tracker
	}
	return prediction.NoTrend{}
}

func (a *App) seed(ctx context.Context) error {
	if !a.config.Storage.SeedSampleData {
		return nil
	}
	_, err := catalog.Seed(ctx, a.repo, catalog.SampleEvents(time.Now()))
	return err
}

// Start launches the background workers: bus sinks, cache eviction and the
// rescorer.
func (a *App) Start() error {
	logger.Info("Application starting")

	a.eventLogger.Start()
	if a.kafkaSink != nil {
		a.kafkaSink.Start()
		logger.WithField("topic", a.config.Kafka.Topic).Info("Kafka sink started")
	}
	if a.memCache != nil && a.config.Cache.EvictInterval > 0 {
		go a.memCache.RunEviction(a.ctx, a.config.Cache.EvictInterval)
	}
	if a.config.Rescorer.Enabled {
		if err := a.rescorer.Start(); err != nil {
			return fmt.Errorf("failed to start rescorer: %w", err)
		}
	}
	return nil
}

// Stop halts the workers, drains the bus and releases connections.
func (a *App) Stop() {
	logger.Info("Application stopping")

	a.rescorer.Stop()
	a.cancel()

	a.eventBus.Close()
	a.eventLogger.Stop()
	if a.kafkaSink != nil {
		if err := a.kafkaSink.Stop(); err != nil {
			logger.Warnf("Failed to close kafka writer: %v", err)
		}
	}

	a.Close()
	logger.Info("Application stopped")
}

// Close releases external connections without touching the workers.
func (a *App) Close() {
	a.cancel()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warnf("Failed to close redis client: %v", err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
		a.db = nil
	}
}

// HealthChecks returns a probe per configured backend.
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if a.db != nil {
		checks["database"] = a.db.HealthCheck
	}
	if a.redis != nil {
		checks["cache"] = a.redis.Ping
	}
	return checks
}

func (a *App) Catalog() *catalog.Service         { return a.catalog }
func (a *App) Accounts() *auth.Accounts          { return a.accounts }
func (a *App) History() HistoryStore             { return a.history }
func (a *App) EventBus() *events.EventBus        { return a.eventBus }
func (a *App) Rescorer() *rescorer.Rescorer      { return a.rescorer }
func (a *App) Tracker() *tracker.InterestTracker { return a.tracker }
