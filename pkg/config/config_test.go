package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/pkg/config"
)

func validConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:     "test-app",
			Mode:     "development",
			LogLevel: "info",
		},
		Storage: config.StorageConfig{Driver: "memory"},
		Database: config.DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "testdb",
			MaxConnections: 10,
		},
		Prediction: config.PredictionConfig{
			Trend:       "history",
			TrendWindow: 24 * time.Hour,
			MaxFactors:  5,
		},
		Cache: config.CacheConfig{
			Type: "memory",
			TTL:  time.Minute,
		},
		Rescorer: config.RescorerConfig{
			Enabled:      true,
			Interval:     time.Minute,
			CycleTimeout: 30 * time.Second,
		},
		API: config.APIConfig{
			Port:         8080,
			JWTSecret:    "secret",
			JWTDuration:  time.Hour,
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		Prometheus: config.PrometheusConfig{Enabled: true, Port: 9090},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*config.Config)
		expectErr   bool
		errContains string
	}{
		{
			name:       "valid config",
			modifyFunc: func(c *config.Config) {},
		},
		{
			name:        "unknown storage driver",
			modifyFunc:  func(c *config.Config) { c.Storage.Driver = "sqlite" },
			expectErr:   true,
			errContains: "storage.driver must be one of",
		},
		{
			name: "postgres requires database fields",
			modifyFunc: func(c *config.Config) {
				c.Storage.Driver = "postgres"
				c.Database.Host = ""
			},
			expectErr:   true,
			errContains: "database.host is required",
		},
		{
			name: "postgres url skips field checks",
			modifyFunc: func(c *config.Config) {
				c.Storage.Driver = "postgres"
				c.Database = config.DatabaseConfig{URL: "postgres://localhost/predictify"}
			},
		},
		{
			name:        "unknown trend source",
			modifyFunc:  func(c *config.Config) { c.Prediction.Trend = "random" },
			expectErr:   true,
			errContains: "prediction.trend must be one of",
		},
		{
			name: "redis without url",
			modifyFunc: func(c *config.Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = ""
			},
			expectErr:   true,
			errContains: "cache.redis_url is required",
		},
		{
			name:        "rescorer timeout too long",
			modifyFunc:  func(c *config.Config) { c.Rescorer.CycleTimeout = 2 * time.Minute },
			expectErr:   true,
			errContains: "cycle_timeout must be less than",
		},
		{
			name:       "disabled rescorer ignores interval",
			modifyFunc: func(c *config.Config) { c.Rescorer = config.RescorerConfig{} },
		},
		{
			name: "default secret in production",
			modifyFunc: func(c *config.Config) {
				c.App.Mode = "production"
				c.API.JWTSecret = "change-me-in-production"
			},
			expectErr:   true,
			errContains: "jwt_secret must be changed",
		},
		{
			name:        "metrics port clash",
			modifyFunc:  func(c *config.Config) { c.Prometheus.Port = 8080 },
			expectErr:   true,
			errContains: "prometheus.port must differ",
		},
		{
			name:        "kafka without topic",
			modifyFunc:  func(c *config.Config) { c.Kafka = config.KafkaConfig{Enabled: true, Brokers: []string{"k:9092"}} },
			expectErr:   true,
			errContains: "kafka.topic is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()

			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	cfg.API.Port = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.name is required")
	assert.Contains(t, err.Error(), "api.port must be between")
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "predictify", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Prediction.TrendWindow)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictify.yaml")
	content := []byte("app:\n  log_level: debug\napi:\n  port: 8181\ncache:\n  type: redis\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("PREDICTIFY_API_PORT", "9191")
	t.Setenv("PREDICTIFY_PREDICTION_TREND", "seeded")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, "seeded", cfg.Prediction.Trend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestDatabaseConfig_ToDBConfig(t *testing.T) {
	dbCfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "testdb",
		User:     "admin",
		Password: "secret",
		SSLMode:  "disable",
	}

	dsn := dbCfg.ToDBConfig().DSN()

	assert.Equal(t, "host=localhost port=5432 user=admin password=secret dbname=testdb sslmode=disable", dsn)
}
