package config

import (
	"errors"
	"fmt"
)

const defaultJWTSecret = "change-me-in-production"

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		errs = append(errs, c.validateDatabase()...)
	default:
		errs = append(errs, errors.New("storage.driver must be one of: memory, postgres"))
	}

	switch c.Prediction.Trend {
	case "none", "seeded", "history":
	default:
		errs = append(errs, errors.New("prediction.trend must be one of: none, seeded, history"))
	}
	if c.Prediction.Trend == "history" && c.Prediction.TrendWindow <= 0 {
		errs = append(errs, errors.New("prediction.trend_window must be positive"))
	}
	if c.Prediction.MaxFactors < 0 {
		errs = append(errs, errors.New("prediction.max_factors must not be negative"))
	}

	switch c.Cache.Type {
	case "none", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required when cache.type is redis"))
		}
	default:
		errs = append(errs, errors.New("cache.type must be one of: none, memory, redis"))
	}
	if c.Cache.Type != "none" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	if c.Rescorer.Enabled {
		if c.Rescorer.Interval <= 0 {
			errs = append(errs, errors.New("rescorer.interval must be positive"))
		}
		if c.Rescorer.CycleTimeout >= c.Rescorer.Interval {
			errs = append(errs, errors.New("rescorer.cycle_timeout must be less than rescorer.interval"))
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.JWTDuration <= 0 {
		errs = append(errs, errors.New("api.jwt_duration must be positive"))
	}
	if c.App.Mode == "production" && (c.API.JWTSecret == "" || c.API.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		errs = append(errs, errors.New("api.max_limit must be >= api.default_limit"))
	}

	if c.Prometheus.Enabled && c.Prometheus.Port == c.API.Port {
		errs = append(errs, errors.New("prometheus.port must differ from api.port"))
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic is required when kafka is enabled"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

func (c *Config) validateDatabase() []error {
	var errs []error
	if c.Database.URL != "" {
		return nil
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}
	return errs
}
