package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/internal/resilience"
	"github.com/OldStager01/predictify/pkg/models"
)

// ResilientCache guards a backend with a circuit breaker. Backend failures
// are logged and turned into misses so callers fall back to recomputing.
// A key whose delete failed is treated as a miss until a later Set or
// Delete for it reaches the backend.
type ResilientCache struct {
	backend        PredictionCache
	circuitBreaker *resilience.CircuitBreaker
	timeout        time.Duration

	mu    sync.Mutex
	stale map[string]struct{}
}

type ResilientCacheConfig struct {
	Backend     PredictionCache
	MaxFailures int
	OpenTimeout time.Duration
	CallTimeout time.Duration
	Now         func() time.Time
}

// NewResilientCache wraps cfg.Backend. CallTimeout defaults to 200ms.
func NewResilientCache(cfg ResilientCacheConfig) *ResilientCache {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 200 * time.Millisecond
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "prediction_cache",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.OpenTimeout,
		Now:         cfg.Now,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.WithComponent(name).Warnf("Circuit breaker %s -> %s", from, to)
			metrics.Get().SetCircuitBreakerState(name, int(to))
		},
	})

	return &ResilientCache{
		backend:        cfg.Backend,
		circuitBreaker: cb,
		timeout:        cfg.CallTimeout,
		stale:          make(map[string]struct{}),
	}
}

func (c *ResilientCache) Get(ctx context.Context, eventID string) (*models.Prediction, error) {
	if c.isStale(eventID) {
		metrics.Get().IncCacheMiss()
		return nil, ErrCacheMiss
	}

	var p *models.Prediction
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = c.backend.Get(ctx, eventID)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return err
	})

	if err != nil {
		c.degrade("get", eventID, err)
		return nil, ErrCacheMiss
	}
	if p == nil {
		metrics.Get().IncCacheMiss()
		return nil, ErrCacheMiss
	}

	metrics.Get().IncCacheHit()
	return p, nil
}

func (c *ResilientCache) Set(ctx context.Context, eventID string, p *models.Prediction) error {
	err := c.call(ctx, func(ctx context.Context) error {
		return c.backend.Set(ctx, eventID, p)
	})
	if err != nil {
		c.degrade("set", eventID, err)
		return nil
	}
	c.markStale(eventID, false)
	return nil
}

func (c *ResilientCache) Delete(ctx context.Context, eventID string) error {
	err := c.call(ctx, func(ctx context.Context) error {
		return c.backend.Delete(ctx, eventID)
	})
	if err != nil {
		c.degrade("delete", eventID, err)
	}
	c.markStale(eventID, err != nil)
	return nil
}

// StaleKeys reports how many keys are masked after a failed delete.
func (c *ResilientCache) StaleKeys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stale)
}

func (c *ResilientCache) isStale(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[eventID]
	return ok
}

func (c *ResilientCache) markStale(eventID string, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale {
		c.stale[eventID] = struct{}{}
	} else {
		delete(c.stale, eventID)
	}
}

func (c *ResilientCache) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.circuitBreaker.ExecuteContext(ctx, fn)
}

func (c *ResilientCache) degrade(op, eventID string, err error) {
	metrics.Get().IncCacheError()
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyProbes) {
		logger.WithEvent(eventID).Debugf("Cache %s skipped: circuit open", op)
		return
	}
	logger.WithEvent(eventID).Warnf("Cache %s failed: %v", op, err)
}

func (c *ResilientCache) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}

func (c *ResilientCache) ResetCircuit() {
	c.circuitBreaker.Reset()
}
