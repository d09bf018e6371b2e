package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OldStager01/predictify/pkg/models"
)

var ErrCacheMiss = errors.New("prediction not cached")

// PredictionCache stores computed predictions by event id. Get returns
// ErrCacheMiss when nothing usable is stored.
type PredictionCache interface {
	Get(ctx context.Context, eventID string) (*models.Prediction, error)
	Set(ctx context.Context, eventID string, p *models.Prediction) error
	Delete(ctx context.Context, eventID string) error
}

type memoryEntry struct {
	prediction models.Prediction
	expiresAt  time.Time
}

// MemoryCache is a TTL map for single-instance deployments.
type MemoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
	mu      sync.RWMutex
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// WithClock replaces the clock; used by tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, eventID string) (*models.Prediction, error) {
	c.mu.RLock()
	entry, ok := c.entries[eventID]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, ErrCacheMiss
	}

	p := entry.prediction
	p.Factors = append([]models.Factor(nil), entry.prediction.Factors...)
	return &p, nil
}

func (c *MemoryCache) Set(_ context.Context, eventID string, p *models.Prediction) error {
	stored := *p
	stored.Factors = append([]models.Factor(nil), p.Factors...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[eventID] = memoryEntry{prediction: stored, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Evict drops expired entries and reports how many were removed.
func (c *MemoryCache) Evict() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// RunEviction evicts expired entries every interval until ctx is done.
func (c *MemoryCache) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Evict()
		}
	}
}
