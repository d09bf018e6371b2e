package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/internal/cache"
	"github.com/OldStager01/predictify/internal/resilience"
	"github.com/OldStager01/predictify/pkg/models"
)

func samplePrediction() *models.Prediction {
	return &models.Prediction{
		Probability: 82,
		Level:       models.LevelHigh,
		Confidence:  82,
		Factors: []models.Factor{
			{ID: "trending_topic", Type: models.FactorPositive, Impact: models.ImpactHigh, Weight: 0.12},
		},
		Trend:       models.TrendUp,
		TrendChange: 3.2,
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	c := cache.NewMemoryCache(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := c.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))

	got, err := c.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 82, got.Probability)
	assert.Equal(t, 3.2, got.TrendChange)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	assert.Equal(t, 1, c.Evict())
	assert.Zero(t, c.Len())
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	ctx := context.Background()
	p := samplePrediction()

	require.NoError(t, c.Set(ctx, "evt-1", p))
	p.Factors[0].ID = "mutated"

	got, err := c.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "trending_topic", got.Factors[0].ID)

	got.Factors[0].ID = "mutated-again"
	again, _ := c.Get(ctx, "evt-1")
	assert.Equal(t, "trending_topic", again.Factors[0].ID)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))
	require.NoError(t, c.Delete(ctx, "evt-1"))

	_, err := c.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

type flakyCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *flakyCache) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *flakyCache) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *flakyCache) Get(context.Context, string) (*models.Prediction, error) {
	return nil, f.record()
}

func (f *flakyCache) Set(context.Context, string, *models.Prediction) error {
	return f.record()
}

func (f *flakyCache) Delete(context.Context, string) error {
	return f.record()
}

func TestResilientCache_DegradesToMiss(t *testing.T) {
	backend := &flakyCache{err: errors.New("connection refused")}
	c := cache.NewResilientCache(cache.ResilientCacheConfig{
		Backend:     backend,
		MaxFailures: 2,
		OpenTimeout: time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Get(ctx, "evt-1")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	}
	assert.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))
	assert.NoError(t, c.Delete(ctx, "evt-1"))

	assert.Equal(t, 2, backend.Calls())
	assert.Equal(t, resilience.StateOpen, c.CircuitState())

	c.ResetCircuit()
	assert.Equal(t, resilience.StateClosed, c.CircuitState())
}

func TestResilientCache_PassesThrough(t *testing.T) {
	c := cache.NewResilientCache(cache.ResilientCacheConfig{Backend: cache.NewMemoryCache(time.Minute)})
	ctx := context.Background()

	_, err := c.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))
	got, err := c.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.LevelHigh, got.Level)
	assert.Equal(t, resilience.StateClosed, c.CircuitState())
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rc := cache.NewRedisCache(client, time.Minute)
	ctx := context.Background()

	_, err := rc.Get(ctx, "evt-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrCacheMiss)

	resilient := cache.NewResilientCache(cache.ResilientCacheConfig{
		Backend:     rc,
		MaxFailures: 1,
		OpenTimeout: time.Hour,
		CallTimeout: time.Second,
	})
	_, err = resilient.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.Equal(t, resilience.StateOpen, resilient.CircuitState())
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://:bad@host:notaport/0")
	assert.Error(t, err)
}

type brokenDeletes struct {
	*cache.MemoryCache
	fail bool
}

func (b *brokenDeletes) Delete(ctx context.Context, eventID string) error {
	if b.fail {
		return errors.New("connection reset")
	}
	return b.MemoryCache.Delete(ctx, eventID)
}

func TestResilientCache_FailedDeleteMasksEntry(t *testing.T) {
	backend := &brokenDeletes{MemoryCache: cache.NewMemoryCache(time.Hour), fail: true}
	c := cache.NewResilientCache(cache.ResilientCacheConfig{Backend: backend, MaxFailures: 10})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))
	require.NoError(t, c.Delete(ctx, "evt-1"))

	assert.Equal(t, 1, backend.Len())
	assert.Equal(t, 1, c.StaleKeys())
	_, err := c.Get(ctx, "evt-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	fresh := samplePrediction()
	fresh.Probability = 40
	require.NoError(t, c.Set(ctx, "evt-1", fresh))

	got, err := c.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Probability)
	assert.Equal(t, 0, c.StaleKeys())
}

func TestResilientCache_OpenCircuitDeleteMasksEntry(t *testing.T) {
	mem := cache.NewMemoryCache(time.Hour)
	backend := &brokenDeletes{MemoryCache: mem, fail: true}
	c := cache.NewResilientCache(cache.ResilientCacheConfig{Backend: backend, MaxFailures: 1, OpenTimeout: time.Hour})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "evt-1", samplePrediction()))
	require.NoError(t, c.Set(ctx, "evt-2", samplePrediction()))
	require.NoError(t, c.Delete(ctx, "evt-1"))
	require.Equal(t, resilience.StateOpen, c.CircuitState())

	require.NoError(t, c.Delete(ctx, "evt-2"))

	assert.Equal(t, 2, mem.Len())
	assert.Equal(t, 2, c.StaleKeys())
}
