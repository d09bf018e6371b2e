package resilience_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/predictify/internal/resilience"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBackend = errors.New("backend unavailable")

func failing() error { return errBackend }

func succeeding() error { return nil }

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		setup         func(cb *resilience.CircuitBreaker, clock *fakeClock)
		expectedState resilience.State
	}{
		{
			name:   "success stays closed",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				cb.Execute(succeeding)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "opens after max failures",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(failing)
				}
			},
			expectedState: resilience.StateOpen,
		},
		{
			name:   "success resets the failure count",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				cb.Execute(failing)
				cb.Execute(failing)
				cb.Execute(succeeding)
				cb.Execute(failing)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "half-open after timeout",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(failing)
				}
				clock.Advance(6 * time.Second)
				cb.Execute(succeeding)
			},
			expectedState: resilience.StateHalfOpen,
		},
		{
			name:   "half-open closes after enough probes",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second, HalfOpenMax: 2},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(failing)
				}
				clock.Advance(6 * time.Second)
				cb.Execute(succeeding)
				cb.Execute(succeeding)
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "half-open failure reopens",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(failing)
				}
				clock.Advance(6 * time.Second)
				cb.Execute(failing)
			},
			expectedState: resilience.StateOpen,
		},
		{
			name:   "reset returns to closed",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Hour},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				for i := 0; i < 3; i++ {
					cb.Execute(failing)
				}
				cb.Reset()
			},
			expectedState: resilience.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			cfg := tt.config
			cfg.Now = clock.Now
			cb := resilience.NewCircuitBreaker(cfg)

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenState_RejectsRequest(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 2,
		Timeout:     time.Hour,
	})

	cb.Execute(failing)
	cb.Execute(failing)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_ExecuteContext(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, cb.State())

	err = cb.ExecuteContext(context.Background(), func(ctx context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, cb.State())

	err = cb.ExecuteContext(context.Background(), func(ctx context.Context) error { return errBackend })
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	changes := make(chan resilience.State, 1)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "cache",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to resilience.State) {
			assert.Equal(t, "cache", name)
			assert.Equal(t, resilience.StateClosed, from)
			changes <- to
		},
	})

	cb.Execute(failing)

	select {
	case to := <-changes:
		assert.Equal(t, resilience.StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
	assert.Equal(t, "open", resilience.StateOpen.String())
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		Timeout:     time.Second,
		HalfOpenMax: 1,
		Now:         clock.Now,
	})

	cb.Execute(failing)
	clock.Advance(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := cb.Execute(succeeding)
	assert.ErrorIs(t, err, resilience.ErrTooManyProbes)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_IgnoresResultsFromEarlierState(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})

	release := make(chan struct{})
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- cb.Execute(func() error {
			close(started)
			<-release
			return errBackend
		})
	}()
	<-started

	cb.Execute(failing)
	assert.Equal(t, resilience.StateOpen, cb.State())
	cb.Reset()

	close(release)
	assert.ErrorIs(t, <-done, errBackend)

	counts := cb.Counts()
	assert.Equal(t, resilience.StateClosed, counts.State)
	assert.Zero(t, counts.ConsecutiveFailures)
}
