package rescorer

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/pkg/models"
)

// Catalog is the part of catalog.Service the rescorer drives.
type Catalog interface {
	ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error)
	Refresh(ctx context.Context, e *models.Event) *models.Prediction
	Complete(ctx context.Context, id string) (*models.Event, error)
}

// Config for a Rescorer. CycleTimeout bounds one pass and defaults to
// Interval minus one second.
type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	Catalog      Catalog
	Publisher    *events.Publisher
	Now          func() time.Time
}

// Rescorer periodically recomputes the prediction of every published event
// and completes events whose date has passed.
type Rescorer struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func New(cfg Config) *Rescorer {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.CycleTimeout == 0 {
		cfg.CycleTimeout = cfg.Interval - time.Second
		if cfg.CycleTimeout <= 0 {
			cfg.CycleTimeout = cfg.Interval
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Rescorer{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *Rescorer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	r.running = true
	r.wg.Add(1)
	go r.run()

	logger.WithComponent("rescorer").Infof("Rescorer started (interval %s)", r.config.Interval)
	return nil
}

func (r *Rescorer) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	logger.WithComponent("rescorer").Info("Rescorer stopped")
}

func (r *Rescorer) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Rescorer) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.runCycle()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runCycle()
		}
	}
}

func (r *Rescorer) runCycle() {
	ctx, cancel := context.WithTimeout(r.ctx, r.config.CycleTimeout)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		logger.WithComponent("rescorer").Errorf("Rescore cycle failed: %v", err)
	}
}

// RunOnce performs a single pass and returns its summary.
func (r *Rescorer) RunOnce(ctx context.Context) (*models.RescoreSummary, error) {
	started := r.config.Now()
	summary := &models.RescoreSummary{
		StartedAt: started,
		ByLevel:   make(map[string]int),
	}

	published, err := r.config.Catalog.ListByStatus(ctx, models.EventStatusPublished)
	if err != nil {
		metrics.Get().ObserveRescore("error", 0, time.Since(started))
		r.config.Publisher.Error("", "Rescore listing failed", err)
		return nil, err
	}

	today := models.DateOf(started.UTC())
	for _, e := range published {
		if err := ctx.Err(); err != nil {
			summary.Failed += len(published) - summary.Scored - summary.Completed - summary.Failed
			break
		}

		if !e.StartDate.IsZero() && e.StartDate.Before(today.Time) {
			r.complete(ctx, e, summary)
			continue
		}

		p := r.config.Catalog.Refresh(ctx, e)
		summary.Scored++
		summary.ByLevel[string(p.Level)]++

		if p.Level == models.LevelLow {
			r.config.Publisher.Alert(e.ID, models.SeverityWarning, "Low attendance outlook: "+e.Title, p)
		}
	}

	summary.Duration = time.Since(started)

	outcome := "success"
	if summary.Failed > 0 {
		outcome = "partial"
	}
	metrics.Get().ObserveRescore(outcome, summary.Scored, summary.Duration)
	r.config.Publisher.RescoreComplete(summary)

	logger.WithComponent("rescorer").Infof(
		"Rescore complete: %d scored, %d completed, %d failed",
		summary.Scored, summary.Completed, summary.Failed,
	)
	return summary, nil
}

func (r *Rescorer) complete(ctx context.Context, e *models.Event, summary *models.RescoreSummary) {
	if _, err := r.config.Catalog.Complete(ctx, e.ID); err != nil {
		summary.Failed++
		logger.WithEvent(e.ID).Warnf("Failed to complete past event: %v", err)
		r.config.Publisher.Error(e.ID, "Failed to complete past event", err)
		return
	}
	summary.Completed++
}
