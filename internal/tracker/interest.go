package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

type Config struct {
	// Window is how far back TrendChange looks for a baseline.
	Window           time.Duration
	MaxHistoryLength int
	Now              func() time.Time
}

type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	InterestedCount int       `json:"interestedCount"`
}

// InterestTracker keeps recent interest counts per event and derives the
// trendChange magnitude from them.
type InterestTracker struct {
	config    Config
	history   map[string][]Snapshot
	historyMu sync.RWMutex
}

func New(cfg Config) *InterestTracker {
	if cfg.Window == 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if cfg.MaxHistoryLength == 0 {
		cfg.MaxHistoryLength = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &InterestTracker{
		config:  cfg,
		history: make(map[string][]Snapshot),
	}
}

// Record appends a snapshot. Out-of-order snapshots are dropped.
func (t *InterestTracker) Record(eventID string, interested int, at time.Time) {
	if eventID == "" {
		return
	}

	t.historyMu.Lock()
	defer t.historyMu.Unlock()

	history := t.history[eventID]
	if n := len(history); n > 0 && at.Before(history[n-1].Timestamp) {
		return
	}
	history = append(history, Snapshot{Timestamp: at, InterestedCount: interested})

	if len(history) > t.config.MaxHistoryLength {
		history = history[len(history)-t.config.MaxHistoryLength:]
	}

	t.history[eventID] = history
}

// TrendChange is the percentage change between the oldest snapshot inside
// the window and the current interested count, rounded to one decimal.
// Without history it reports 0.
func (t *InterestTracker) TrendChange(attrs models.EventAttributes) float64 {
	if attrs.EventID == "" {
		return 0
	}

	baseline, ok := t.baseline(attrs.EventID)
	if !ok {
		return 0
	}

	current := attrs.InterestedCount
	if baseline == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}

	change := float64(current-baseline) / float64(baseline) * 100
	change = math.Round(change*10) / 10

	logger.WithEvent(attrs.EventID).Debugf("Interest trend: %d -> %d (%.1f%%)", baseline, current, change)
	return change
}

func (t *InterestTracker) baseline(eventID string) (int, bool) {
	t.historyMu.RLock()
	defer t.historyMu.RUnlock()

	cutoff := t.config.Now().Add(-t.config.Window)
	for _, s := range t.history[eventID] {
		if !s.Timestamp.Before(cutoff) {
			return s.InterestedCount, true
		}
	}
	return 0, false
}

func (t *InterestTracker) History(eventID string) []Snapshot {
	t.historyMu.RLock()
	defer t.historyMu.RUnlock()

	history := t.history[eventID]
	out := make([]Snapshot, len(history))
	copy(out, history)
	return out
}

func (t *InterestTracker) Forget(eventID string) {
	t.historyMu.Lock()
	defer t.historyMu.Unlock()
	delete(t.history, eventID)
}
