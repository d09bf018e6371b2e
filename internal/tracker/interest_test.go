package tracker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/internal/tracker"
	"github.com/OldStager01/predictify/pkg/models"
)

var now = time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)

func newTestTracker() *tracker.InterestTracker {
	return tracker.New(tracker.Config{
		Window:           24 * time.Hour,
		MaxHistoryLength: 5,
		Now:              func() time.Time { return now },
	})
}

func TestInterestTracker_TrendChange(t *testing.T) {
	tests := []struct {
		name      string
		snapshots []tracker.Snapshot
		current   int
		expected  float64
	}{
		{
			name:     "no history",
			current:  40,
			expected: 0,
		},
		{
			name: "growth within window",
			snapshots: []tracker.Snapshot{
				{Timestamp: now.Add(-20 * time.Hour), InterestedCount: 40},
				{Timestamp: now.Add(-2 * time.Hour), InterestedCount: 45},
			},
			current:  50,
			expected: 25,
		},
		{
			name: "snapshots outside window are ignored",
			snapshots: []tracker.Snapshot{
				{Timestamp: now.Add(-48 * time.Hour), InterestedCount: 10},
				{Timestamp: now.Add(-6 * time.Hour), InterestedCount: 60},
			},
			current:  45,
			expected: -25,
		},
		{
			name: "only stale history",
			snapshots: []tracker.Snapshot{
				{Timestamp: now.Add(-72 * time.Hour), InterestedCount: 10},
			},
			current:  30,
			expected: 0,
		},
		{
			name: "zero baseline",
			snapshots: []tracker.Snapshot{
				{Timestamp: now.Add(-time.Hour), InterestedCount: 0},
			},
			current:  3,
			expected: 100,
		},
		{
			name: "rounds to one decimal",
			snapshots: []tracker.Snapshot{
				{Timestamp: now.Add(-time.Hour), InterestedCount: 30},
			},
			current:  31,
			expected: 3.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			for _, s := range tt.snapshots {
				tr.Record("evt-1", s.InterestedCount, s.Timestamp)
			}

			change := tr.TrendChange(models.EventAttributes{EventID: "evt-1", InterestedCount: tt.current})

			assert.InDelta(t, tt.expected, change, 1e-9)
		})
	}
}

func TestInterestTracker_WithoutEventID(t *testing.T) {
	tr := newTestTracker()
	tr.Record("", 10, now)

	assert.Zero(t, tr.TrendChange(models.EventAttributes{InterestedCount: 10}))
}

func TestInterestTracker_HistoryIsBounded(t *testing.T) {
	tr := newTestTracker()
	for i := 0; i < 8; i++ {
		tr.Record("evt-1", i, now.Add(time.Duration(i)*time.Minute))
	}

	history := tr.History("evt-1")
	require.Len(t, history, 5)
	assert.Equal(t, 3, history[0].InterestedCount)
	assert.Equal(t, 7, history[4].InterestedCount)
}

func TestInterestTracker_DropsOutOfOrderSnapshots(t *testing.T) {
	tr := newTestTracker()
	tr.Record("evt-1", 10, now)
	tr.Record("evt-1", 5, now.Add(-time.Hour))

	assert.Len(t, tr.History("evt-1"), 1)
}

func TestInterestTracker_Forget(t *testing.T) {
	tr := newTestTracker()
	tr.Record("evt-1", 10, now)
	tr.Forget("evt-1")

	assert.Empty(t, tr.History("evt-1"))
}

func TestInterestTracker_FeedsEngine(t *testing.T) {
	tr := newTestTracker()
	tr.Record("evt-9", 20, now.Add(-3*time.Hour))

	engine := prediction.NewEngine(prediction.Config{
		Now:   func() time.Time { return now },
		Trend: tr,
	})

	p := engine.Score(models.EventAttributes{
		EventID:         "evt-9",
		InterestedCount: 30,
		Capacity:        100,
		LocationType:    models.LocationVirtual,
		EventDate:       models.NewDate(2025, time.March, 12),
	})

	assert.InDelta(t, 50.0, p.TrendChange, 1e-9)
	assert.Equal(t, 55, p.Probability)
}
