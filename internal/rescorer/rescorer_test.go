package rescorer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/rescorer"
	"github.com/OldStager01/predictify/pkg/models"
)

var fixedNow = time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func seededCatalog(t *testing.T, publisher *events.Publisher) (*catalog.Service, *catalog.MemoryRepository) {
	t.Helper()
	repo := catalog.NewMemoryRepository()
	_, err := catalog.Seed(context.Background(), repo, catalog.SampleEvents(fixedNow))
	require.NoError(t, err)

	past := &models.Event{
		ID:        "past-1",
		Slug:      "last-week",
		Title:     "Last Week",
		Category:  models.CategoryMeetup,
		Status:    models.EventStatusPublished,
		StartDate: models.NewDate(2025, time.March, 1),
		Location:  models.Location{Type: models.LocationVirtual},
		Capacity:  100,
		Organizer: models.Organizer{ID: "org1"},
	}
	require.NoError(t, repo.Create(context.Background(), past))

	return catalog.NewService(repo, catalog.Config{Publisher: publisher, Now: clock}), repo
}

func TestRescorer_RunOnce(t *testing.T) {
	bus := events.NewEventBus(100)
	defer bus.Close()
	completed := bus.Subscribe(models.EventTypeRescoreComplete)
	publisher := events.NewPublisher(bus)

	svc, repo := seededCatalog(t, publisher)
	r := rescorer.New(rescorer.Config{Interval: time.Hour, Catalog: svc, Publisher: publisher, Now: clock})

	summary, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Scored)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, map[string]int{"HIGH": 4, "MEDIUM": 1}, summary.ByLevel)

	past, err := repo.GetByID(context.Background(), "past-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, past.Status)

	select {
	case event := <-completed:
		assert.Equal(t, "Rescore complete: 5 scored, 0 failed", event.Message)
	case <-time.After(time.Second):
		t.Fatal("rescore_complete not published")
	}
}

func TestRescorer_AlertsOnLowOutlook(t *testing.T) {
	bus := events.NewEventBus(100)
	defer bus.Close()
	alerts := bus.Subscribe(models.EventTypeAlert)
	publisher := events.NewPublisher(bus)

	repo := catalog.NewMemoryRepository()
	low := &models.Event{
		ID:        "low-1",
		Slug:      "quiet-saturday",
		Title:     "Quiet Saturday",
		Category:  models.CategoryWorkshop,
		Status:    models.EventStatusPublished,
		StartDate: models.NewDate(2025, time.March, 8),
		Location:  models.Location{Type: models.LocationPhysical},
		Capacity:  100,
		IsFree:    true,
		Organizer: models.Organizer{ID: "org1"},
	}
	require.NoError(t, repo.Create(context.Background(), low))
	svc := catalog.NewService(repo, catalog.Config{Publisher: publisher, Now: clock})

	summary, err := rescorer.New(rescorer.Config{Catalog: svc, Publisher: publisher, Now: clock}).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scored)
	assert.Equal(t, 1, summary.ByLevel["LOW"])

	select {
	case event := <-alerts:
		assert.Equal(t, "low-1", event.EventID)
		assert.Equal(t, models.SeverityWarning, event.Severity)
	case <-time.After(time.Second):
		t.Fatal("alert not published")
	}
}

func TestRescorer_ScoresEachEventOncePerCycle(t *testing.T) {
	bus := events.NewEventBus(100)
	defer bus.Close()
	computed := bus.Subscribe(models.EventTypePredictionComputed)
	publisher := events.NewPublisher(bus)

	svc, _ := seededCatalog(t, publisher)
	r := rescorer.New(rescorer.Config{Interval: time.Hour, Catalog: svc, Publisher: publisher, Now: clock})

	summary, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	fresh := make(map[string]int)
	for len(computed) > 0 {
		event := <-computed
		update, ok := event.Data.(*models.PredictionUpdate)
		require.True(t, ok)
		if !update.Cached {
			fresh[event.EventID]++
		}
	}

	assert.Len(t, fresh, summary.Scored)
	for id, n := range fresh {
		assert.Equal(t, 1, n, "event %s", id)
	}
	assert.NotContains(t, fresh, "past-1")
}

type failingCatalog struct{}

func (failingCatalog) ListByStatus(context.Context, models.EventStatus) ([]*models.Event, error) {
	return nil, errors.New("database down")
}

func (failingCatalog) Refresh(context.Context, *models.Event) *models.Prediction { return nil }

func (failingCatalog) Complete(context.Context, string) (*models.Event, error) { return nil, nil }

func TestRescorer_ListFailure(t *testing.T) {
	r := rescorer.New(rescorer.Config{Catalog: failingCatalog{}, Now: clock})

	summary, err := r.RunOnce(context.Background())

	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestRescorer_StartRunsImmediately(t *testing.T) {
	bus := events.NewEventBus(100)
	defer bus.Close()
	completed := bus.Subscribe(models.EventTypeRescoreComplete)
	publisher := events.NewPublisher(bus)
	svc, _ := seededCatalog(t, publisher)

	r := rescorer.New(rescorer.Config{Interval: time.Hour, Catalog: svc, Publisher: publisher, Now: clock})
	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run")
	}

	r.Stop()
	r.Stop()
	assert.False(t, r.IsRunning())
}
