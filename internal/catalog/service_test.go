package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/internal/cache"
	"github.com/OldStager01/predictify/internal/catalog"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/internal/tracker"
	"github.com/OldStager01/predictify/pkg/models"
	"github.com/OldStager01/predictify/pkg/validation"
)

var fixedNow = time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var (
	organizer = catalog.Actor{UserID: 7, Username: "gopher", Role: models.RoleOrganizer}
	rival     = catalog.Actor{UserID: 8, Username: "rival", Role: models.RoleOrganizer}
	attendee  = catalog.Actor{UserID: 9, Username: "fan", Role: models.RoleAttendee}
	admin     = catalog.Actor{UserID: 1, Username: "root", Role: models.RoleAdmin}
)

type fixture struct {
	svc     *catalog.Service
	repo    *catalog.MemoryRepository
	cache   *cache.MemoryCache
	bus     *events.EventBus
	tracker *tracker.InterestTracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := catalog.NewMemoryRepository()
	memCache := cache.NewMemoryCache(time.Minute).WithClock(clock)
	bus := events.NewEventBus(100)
	t.Cleanup(bus.Close)
	interest := tracker.New(tracker.Config{Now: clock})

	svc := catalog.NewService(repo, catalog.Config{
		Engine:    prediction.NewEngine(prediction.Config{Now: clock, Trend: interest}),
		Cache:     memCache,
		Publisher: events.NewPublisher(bus),
		Tracker:   interest,
		Now:       clock,
	})

	return &fixture{svc: svc, repo: repo, cache: memCache, bus: bus, tracker: interest}
}

func draftInput(title string) *models.Event {
	return &models.Event{
		Title:     title,
		Category:  models.CategoryMeetup,
		StartDate: models.NewDate(2025, time.March, 12),
		Location:  models.Location{Type: models.LocationPhysical, City: "Lima"},
		Capacity:  100,
		IsFree:    true,
	}
}

func nextEvent(t *testing.T, ch <-chan *models.BusEvent) *models.BusEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bus event")
		return nil
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.Create(ctx, organizer, draftInput("  Go Meetup Lima "))

	require.NoError(t, err)
	assert.Equal(t, "Go Meetup Lima", e.Title)
	assert.Equal(t, "go-meetup-lima", e.Slug)
	assert.Equal(t, models.EventStatusDraft, e.Status)
	assert.Equal(t, "7", e.Organizer.ID)
	assert.Equal(t, "gopher", e.Organizer.Name)
	require.NotNil(t, e.Prediction)
	assert.Equal(t, 43, e.Prediction.Probability)
	assert.Len(t, f.tracker.History(e.ID), 1)
}

func TestService_CreateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, attendee, draftInput("Nope"))
	assert.ErrorIs(t, err, catalog.ErrForbidden)

	invalid := draftInput("Broken")
	invalid.Capacity = 0
	_, err = f.svc.Create(ctx, organizer, invalid)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestService_CreateDropsSelfVerification(t *testing.T) {
	f := newFixture(t)
	input := draftInput("Verified Claim")
	input.Organizer = models.Organizer{ID: "org1", Name: "Fake", IsVerified: true}

	e, err := f.svc.Create(context.Background(), organizer, input)

	require.NoError(t, err)
	assert.Equal(t, "7", e.Organizer.ID)
	assert.Equal(t, "Fake", e.Organizer.Name)
	assert.False(t, e.Organizer.IsVerified)
}

func TestService_CreateMakesSlugUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, organizer, draftInput("Go Night"))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, organizer, draftInput("Go Night"))
	require.NoError(t, err)
	third, err := f.svc.Create(ctx, organizer, draftInput("Go Night"))
	require.NoError(t, err)

	assert.Equal(t, "go-night", first.Slug)
	assert.Equal(t, "go-night-2", second.Slug)
	assert.Equal(t, "go-night-3", third.Slug)
}

func TestService_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Lifecycle"))
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, rival, e.ID)
	assert.ErrorIs(t, err, catalog.ErrForbidden)

	published, err := f.svc.Publish(ctx, organizer, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusPublished, published.Status)

	_, err = f.svc.Publish(ctx, organizer, e.ID)
	assert.ErrorIs(t, err, catalog.ErrInvalidTransition)

	cancelled, err := f.svc.Cancel(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, cancelled.Status)

	_, err = f.svc.Publish(ctx, organizer, e.ID)
	assert.ErrorIs(t, err, catalog.ErrInvalidTransition)

	_, err = f.svc.Publish(ctx, organizer, "missing")
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.EventStatus
		want     bool
	}{
		{models.EventStatusDraft, models.EventStatusPublished, true},
		{models.EventStatusDraft, models.EventStatusCancelled, true},
		{models.EventStatusDraft, models.EventStatusCompleted, false},
		{models.EventStatusPublished, models.EventStatusCompleted, true},
		{models.EventStatusPublished, models.EventStatusPublished, false},
		{models.EventStatusCancelled, models.EventStatusPublished, false},
		{models.EventStatusCompleted, models.EventStatusPublished, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.CanTransition(tt.from, tt.to))
		})
	}
}

func TestService_RegisterInterest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Interest"))
	require.NoError(t, err)

	_, err = f.svc.RegisterInterest(ctx, attendee, e.ID)
	assert.ErrorIs(t, err, catalog.ErrInvalidTransition)

	_, err = f.svc.Publish(ctx, organizer, e.ID)
	require.NoError(t, err)

	count, err := f.svc.RegisterInterest(ctx, attendee, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.svc.RegisterInterest(ctx, attendee, e.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyInterested)

	_, err = f.cache.Get(ctx, e.ID)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	p, err := f.svc.Predict(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.TrendChange)
	assert.Len(t, f.tracker.History(e.ID), 2)
}

func TestService_PredictUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Cached"))
	require.NoError(t, err)

	ch := f.bus.Subscribe(models.EventTypePredictionComputed)

	p, err := f.svc.Predict(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, p.Probability)

	update, ok := nextEvent(t, ch).Data.(*models.PredictionUpdate)
	require.True(t, ok)
	assert.True(t, update.Cached)

	require.NoError(t, f.cache.Delete(ctx, e.ID))
	_, err = f.svc.Predict(ctx, e.ID)
	require.NoError(t, err)

	update, ok = nextEvent(t, ch).Data.(*models.PredictionUpdate)
	require.True(t, ok)
	assert.False(t, update.Cached)

	_, err = f.svc.Predict(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestService_UpdateKeepsOwnershipAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Before"))
	require.NoError(t, err)

	changes := draftInput("After")
	changes.Capacity = 40
	changes.Organizer = models.Organizer{ID: "someone-else", IsVerified: true}

	updated, err := f.svc.Update(ctx, organizer, e.ID, changes)

	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, "before", updated.Slug)
	assert.Equal(t, "7", updated.Organizer.ID)
	assert.False(t, updated.Organizer.IsVerified)
	assert.Equal(t, models.EventStatusDraft, updated.Status)
	assert.True(t, updated.Prediction.HasFactor("small_event"))

	_, err = f.svc.Update(ctx, rival, e.ID, changes)
	assert.ErrorIs(t, err, catalog.ErrForbidden)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Doomed"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, rival, e.ID), catalog.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, organizer, e.ID))

	_, err = f.svc.Get(ctx, e.ID)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
	assert.Empty(t, f.tracker.History(e.ID))
	assert.Equal(t, 0, f.cache.Len())
}

func seeded(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	n, err := catalog.Seed(context.Background(), f.repo, catalog.SampleEvents(fixedNow))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	return f
}

func titles(events []*models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestService_ListFilters(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters catalog.Filters
		want    []string
	}{
		{
			name:    "free",
			filters: catalog.Filters{PriceType: catalog.PriceFree},
			want:    []string{"Networking Tech Drinks", "Puerta Del Sol Hackathon", "AI and Machine Learning Summit"},
		},
		{
			name:    "virtual",
			filters: catalog.Filters{LocationType: models.LocationVirtual},
			want:    []string{"AI and Machine Learning Summit"},
		},
		{
			name:    "small",
			filters: catalog.Filters{Size: models.SizeSmall},
			want:    []string{"Advanced React Workshop"},
		},
		{
			name:    "search by city",
			filters: catalog.Filters{Search: "BARCELONA"},
			want:    []string{"Advanced React Workshop"},
		},
		{
			name:    "conferences",
			filters: catalog.Filters{Categories: []models.EventCategory{models.CategoryConference}},
			want:    []string{"TechCaribe Conference", "AI and Machine Learning Summit"},
		},
		{
			name:    "this week",
			filters: catalog.Filters{DatePreset: catalog.DateWeek},
			want:    []string{"Networking Tech Drinks"},
		},
		{
			name:    "low probability",
			filters: catalog.Filters{MaxProbability: intPtr(50)},
			want:    []string{"Networking Tech Drinks"},
		},
		{
			name:    "high probability",
			filters: catalog.Filters{MinProbability: intPtr(90)},
			want:    []string{"Advanced React Workshop", "Puerta Del Sol Hackathon"},
		},
		{
			name:    "paginated",
			filters: catalog.Filters{Limit: 2, Offset: 1},
			want:    []string{"Advanced React Workshop", "Puerta Del Sol Hackathon"},
		},
		{
			name:    "drafts",
			filters: catalog.Filters{Status: models.EventStatusDraft},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
			for _, e := range got {
				assert.NotNil(t, e.Prediction)
			}
		})
	}
}

func TestService_Collections(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	upcoming, err := f.svc.Upcoming(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Networking Tech Drinks",
		"Advanced React Workshop",
		"Puerta Del Sol Hackathon",
		"TechCaribe Conference",
		"AI and Machine Learning Summit",
	}, titles(upcoming))

	trending, err := f.svc.Trending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI and Machine Learning Summit", "Puerta Del Sol Hackathon"}, titles(trending))

	featured, err := f.svc.Featured(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Puerta Del Sol Hackathon", "TechCaribe Conference"}, titles(featured))

	found, err := f.svc.Search(ctx, "react", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Advanced React Workshop"}, titles(found))

	empty, err := f.svc.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	owned, err := f.svc.ByOrganizer(ctx, "org3")
	require.NoError(t, err)
	assert.Equal(t, []string{"Advanced React Workshop"}, titles(owned))

	bySlug, err := f.svc.GetBySlug(ctx, "techcaribe-conference")
	require.NoError(t, err)
	assert.Equal(t, 88, bySlug.Prediction.Probability)
}

func TestService_Score(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Score(models.EventAttributes{Capacity: -1, LocationType: models.LocationPhysical, EventDate: models.NewDate(2025, time.March, 12)})
	assert.ErrorIs(t, err, models.ErrInvalidEventAttributes)

	p, err := f.svc.Score(models.EventAttributes{
		InterestedCount: 10,
		Capacity:        100,
		LocationType:    models.LocationVirtual,
		EventDate:       models.NewDate(2025, time.March, 12),
	})
	require.NoError(t, err)
	assert.Equal(t, 55, p.Probability)
}

func TestService_Complete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, organizer, draftInput("Held"))
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, e.ID)
	assert.ErrorIs(t, err, catalog.ErrInvalidTransition)

	_, err = f.svc.Publish(ctx, organizer, e.ID)
	require.NoError(t, err)
	done, err := f.svc.Complete(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, done.Status)
}

// racingRepository runs interleave once, right after the next read, to
// stand in for a request that lands between a read and a write.
type racingRepository struct {
	*catalog.MemoryRepository
	interleave func()
}

func (r *racingRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	e, err := r.MemoryRepository.GetByID(ctx, id)
	if fn := r.interleave; fn != nil {
		r.interleave = nil
		fn()
	}
	return e, err
}

func racingService(t *testing.T) (*catalog.Service, *racingRepository, *models.Event) {
	t.Helper()
	repo := &racingRepository{MemoryRepository: catalog.NewMemoryRepository()}
	svc := catalog.NewService(repo, catalog.Config{Now: clock})
	ctx := context.Background()

	e, err := svc.Create(ctx, organizer, draftInput("Contended"))
	require.NoError(t, err)
	_, err = svc.Publish(ctx, organizer, e.ID)
	require.NoError(t, err)
	_, err = svc.RegisterInterest(ctx, attendee, e.ID)
	require.NoError(t, err)
	return svc, repo, e
}

func TestService_WritesKeepConcurrentInterest(t *testing.T) {
	tests := []struct {
		name  string
		write func(svc *catalog.Service, id string) (*models.Event, error)
	}{
		{"update", func(svc *catalog.Service, id string) (*models.Event, error) {
			changes := draftInput("Contended Again")
			changes.Capacity = 60
			return svc.Update(context.Background(), organizer, id, changes)
		}},
		{"cancel", func(svc *catalog.Service, id string) (*models.Event, error) {
			return svc.Cancel(context.Background(), organizer, id)
		}},
		{"complete", func(svc *catalog.Service, id string) (*models.Event, error) {
			return svc.Complete(context.Background(), id)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, e := racingService(t)
			ctx := context.Background()
			repo.interleave = func() {
				_, err := repo.AddInterest(ctx, e.ID, 42)
				require.NoError(t, err)
			}

			written, err := tt.write(svc, e.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, written.InterestedCount)

			stored, err := repo.GetByID(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, stored.InterestedCount)
		})
	}
}

func TestService_UpdateKeepsConcurrentStatusChange(t *testing.T) {
	svc, repo, e := racingService(t)
	ctx := context.Background()
	repo.interleave = func() {
		require.NoError(t, repo.UpdateStatus(ctx, e.ID, models.EventStatusPublished, models.EventStatusCancelled, fixedNow))
	}

	updated, err := svc.Update(ctx, organizer, e.ID, draftInput("Renamed"))

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.EventStatusCancelled, updated.Status)
}

func TestService_TransitionLosesRace(t *testing.T) {
	svc, repo, e := racingService(t)
	ctx := context.Background()
	repo.interleave = func() {
		require.NoError(t, repo.UpdateStatus(ctx, e.ID, models.EventStatusPublished, models.EventStatusCancelled, fixedNow))
	}

	_, err := svc.Complete(ctx, e.ID)

	assert.ErrorIs(t, err, catalog.ErrInvalidTransition)
	assert.ErrorIs(t, err, models.ErrStatusConflict)
	stored, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, stored.Status)
}

func TestService_ListByStatusSkipsScoring(t *testing.T) {
	f := seeded(t)
	ch := f.bus.Subscribe(models.EventTypePredictionComputed)

	published, err := f.svc.ListByStatus(context.Background(), models.EventStatusPublished)

	require.NoError(t, err)
	assert.Len(t, published, 5)
	for _, e := range published {
		assert.Nil(t, e.Prediction)
	}
	assert.Len(t, ch, 0)
	assert.Equal(t, 0, f.cache.Len())
}

type unreachableDeletes struct {
	*cache.MemoryCache
}

func (unreachableDeletes) Delete(context.Context, string) error {
	return errors.New("connection reset")
}

func TestService_InterestNotHiddenByFailedInvalidation(t *testing.T) {
	backend := unreachableDeletes{MemoryCache: cache.NewMemoryCache(time.Hour).WithClock(clock)}
	svc := catalog.NewService(catalog.NewMemoryRepository(), catalog.Config{
		Cache: cache.NewResilientCache(cache.ResilientCacheConfig{Backend: backend, MaxFailures: 10}),
		Now:   clock,
	})
	ctx := context.Background()

	input := draftInput("Sticky")
	input.Capacity = 2
	e, err := svc.Create(ctx, organizer, input)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, organizer, e.ID)
	require.NoError(t, err)

	before, err := svc.Predict(ctx, e.ID)
	require.NoError(t, err)
	_, err = svc.RegisterInterest(ctx, attendee, e.ID)
	require.NoError(t, err)

	after, err := svc.Predict(ctx, e.ID)
	require.NoError(t, err)
	assert.Greater(t, after.Probability, before.Probability)
}
