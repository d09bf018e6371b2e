package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/OldStager01/predictify/pkg/models"
)

// EventRepository is the storage port of the catalog. queries.EventRepository
// implements it over postgres and MemoryRepository in process.
type EventRepository interface {
	List(ctx context.Context) ([]*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	// Update stores the editable fields. Status and interest counters are
	// kept from the stored event.
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, from, to models.EventStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	AddInterest(ctx context.Context, eventID string, userID int) (int, error)
}

// MemoryRepository is an in-process EventRepository.
type MemoryRepository struct {
	mu        sync.RWMutex
	events    map[string]*models.Event
	slugs     map[string]string
	interests map[string]map[int]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events:    make(map[string]*models.Event),
		slugs:     make(map[string]string),
		interests: make(map[string]map[int]struct{}),
	}
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*models.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, e.Clone())
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate.Time) {
			return events[i].StartDate.Before(events[j].StartDate.Time)
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.events[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	r.mu.RLock()
	id, ok := r.slugs[slug]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrEventNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) Create(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.slugs[event.Slug]; taken {
		return models.ErrSlugTaken
	}
	r.events[event.ID] = event.Clone()
	r.slugs[event.Slug] = event.ID
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.events[event.ID]
	if !ok {
		return models.ErrEventNotFound
	}
	if owner, taken := r.slugs[event.Slug]; taken && owner != event.ID {
		return models.ErrSlugTaken
	}

	stored := event.Clone()
	stored.Status = current.Status
	stored.InterestedCount = current.InterestedCount
	stored.RegisteredCount = current.RegisteredCount

	delete(r.slugs, current.Slug)
	r.events[event.ID] = stored
	r.slugs[event.Slug] = event.ID
	return nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to models.EventStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	if e.Status != from {
		return models.ErrStatusConflict
	}
	e.Status = to
	e.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return models.ErrEventNotFound
	}
	delete(r.slugs, e.Slug)
	delete(r.events, id)
	delete(r.interests, id)
	return nil
}

func (r *MemoryRepository) AddInterest(_ context.Context, eventID string, userID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return 0, models.ErrEventNotFound
	}

	users := r.interests[eventID]
	if users == nil {
		users = make(map[int]struct{})
		r.interests[eventID] = users
	}
	if _, exists := users[userID]; exists {
		return 0, models.ErrAlreadyInterested
	}

	users[userID] = struct{}{}
	e.InterestedCount++
	return e.InterestedCount, nil
}
