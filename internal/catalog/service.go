package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OldStager01/predictify/internal/cache"
	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/internal/tracker"
	"github.com/OldStager01/predictify/pkg/models"
	"github.com/OldStager01/predictify/pkg/validation"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("not allowed to manage this event")
)

const maxSlugAttempts = 20

var transitions = map[models.EventStatus][]models.EventStatus{
	models.EventStatusDraft:     {models.EventStatusPublished, models.EventStatusCancelled},
	models.EventStatusPublished: {models.EventStatusCancelled, models.EventStatusCompleted},
}

// CanTransition reports whether an event may move from one status to another.
func CanTransition(from, to models.EventStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Actor is the authenticated user performing a write.
type Actor struct {
	UserID   int
	Username string
	Role     models.UserRole
}

// OrganizerID is the organizer id recorded on events the actor creates.
func (a Actor) OrganizerID() string {
	return strconv.Itoa(a.UserID)
}

func (a Actor) CanManage(e *models.Event) bool {
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleOrganizer:
		return e.Organizer.ID == a.OrganizerID()
	}
	return false
}

// Config wires the collaborators of a Service. Only Engine and Now get defaults.
type Config struct {
	Engine *prediction.Engine
	// Cache may be nil, in which case every read recomputes.
	Cache     cache.PredictionCache
	Publisher *events.Publisher
	Tracker   *tracker.InterestTracker
	Now       func() time.Time
}

// Service owns the event catalog and the predictions attached to it.
type Service struct {
	repo      EventRepository
	engine    *prediction.Engine
	cache     cache.PredictionCache
	publisher *events.Publisher
	tracker   *tracker.InterestTracker
	now       func() time.Time
}

// NewService returns a catalog service backed by repo.
func NewService(repo EventRepository, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Engine == nil {
		cfg.Engine = prediction.NewEngine(prediction.Config{Now: cfg.Now})
	}

	return &Service{
		repo:      repo,
		engine:    cfg.Engine,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
		tracker:   cfg.Tracker,
		now:       cfg.Now,
	}
}

// List returns the events matching f, each with its prediction attached.
func (s *Service) List(ctx context.Context, f Filters) ([]*models.Event, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	now := s.now()
	matched := make([]*models.Event, 0, len(all))
	for _, e := range all {
		e.Prediction = s.predictFor(ctx, e)
		if f.Match(e, now) {
			matched = append(matched, e)
		}
	}

	return paginate(matched, f.Limit, f.Offset), nil
}

// ListByStatus returns the stored events in one status without scoring them.
func (s *Service) ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	matched := make([]*models.Event, 0, len(all))
	for _, e := range all {
		if e.Status == status {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Prediction = s.predictFor(ctx, e)
	return e, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	e, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	e.Prediction = s.predictFor(ctx, e)
	return e, nil
}

func (s *Service) Featured(ctx context.Context, limit int) ([]*models.Event, error) {
	return s.selectPublished(ctx, limit, func(e *models.Event) bool { return e.IsFeatured })
}

// Trending returns trending events, most interest first.
func (s *Service) Trending(ctx context.Context, limit int) ([]*models.Event, error) {
	list, err := s.selectPublished(ctx, 0, func(e *models.Event) bool { return e.IsTrending })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].InterestedCount > list[j].InterestedCount
	})
	return paginate(list, limit, 0), nil
}

// Upcoming returns published events from today on, soonest first.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]*models.Event, error) {
	today := models.DateOf(s.now().UTC())
	list, err := s.selectPublished(ctx, 0, func(e *models.Event) bool {
		return !e.StartDate.IsZero() && !e.StartDate.Before(today.Time)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartDate.Before(list[j].StartDate.Time)
	})
	return paginate(list, limit, 0), nil
}

func (s *Service) Search(ctx context.Context, keyword string, limit int) ([]*models.Event, error) {
	if strings.TrimSpace(keyword) == "" {
		return []*models.Event{}, nil
	}
	return s.List(ctx, Filters{Search: keyword, Limit: limit})
}

// ByOrganizer lists every event of an organizer regardless of status.
func (s *Service) ByOrganizer(ctx context.Context, organizerID string) ([]*models.Event, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	owned := make([]*models.Event, 0)
	for _, e := range all {
		if e.Organizer.ID == organizerID {
			e.Prediction = s.predictFor(ctx, e)
			owned = append(owned, e)
		}
	}
	return owned, nil
}

func (s *Service) selectPublished(ctx context.Context, limit int, keep func(*models.Event) bool) ([]*models.Event, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	selected := make([]*models.Event, 0)
	for _, e := range all {
		if e.IsPublished() && keep(e) {
			e.Prediction = s.predictFor(ctx, e)
			selected = append(selected, e)
		}
	}
	return paginate(selected, limit, 0), nil
}

// Create stores a new draft owned by the actor. Non-admins cannot mark
// themselves verified or supply an attendance history.
func (s *Service) Create(ctx context.Context, actor Actor, input *models.Event) (*models.Event, error) {
	if actor.Role != models.RoleOrganizer && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	now := s.now()
	e := input.Clone()
	e.ID = models.NewUUID()
	e.Status = models.EventStatusDraft
	e.InterestedCount = 0
	e.RegisteredCount = 0
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Title = validation.SanitizeString(e.Title)
	if e.Slug == "" {
		e.Slug = models.Slugify(e.Title)
	}
	if e.IsFree {
		e.Price = 0
	}

	if actor.Role != models.RoleAdmin || e.Organizer.ID == "" {
		name := e.Organizer.Name
		if name == "" {
			name = actor.Username
		}
		e.Organizer = models.Organizer{ID: actor.OrganizerID(), Name: name}
	}

	if err := validation.ValidateEvent(e); err != nil {
		return nil, err
	}
	if err := s.createWithUniqueSlug(ctx, e); err != nil {
		return nil, err
	}

	if s.tracker != nil {
		s.tracker.Record(e.ID, e.InterestedCount, now)
	}
	s.publisher.EventCreated(e)
	logger.WithEvent(e.ID).Infof("Event created: %s", e.Slug)

	e.Prediction = s.predictFor(ctx, e)
	return e, nil
}

func (s *Service) createWithUniqueSlug(ctx context.Context, e *models.Event) error {
	base := e.Slug
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		err := s.repo.Create(ctx, e)
		if !errors.Is(err, models.ErrSlugTaken) {
			return err
		}
		e.Slug = fmt.Sprintf("%s-%d", base, attempt+1)
	}
	return models.ErrSlugTaken
}

// Update replaces the editable fields of an event and returns the stored
// result. Ownership is kept from the stored event; status and interest
// counters are never written here.
func (s *Service) Update(ctx context.Context, actor Actor, id string, input *models.Event) (*models.Event, error) {
	current, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	e := input.Clone()
	e.ID = current.ID
	e.Status = current.Status
	e.InterestedCount = current.InterestedCount
	e.RegisteredCount = current.RegisteredCount
	e.CreatedAt = current.CreatedAt
	e.UpdatedAt = s.now()
	e.Title = validation.SanitizeString(e.Title)
	if e.Slug == "" {
		e.Slug = current.Slug
	}
	if e.IsFree {
		e.Price = 0
	}
	if actor.Role != models.RoleAdmin {
		e.Organizer = current.Organizer
	}

	if err := validation.ValidateEvent(e); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.invalidate(ctx, e.ID)
	updated, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.EventUpdated(updated)

	updated.Prediction = s.predictFor(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.manageable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	if s.tracker != nil {
		s.tracker.Forget(id)
	}
	s.publisher.EventDeleted(id)
	logger.WithEvent(id).Info("Event deleted")
	return nil
}

func (s *Service) Publish(ctx context.Context, actor Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, models.EventStatusPublished)
}

func (s *Service) Cancel(ctx context.Context, actor Actor, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, models.EventStatusCancelled)
}

// Complete marks a published event as held. The rescorer uses it for events
// whose date has passed; the returned event carries no prediction.
func (s *Service) Complete(ctx context.Context, id string) (*models.Event, error) {
	return s.changeStatus(ctx, Actor{Role: models.RoleAdmin}, id, models.EventStatusCompleted)
}

func (s *Service) transition(ctx context.Context, actor Actor, id string, to models.EventStatus) (*models.Event, error) {
	e, err := s.changeStatus(ctx, actor, id, to)
	if err != nil {
		return nil, err
	}
	e.Prediction = s.predictFor(ctx, e)
	return e, nil
}

func (s *Service) changeStatus(ctx context.Context, actor Actor, id string, to models.EventStatus) (*models.Event, error) {
	e, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from := e.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	err = s.repo.UpdateStatus(ctx, id, from, to, s.now())
	if errors.Is(err, models.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	if err != nil {
		return nil, err
	}

	s.publisher.StatusChanged(id, from, to)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) manageable(ctx context.Context, actor Actor, id string) (*models.Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(e) {
		return nil, ErrForbidden
	}
	return e, nil
}

// RegisterInterest counts a user's interest once, records an interest
// snapshot and drops the cached prediction.
func (s *Service) RegisterInterest(ctx context.Context, actor Actor, id string) (int, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !e.IsPublished() {
		return 0, fmt.Errorf("%w: event is %s", ErrInvalidTransition, e.Status)
	}

	count, err := s.repo.AddInterest(ctx, id, actor.UserID)
	if err != nil {
		return 0, err
	}

	if s.tracker != nil {
		s.tracker.Record(id, count, s.now())
	}
	s.invalidate(ctx, id)
	s.publisher.InterestRegistered(id, actor.UserID, count)
	return count, nil
}

// Predict returns the prediction of one event, from cache when possible,
// and announces it on the bus.
func (s *Service) Predict(ctx context.Context, id string) (*models.Prediction, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p, ok := s.cached(ctx, id); ok {
		s.publisher.PredictionComputed(id, p, true)
		return p, nil
	}
	return s.Refresh(ctx, e), nil
}

// Refresh scores e, bypassing and then repopulating the cache.
func (s *Service) Refresh(ctx context.Context, e *models.Event) *models.Prediction {
	p := s.engine.Score(e.Attributes())

	if s.cache != nil {
		if err := s.cache.Set(ctx, e.ID, p); err != nil {
			logger.WithEvent(e.ID).Warnf("Failed to cache prediction: %v", err)
		}
	}

	metrics.Get().ObservePrediction(string(p.Level), p.Probability, factorIDs(p.Factors))
	s.publisher.PredictionComputed(e.ID, p, false)
	return p
}

// Score rates ad-hoc attributes that are not stored in the catalog.
func (s *Service) Score(attrs models.EventAttributes) (*models.Prediction, error) {
	p, err := s.engine.Predict(attrs)
	if err != nil {
		return nil, err
	}
	metrics.Get().ObservePrediction(string(p.Level), p.Probability, factorIDs(p.Factors))
	return p, nil
}

func (s *Service) predictFor(ctx context.Context, e *models.Event) *models.Prediction {
	if p, ok := s.cached(ctx, e.ID); ok {
		return p
	}
	return s.Refresh(ctx, e)
}

func (s *Service) cached(ctx context.Context, id string) (*models.Prediction, bool) {
	if s.cache == nil {
		return nil, false
	}
	p, err := s.cache.Get(ctx, id)
	if err != nil || p == nil {
		return nil, false
	}
	return p, true
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		logger.WithEvent(id).Warnf("Failed to invalidate cached prediction: %v", err)
	}
}

func factorIDs(factors []models.Factor) []string {
	ids := make([]string, len(factors))
	for i, f := range factors {
		ids[i] = f.ID
	}
	return ids
}
