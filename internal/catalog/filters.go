package catalog

import (
	"strings"
	"time"

	"github.com/OldStager01/predictify/pkg/models"
)

type PriceType string

const (
	PriceAll  PriceType = "all"
	PriceFree PriceType = "free"
	PricePaid PriceType = "paid"
)

type DatePreset string

const (
	DateToday DatePreset = "today"
	DateWeek  DatePreset = "week"
	DateMonth DatePreset = "month"
)

// Filters narrows a listing. Zero values match everything; an empty Status
// matches published events only.
type Filters struct {
	Search         string
	Categories     []models.EventCategory
	PriceType      PriceType
	MaxPrice       *float64
	LocationType   models.LocationType
	City           string
	MinProbability *int
	MaxProbability *int
	Size           models.EventSize
	DatePreset     DatePreset
	From           *models.Date
	To             *models.Date
	Status         models.EventStatus
	OrganizerID    string
	Limit          int
	Offset         int
}

func (f Filters) needsPrediction() bool {
	return f.MinProbability != nil || f.MaxProbability != nil
}

// Match reports whether e passes every filter. Probability filters read
// e.Prediction and reject events without one.
func (f Filters) Match(e *models.Event, now time.Time) bool {
	status := f.Status
	if status == "" {
		status = models.EventStatusPublished
	}
	if e.Status != status {
		return false
	}

	if f.OrganizerID != "" && e.Organizer.ID != f.OrganizerID {
		return false
	}

	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if !strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.Location.City), search) {
			return false
		}
	}

	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}

	switch f.PriceType {
	case PriceFree:
		if !e.IsFree {
			return false
		}
	case PricePaid:
		if e.IsFree {
			return false
		}
	}
	if f.MaxPrice != nil && !e.IsFree && e.Price > *f.MaxPrice {
		return false
	}

	if f.LocationType != "" && e.Location.Type != f.LocationType {
		return false
	}
	if f.City != "" && !strings.EqualFold(e.Location.City, f.City) {
		return false
	}

	if f.needsPrediction() {
		if e.Prediction == nil {
			return false
		}
		if f.MinProbability != nil && e.Prediction.Probability < *f.MinProbability {
			return false
		}
		if f.MaxProbability != nil && e.Prediction.Probability > *f.MaxProbability {
			return false
		}
	}

	if f.Size != "" && e.Size() != f.Size {
		return false
	}

	return f.matchDate(e.StartDate, now)
}

func (f Filters) matchDate(date models.Date, now time.Time) bool {
	if date.IsZero() {
		return f.DatePreset == "" && f.From == nil && f.To == nil
	}

	today := models.DateOf(now.UTC())
	day := models.DateOf(date.UTC())

	switch f.DatePreset {
	case DateToday:
		if !day.Equal(today.Time) {
			return false
		}
	case DateWeek:
		if day.Before(today.Time) || !day.Before(today.AddDate(0, 0, 7)) {
			return false
		}
	case DateMonth:
		if day.Before(today.Time) || !day.Before(today.AddDate(0, 1, 0)) {
			return false
		}
	}

	if f.From != nil && day.Before(models.DateOf(f.From.UTC()).Time) {
		return false
	}
	if f.To != nil && day.After(models.DateOf(f.To.UTC()).Time) {
		return false
	}
	return true
}

func containsCategory(categories []models.EventCategory, c models.EventCategory) bool {
	for _, candidate := range categories {
		if candidate == c {
			return true
		}
	}
	return false
}

func paginate(events []*models.Event, limit, offset int) []*models.Event {
	if offset > 0 {
		if offset >= len(events) {
			return []*models.Event{}
		}
		events = events[offset:]
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}
