package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidEventAttributes = errors.New("invalid event attributes")

type LocationType string

const (
	LocationPhysical LocationType = "PHYSICAL"
	LocationVirtual  LocationType = "VIRTUAL"
	LocationHybrid   LocationType = "HYBRID"
)

func (l LocationType) IsValid() bool {
	switch l {
	case LocationPhysical, LocationVirtual, LocationHybrid:
		return true
	}
	return false
}

type OrganizerAttributes struct {
	IsVerified            bool     `json:"isVerified" yaml:"isVerified"`
	AverageAttendanceRate *float64 `json:"averageAttendanceRate,omitempty" yaml:"averageAttendanceRate,omitempty"`
}

// EventAttributes is the scoring input. It is read-only once built.
type EventAttributes struct {
	EventID         string              `json:"eventId,omitempty" yaml:"eventId,omitempty"`
	InterestedCount int                 `json:"interestedCount" yaml:"interestedCount"`
	Capacity        int                 `json:"capacity" yaml:"capacity"`
	IsFree          bool                `json:"isFree" yaml:"isFree"`
	IsTrending      bool                `json:"isTrending" yaml:"isTrending"`
	LocationType    LocationType        `json:"locationType" yaml:"locationType"`
	City            *string             `json:"city,omitempty" yaml:"city,omitempty"`
	EventDate       Date                `json:"eventDate" yaml:"eventDate"`
	Organizer       OrganizerAttributes `json:"organizer" yaml:"organizer"`
}

func (a EventAttributes) HasCity() bool {
	return a.City != nil && strings.TrimSpace(*a.City) != ""
}

// EngagementRatio is interested users over capacity, 0 when capacity is 0.
func (a EventAttributes) EngagementRatio() float64 {
	if a.Capacity <= 0 {
		return 0
	}
	return float64(a.InterestedCount) / float64(a.Capacity)
}

type EventCategory string

const (
	CategoryConference EventCategory = "CONFERENCE"
	CategoryHackathon  EventCategory = "HACKATHON"
	CategoryWorkshop   EventCategory = "WORKSHOP"
	CategoryMeetup     EventCategory = "MEETUP"
	CategoryNetworking EventCategory = "NETWORKING"
	CategoryBootcamp   EventCategory = "BOOTCAMP"
	CategoryWebinar    EventCategory = "WEBINAR"
)

func (c EventCategory) IsValid() bool {
	switch c {
	case CategoryConference, CategoryHackathon, CategoryWorkshop, CategoryMeetup,
		CategoryNetworking, CategoryBootcamp, CategoryWebinar:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

type EventSize string

const (
	SizeSmall  EventSize = "small"
	SizeMedium EventSize = "medium"
	SizeLarge  EventSize = "large"
)

// SizeForCapacity buckets an event: small under 50, medium under 200.
func SizeForCapacity(capacity int) EventSize {
	switch {
	case capacity < 50:
		return SizeSmall
	case capacity < 200:
		return SizeMedium
	default:
		return SizeLarge
	}
}

type Location struct {
	Type        LocationType `json:"type"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city,omitempty"`
	Country     string       `json:"country,omitempty"`
	Venue       string       `json:"venue,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	VirtualLink string       `json:"virtualLink,omitempty"`
}

type Organizer struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"displayName"`
	IsVerified            bool     `json:"isVerified"`
	EventsCount           int      `json:"eventsCount"`
	AverageAttendanceRate *float64 `json:"averageAttendanceRate,omitempty"`
}

// Event is a catalog entry
type Event struct {
	ID               string        `json:"id"`
	Slug             string        `json:"slug"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"shortDescription,omitempty"`
	Category         EventCategory `json:"category"`
	Status           EventStatus   `json:"status"`
	StartDate        Date          `json:"startDate"`
	Location         Location      `json:"location"`
	Capacity         int           `json:"capacity"`
	InterestedCount  int           `json:"interestedCount"`
	RegisteredCount  int           `json:"registeredCount"`
	Price            float64       `json:"price,omitempty"`
	Currency         string        `json:"currency,omitempty"`
	IsFree           bool          `json:"isFree"`
	IsFeatured       bool          `json:"isFeatured"`
	IsTrending       bool          `json:"isTrending"`
	Tags             []string      `json:"tags,omitempty"`
	Organizer        Organizer     `json:"organizer"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Prediction       *Prediction   `json:"prediction,omitempty"`
}

func NewEvent(title string, category EventCategory, organizer Organizer) *Event {
	now := time.Now()
	return &Event{
		ID:        NewUUID(),
		Slug:      Slugify(title),
		Title:     title,
		Category:  category,
		Status:    EventStatusDraft,
		Organizer: organizer,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Attributes projects the event onto the scorer input.
func (e *Event) Attributes() EventAttributes {
	attrs := EventAttributes{
		EventID:         e.ID,
		InterestedCount: e.InterestedCount,
		Capacity:        e.Capacity,
		IsFree:          e.IsFree,
		IsTrending:      e.IsTrending,
		LocationType:    e.Location.Type,
		EventDate:       e.StartDate,
		Organizer: OrganizerAttributes{
			IsVerified:            e.Organizer.IsVerified,
			AverageAttendanceRate: e.Organizer.AverageAttendanceRate,
		},
	}
	if e.Location.City != "" {
		city := e.Location.City
		attrs.City = &city
	}
	return attrs
}

func (e *Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

func (e *Event) Size() EventSize {
	return SizeForCapacity(e.Capacity)
}

// Clone returns a copy that shares no slices or pointers with e.
func (e *Event) Clone() *Event {
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.Organizer.AverageAttendanceRate != nil {
		rate := *e.Organizer.AverageAttendanceRate
		c.Organizer.AverageAttendanceRate = &rate
	}
	if e.Location.Latitude != nil {
		lat := *e.Location.Latitude
		c.Location.Latitude = &lat
	}
	if e.Location.Longitude != nil {
		lng := *e.Location.Longitude
		c.Location.Longitude = &lng
	}
	c.Prediction = nil
	return &c
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(title string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
