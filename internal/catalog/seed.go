package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

func rate(v float64) *float64 { return &v }

// SampleEvents returns a small published catalog with dates relative to now,
// used for demos and the in-memory backend.
func SampleEvents(now time.Time) []*models.Event {
	day := func(offset int) models.Date {
		return models.DateOf(now.UTC().AddDate(0, 0, offset))
	}

	samples := []*models.Event{
		{
			Title:            "Puerta Del Sol Hackathon",
			Description:      "48 hour web development competition with prizes.",
			ShortDescription: "48 hour web development competition",
			Category:         models.CategoryHackathon,
			StartDate:        day(40),
			Location:         models.Location{Type: models.LocationPhysical, City: "Madrid", Country: "Spain", Venue: "Innovation Center"},
			Capacity:         150,
			InterestedCount:  120,
			IsFree:           true,
			IsFeatured:       true,
			IsTrending:       true,
			Tags:             []string{"development", "competition"},
			Organizer:        models.Organizer{ID: "org1", Name: "TechMadrid", IsVerified: true, EventsCount: 15, AverageAttendanceRate: rate(0.82)},
		},
		{
			Title:            "TechCaribe Conference",
			Description:      "The largest tech conference in the Caribbean with international speakers.",
			ShortDescription: "Caribbean tech conference",
			Category:         models.CategoryConference,
			StartDate:        day(45),
			Location:         models.Location{Type: models.LocationPhysical, City: "Santo Domingo", Country: "Dominican Republic", Venue: "Convention Center"},
			Capacity:         500,
			InterestedCount:  420,
			Price:            49.99,
			Currency:         "USD",
			IsFeatured:       true,
			Tags:             []string{"conference", "networking"},
			Organizer:        models.Organizer{ID: "org2", Name: "Caribbean Tech", IsVerified: true, EventsCount: 8, AverageAttendanceRate: rate(0.78)},
		},
		{
			Title:            "Advanced React Workshop",
			Description:      "Advanced React patterns with hooks and state management.",
			ShortDescription: "Advanced React patterns",
			Category:         models.CategoryWorkshop,
			StartDate:        day(12),
			Location:         models.Location{Type: models.LocationPhysical, City: "Barcelona", Country: "Spain", Venue: "Tech Hub Barcelona"},
			Capacity:         45,
			InterestedCount:  38,
			Price:            29.99,
			Currency:         "EUR",
			Tags:             []string{"react", "frontend"},
			Organizer:        models.Organizer{ID: "org3", Name: "React Barcelona", IsVerified: true, EventsCount: 25, AverageAttendanceRate: rate(0.88)},
		},
		{
			Title:            "AI and Machine Learning Summit",
			Description:      "The latest trends in AI and machine learning with industry experts.",
			ShortDescription: "AI and ML summit",
			Category:         models.CategoryConference,
			StartDate:        day(60),
			Location:         models.Location{Type: models.LocationVirtual, VirtualLink: "https://meet.example.com/ai-summit"},
			Capacity:         1000,
			InterestedCount:  850,
			IsFree:           true,
			IsFeatured:       true,
			IsTrending:       true,
			Tags:             []string{"ai", "machine-learning"},
			Organizer:        models.Organizer{ID: "org4", Name: "AI Global", IsVerified: true, EventsCount: 12, AverageAttendanceRate: rate(0.75)},
		},
		{
			Title:            "Networking Tech Drinks",
			Description:      "Meet tech professionals in a relaxed setting.",
			ShortDescription: "Informal networking",
			Category:         models.CategoryNetworking,
			StartDate:        day(5),
			Location:         models.Location{Type: models.LocationHybrid, City: "Valencia", Country: "Spain", Venue: "Rooftop Bar"},
			Capacity:         80,
			InterestedCount:  20,
			IsFree:           true,
			Tags:             []string{"networking", "social"},
			Organizer:        models.Organizer{ID: "org5", Name: "Valencia Tech Community", EventsCount: 5, AverageAttendanceRate: rate(0.65)},
		},
	}

	for _, e := range samples {
		e.ID = models.NewUUID()
		e.Slug = models.Slugify(e.Title)
		e.Status = models.EventStatusPublished
		e.CreatedAt = now
		e.UpdatedAt = now
	}
	return samples
}

// Seed stores events whose slug is not taken yet and returns how many were
// inserted.
func Seed(ctx context.Context, repo EventRepository, events []*models.Event) (int, error) {
	inserted := 0
	for _, e := range events {
		err := repo.Create(ctx, e)
		if errors.Is(err, models.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to seed %s: %w", e.Slug, err)
		}
		inserted++
	}

	logger.Infof("Seeded %d of %d sample events", inserted, len(events))
	return inserted, nil
}
