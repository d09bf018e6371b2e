package prediction

import (
	"fmt"
	"math"

	"github.com/OldStager01/predictify/pkg/models"
)

// Stable factor identifiers. UI lookups are keyed on these strings.
const (
	FactorHighEngagement       = "high_engagement"
	FactorVerifiedOrganizer    = "verified_organizer"
	FactorGoodOrganizerHistory = "good_organizer_history"
	FactorFreeEvent            = "free_event"
	FactorTrendingTopic        = "trending_topic"
	FactorVirtualEvent         = "virtual_event"
	FactorGoodLocation         = "good_location"
	FactorWeekendEvent         = "weekend_event"
	FactorEarlyRegistrations   = "early_registrations"
	FactorSmallEvent           = "small_event"
)

// signals are the derived inputs every rule sees.
type signals struct {
	attrs      models.EventAttributes
	engagement float64
	daysUntil  int
}

// outcome is what a triggered rule contributes. Points are weight x 100.
// Empty type or description fall back to the definition.
type outcome struct {
	points      int
	impact      models.FactorImpact
	factorType  models.FactorType
	description string
}

type rule func(s signals) (outcome, bool)

// Definition is one catalog row: the display template of a factor together
// with the rule that triggers it.
type Definition struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon"`
	Type        models.FactorType `json:"type"`
	Description string            `json:"description"`

	rule rule
}

func (d Definition) instantiate(o outcome) models.Factor {
	f := models.Factor{
		ID:          d.ID,
		Name:        d.Name,
		Icon:        d.Icon,
		Type:        d.Type,
		Impact:      o.impact,
		Weight:      float64(o.points) / 100,
		Description: d.Description,
	}
	if o.factorType != "" {
		f.Type = o.factorType
	}
	if o.description != "" {
		f.Description = o.description
	}
	return f
}

// catalog is evaluated in order; the order is also the tie-break order of
// the ranked factor list.
var catalog = []Definition{
	{
		ID:          FactorHighEngagement,
		Name:        "High engagement",
		Icon:        "fire",
		Type:        models.FactorPositive,
		Description: "High number of interested users relative to capacity",
		rule: func(s signals) (outcome, bool) {
			switch {
			case s.engagement > 0.7:
				return outcome{points: 15, impact: models.ImpactHigh}, true
			case s.engagement > 0.4:
				return outcome{points: 8, impact: models.ImpactMedium}, true
			}
			return outcome{}, false
		},
	},
	{
		ID:          FactorVerifiedOrganizer,
		Name:        "Verified organizer",
		Icon:        "safety-certificate",
		Type:        models.FactorPositive,
		Description: "Organizer with a proven track record",
		rule: func(s signals) (outcome, bool) {
			if !s.attrs.Organizer.IsVerified {
				return outcome{}, false
			}
			return outcome{points: 10, impact: models.ImpactHigh}, true
		},
	},
	{
		ID:          FactorGoodOrganizerHistory,
		Name:        "Good organizer history",
		Icon:        "check-circle",
		Type:        models.FactorPositive,
		Description: "Organizer events are usually well attended",
		rule: func(s signals) (outcome, bool) {
			rate := s.attrs.Organizer.AverageAttendanceRate
			if rate == nil || *rate <= 0.75 {
				return outcome{}, false
			}
			return outcome{
				points:      8,
				impact:      models.ImpactMedium,
				description: fmt.Sprintf("Average attendance rate: %d%%", int(math.Round(*rate*100))),
			}, true
		},
	},
	{
		ID:          FactorFreeEvent,
		Name:        "Free event",
		Icon:        "warning",
		Type:        models.FactorNegative,
		Description: "Free events have a higher no-show rate",
		rule: func(s signals) (outcome, bool) {
			if !s.attrs.IsFree {
				return outcome{}, false
			}
			return outcome{points: -10, impact: models.ImpactMedium}, true
		},
	},
	{
		ID:          FactorTrendingTopic,
		Name:        "Trending topic",
		Icon:        "rise",
		Type:        models.FactorPositive,
		Description: "The event topic is trending",
		rule: func(s signals) (outcome, bool) {
			if !s.attrs.IsTrending {
				return outcome{}, false
			}
			return outcome{points: 12, impact: models.ImpactHigh}, true
		},
	},
	{
		ID:          FactorVirtualEvent,
		Name:        "Virtual event",
		Icon:        "global",
		Type:        models.FactorPositive,
		Description: "Easier to attend because it is online",
		rule: func(s signals) (outcome, bool) {
			if s.attrs.LocationType != models.LocationVirtual {
				return outcome{}, false
			}
			return outcome{points: 5, impact: models.ImpactLow}, true
		},
	},
	{
		ID:          FactorGoodLocation,
		Name:        "Accessible location",
		Icon:        "environment",
		Type:        models.FactorPositive,
		Description: "Easy to reach venue",
		rule: func(s signals) (outcome, bool) {
			// HYBRID events with a city get the physical bonus too.
			if s.attrs.LocationType == models.LocationVirtual || !s.attrs.HasCity() {
				return outcome{}, false
			}
			return outcome{points: 3, impact: models.ImpactLow}, true
		},
	},
	{
		ID:          FactorWeekendEvent,
		Name:        "Weekend event",
		Icon:        "calendar",
		Type:        models.FactorNeutral,
		Description: "Weekend scheduling can raise or lower attendance",
		rule: func(s signals) (outcome, bool) {
			if !s.attrs.EventDate.IsWeekend() {
				return outcome{}, false
			}
			return outcome{
				points:      -5,
				impact:      models.ImpactLow,
				factorType:  models.FactorNegative,
				description: "Weekend events may see lower attendance",
			}, true
		},
	},
	{
		ID:          FactorEarlyRegistrations,
		Name:        "Early registrations",
		Icon:        "calendar",
		Type:        models.FactorPositive,
		Description: "Early sign-ups indicate strong interest",
		rule: func(s signals) (outcome, bool) {
			if s.daysUntil <= 30 || float64(s.attrs.InterestedCount) <= float64(s.attrs.Capacity)*0.3 {
				return outcome{}, false
			}
			return outcome{points: 7, impact: models.ImpactMedium}, true
		},
	},
	{
		ID:          FactorSmallEvent,
		Name:        "Small event",
		Icon:        "team",
		Type:        models.FactorPositive,
		Description: "Small events tend to have higher attendance rates",
		rule: func(s signals) (outcome, bool) {
			if s.attrs.Capacity >= 50 {
				return outcome{}, false
			}
			return outcome{points: 5, impact: models.ImpactLow}, true
		},
	},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, d := range catalog {
		idx[d.ID] = i
	}
	return idx
}()

// LookupFactor returns the catalog template for a factor id.
func LookupFactor(id string) (Definition, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Definition{}, false
	}
	return catalog[i], true
}

// Factors returns every catalog template in evaluation order.
func Factors() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}
