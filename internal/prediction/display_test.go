package prediction_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/predictify/internal/prediction"
	"github.com/OldStager01/predictify/pkg/models"
)

func TestCatalog_CoversEveryStableID(t *testing.T) {
	stable := []string{
		"high_engagement", "verified_organizer", "free_event", "trending_topic",
		"virtual_event", "good_location", "weekend_event", "early_registrations",
		"small_event", "good_organizer_history",
	}

	defs := prediction.Factors()
	require.Len(t, defs, len(stable))

	seen := make(map[string]bool)
	for _, d := range defs {
		assert.False(t, seen[d.ID], "duplicate catalog id %s", d.ID)
		seen[d.ID] = true
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Icon)
		assert.NotEmpty(t, d.Description)
	}
	for _, id := range stable {
		_, ok := prediction.LookupFactor(id)
		assert.True(t, ok, "missing %s", id)
	}

	_, ok := prediction.LookupFactor("good_weather")
	assert.False(t, ok)
}

func TestCatalog_ScoredFactorsUseCatalogTemplates(t *testing.T) {
	engine := newTestEngine()

	p := engine.Score(models.EventAttributes{
		InterestedCount: 35,
		Capacity:        40,
		IsTrending:      true,
		IsFree:          true,
		LocationType:    models.LocationPhysical,
		City:            strPtr("Cusco"),
		EventDate:       models.NewDate(2025, 5, 10),
		Organizer:       models.OrganizerAttributes{IsVerified: true, AverageAttendanceRate: floatPtr(0.8)},
	})
	require.Len(t, p.Factors, 9)

	for _, f := range p.Factors {
		def, ok := prediction.LookupFactor(f.ID)
		require.True(t, ok)
		assert.Equal(t, def.Name, f.Name)
		assert.Equal(t, def.Icon, f.Icon)
		assert.LessOrEqual(t, math.Abs(f.Weight), 0.15)
	}
}

func TestLevelColorAndLabel(t *testing.T) {
	assert.Equal(t, "#10B981", prediction.LevelColor(models.LevelHigh))
	assert.Equal(t, "#F59E0B", prediction.LevelColor(models.LevelMedium))
	assert.Equal(t, "#EF4444", prediction.LevelColor(models.LevelLow))
	assert.Equal(t, "High probability", prediction.LevelLabel(models.LevelHigh))
	assert.Equal(t, "Low probability", prediction.LevelLabel(models.LevelLow))
}

func TestNewMeter(t *testing.T) {
	tests := []struct {
		probability int
		level       models.PredictionLevel
		color       string
	}{
		{39, models.LevelLow, "#EF4444"},
		{40, models.LevelMedium, "#F59E0B"},
		{69, models.LevelMedium, "#F59E0B"},
		{70, models.LevelHigh, "#10B981"},
	}

	for _, tt := range tests {
		m := prediction.NewMeter(tt.probability)
		assert.Equal(t, tt.level, m.Level)
		assert.Equal(t, tt.color, m.Color)
	}

	half := prediction.NewMeter(50)
	assert.InDelta(t, 282.743, half.Circumference, 0.001)
	assert.InDelta(t, half.Circumference/2, half.DashOffset, 1e-9)

	full := prediction.NewMeter(150)
	assert.Equal(t, 100, full.Probability)
	assert.InDelta(t, 0, full.DashOffset, 1e-9)
}

func TestNewFactorList(t *testing.T) {
	factors := []models.Factor{
		{ID: "high_engagement", Type: models.FactorPositive, Impact: models.ImpactHigh, Weight: 0.15},
		{ID: "trending_topic", Type: models.FactorPositive, Impact: models.ImpactHigh, Weight: 0.12},
		{ID: "free_event", Type: models.FactorNegative, Impact: models.ImpactMedium, Weight: -0.10},
		{ID: "early_registrations", Type: models.FactorPositive, Impact: models.ImpactMedium, Weight: 0.07},
		{ID: "weekend_event", Type: models.FactorNegative, Impact: models.ImpactLow, Weight: -0.05},
		{ID: "small_event", Type: models.FactorPositive, Impact: models.ImpactLow, Weight: 0.05},
	}

	list := prediction.NewFactorList(factors, 0)

	require.Len(t, list.Displayed, prediction.DefaultMaxFactors)
	assert.Len(t, list.Positive, 3)
	assert.Len(t, list.Negative, 2)
	assert.Equal(t, "Medium", list.Negative[0].ImpactLabel)
	assert.Equal(t, 10.0, list.Negative[0].WeightPercentage)
	assert.Equal(t, 7.0, list.Positive[2].WeightPercentage)

	short := prediction.NewFactorList(factors, 2)
	assert.Len(t, short.Displayed, 2)
	assert.Empty(t, short.Negative)
}

func TestImpactLabel_Unknown(t *testing.T) {
	assert.Equal(t, "EXTREME", prediction.ImpactLabel("EXTREME"))
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name       string
		prediction *models.Prediction
		expected   string
	}{
		{
			name: "high",
			prediction: &models.Prediction{
				Probability:        92,
				Level:              models.LevelHigh,
				EstimatedAttendees: models.AttendeeEstimate{Min: 67, Max: 81, Expected: 74},
			},
			expected: "Excellent outlook: 74 attendees expected (92% probability)",
		},
		{
			name: "medium",
			prediction: &models.Prediction{
				Probability:        55,
				Level:              models.LevelMedium,
				EstimatedAttendees: models.AttendeeEstimate{Min: 20, Max: 26, Expected: 23},
			},
			expected: "Moderate outlook: between 20 and 26 attendees estimated",
		},
		{
			name:       "low",
			prediction: &models.Prediction{Probability: 20, Level: models.LevelLow},
			expected:   "Low outlook: review the negative factors to improve attendance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, prediction.Summary(tt.prediction))
		})
	}
}

func TestNewDisplay(t *testing.T) {
	p := newTestEngine().Score(models.EventAttributes{
		InterestedCount: 80,
		Capacity:        100,
		IsTrending:      true,
		LocationType:    models.LocationVirtual,
		EventDate:       nextWeekday,
		Organizer:       models.OrganizerAttributes{IsVerified: true},
	})

	d := prediction.NewDisplay(p, 3)

	assert.Equal(t, 92, d.Meter.Probability)
	assert.Len(t, d.Factors.Displayed, 3)
	assert.Contains(t, d.Summary, "92% probability")
}
