package prediction

import (
	"fmt"

	"github.com/OldStager01/predictify/pkg/models"
)

// Summary renders a one-line outlook for a prediction.
func Summary(p *models.Prediction) string {
	switch p.Level {
	case models.LevelHigh:
		return fmt.Sprintf("Excellent outlook: %d attendees expected (%d%% probability)",
			p.EstimatedAttendees.Expected, p.Probability)
	case models.LevelMedium:
		return fmt.Sprintf("Moderate outlook: between %d and %d attendees estimated",
			p.EstimatedAttendees.Min, p.EstimatedAttendees.Max)
	default:
		return "Low outlook: review the negative factors to improve attendance"
	}
}
