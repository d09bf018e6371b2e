package prediction

import (
	"math"

	"github.com/OldStager01/predictify/pkg/models"
)

const (
	MeterRadius       = 45
	DefaultMaxFactors = 5
)

var levelColors = map[models.PredictionLevel]string{
	models.LevelHigh:   "#10B981",
	models.LevelMedium: "#F59E0B",
	models.LevelLow:    "#EF4444",
}

var levelLabels = map[models.PredictionLevel]string{
	models.LevelHigh:   "High probability",
	models.LevelMedium: "Medium probability",
	models.LevelLow:    "Low probability",
}

var impactLabels = map[models.FactorImpact]string{
	models.ImpactHigh:   "High",
	models.ImpactMedium: "Medium",
	models.ImpactLow:    "Low",
}

// LevelColor is the hex color of a level, empty for unknown levels.
func LevelColor(level models.PredictionLevel) string {
	return levelColors[level]
}

// LevelLabel is the human label of a level, e.g. "High probability".
func LevelLabel(level models.PredictionLevel) string {
	return levelLabels[level]
}

// ImpactLabel falls back to the raw impact for unknown values.
func ImpactLabel(impact models.FactorImpact) string {
	if label, ok := impactLabels[impact]; ok {
		return label
	}
	return string(impact)
}

// WeightPercentage is |weight| x 100, rounded to two decimals.
func WeightPercentage(weight float64) float64 {
	return math.Round(math.Abs(weight)*percentageScale*100) / 100
}

// Meter is the gauge view of a probability. The level is re-derived from the
// probability with the scorer thresholds.
type Meter struct {
	Probability   int                    `json:"probability"`
	Level         models.PredictionLevel `json:"level"`
	Color         string                 `json:"color"`
	Label         string                 `json:"label"`
	Circumference float64                `json:"circumference"`
	DashOffset    float64                `json:"dashOffset"`
}

// NewMeter lays out the circular meter for a probability clamped to [0, 100].
func NewMeter(probability int) Meter {
	probability = clampInt(probability, minScore, maxScore)
	level := models.ClassifyProbability(probability)
	circumference := 2 * math.Pi * MeterRadius

	return Meter{
		Probability:   probability,
		Level:         level,
		Color:         LevelColor(level),
		Label:         LevelLabel(level),
		Circumference: circumference,
		DashOffset:    circumference - float64(probability)/percentageScale*circumference,
	}
}

// FactorView is a factor with its display label and weight as a percentage.
type FactorView struct {
	models.Factor
	ImpactLabel      string  `json:"impactLabel"`
	WeightPercentage float64 `json:"weightPercentage"`
}

// FactorList holds the first N ranked factors, also split by sign.
// Neutral factors only appear in Displayed.
type FactorList struct {
	Displayed []FactorView `json:"displayed"`
	Positive  []FactorView `json:"positive"`
	Negative  []FactorView `json:"negative"`
}

// NewFactorList keeps the first maxFactors factors, DefaultMaxFactors when maxFactors <= 0.
func NewFactorList(factors []models.Factor, maxFactors int) FactorList {
	if maxFactors <= 0 {
		maxFactors = DefaultMaxFactors
	}
	if len(factors) > maxFactors {
		factors = factors[:maxFactors]
	}

	list := FactorList{
		Displayed: make([]FactorView, 0, len(factors)),
		Positive:  []FactorView{},
		Negative:  []FactorView{},
	}
	for _, f := range factors {
		view := FactorView{
			Factor:           f,
			ImpactLabel:      ImpactLabel(f.Impact),
			WeightPercentage: WeightPercentage(f.Weight),
		}
		list.Displayed = append(list.Displayed, view)
		switch {
		case f.IsPositive():
			list.Positive = append(list.Positive, view)
		case f.IsNegative():
			list.Negative = append(list.Negative, view)
		}
	}
	return list
}

// Display bundles everything a client needs to render a prediction.
type Display struct {
	Meter   Meter      `json:"meter"`
	Factors FactorList `json:"factors"`
	Summary string     `json:"summary"`
}

// NewDisplay bundles the meter, factor list and summary of p.
func NewDisplay(p *models.Prediction, maxFactors int) Display {
	return Display{
		Meter:   NewMeter(p.Probability),
		Factors: NewFactorList(p.Factors, maxFactors),
		Summary: Summary(p),
	}
}
