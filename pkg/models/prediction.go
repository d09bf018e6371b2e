package models

import "time"

type PredictionLevel string

const (
	LevelHigh   PredictionLevel = "HIGH"
	LevelMedium PredictionLevel = "MEDIUM"
	LevelLow    PredictionLevel = "LOW"
)

// Level thresholds shared by the scorer and every consumer that re-derives
// a level from a probability.
const (
	HighLevelThreshold   = 70
	MediumLevelThreshold = 40
)

// ClassifyProbability maps a 0-100 probability onto a level.
func ClassifyProbability(probability int) PredictionLevel {
	switch {
	case probability >= HighLevelThreshold:
		return LevelHigh
	case probability >= MediumLevelThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

type PredictionTrend string

const (
	TrendUp     PredictionTrend = "UP"
	TrendDown   PredictionTrend = "DOWN"
	TrendStable PredictionTrend = "STABLE"
)

type FactorType string

const (
	FactorPositive FactorType = "POSITIVE"
	FactorNegative FactorType = "NEGATIVE"
	FactorNeutral  FactorType = "NEUTRAL"
)

type FactorImpact string

const (
	ImpactHigh   FactorImpact = "HIGH"
	ImpactMedium FactorImpact = "MEDIUM"
	ImpactLow    FactorImpact = "LOW"
)

// Factor is a named, signed contribution to a prediction score
type Factor struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon,omitempty"`
	Type        FactorType   `json:"type"`
	Impact      FactorImpact `json:"impact"`
	Weight      float64      `json:"weight"`
	Description string       `json:"description"`
}

func (f Factor) IsPositive() bool {
	return f.Type == FactorPositive
}

func (f Factor) IsNegative() bool {
	return f.Type == FactorNegative
}

type AttendeeEstimate struct {
	Min      int `json:"min"`
	Max      int `json:"max"`
	Expected int `json:"expected"`
}

// Prediction is the scorer output. A new value is produced on every call.
type Prediction struct {
	Probability        int              `json:"probability"`
	Level              PredictionLevel  `json:"level"`
	EstimatedAttendees AttendeeEstimate `json:"estimatedAttendees"`
	Confidence         int              `json:"confidence"`
	Factors            []Factor         `json:"factors"`
	Trend              PredictionTrend  `json:"trend"`
	TrendChange        float64          `json:"trendChange"`
	CalculatedAt       time.Time        `json:"calculatedAt"`
}

func (p *Prediction) HasFactor(id string) bool {
	for _, f := range p.Factors {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (p *Prediction) IsHighConfidence(threshold int) bool {
	return p.Confidence >= threshold
}

// PredictionRecord is a persisted prediction snapshot for an event
type PredictionRecord struct {
	ID           int       `json:"id,omitempty"`
	EventID      string    `json:"eventId"`
	Probability  int       `json:"probability"`
	Level        string    `json:"level"`
	Confidence   int       `json:"confidence"`
	EstimatedMin int       `json:"estimatedMin"`
	EstimatedMax int       `json:"estimatedMax"`
	Expected     int       `json:"estimatedExpected"`
	Trend        string    `json:"trend"`
	TrendChange  float64   `json:"trendChange"`
	Factors      []Factor  `json:"factors"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

func NewPredictionRecord(eventID string, p *Prediction) *PredictionRecord {
	return &PredictionRecord{
		EventID:      eventID,
		Probability:  p.Probability,
		Level:        string(p.Level),
		Confidence:   p.Confidence,
		EstimatedMin: p.EstimatedAttendees.Min,
		EstimatedMax: p.EstimatedAttendees.Max,
		Expected:     p.EstimatedAttendees.Expected,
		Trend:        string(p.Trend),
		TrendChange:  p.TrendChange,
		Factors:      p.Factors,
		CalculatedAt: p.CalculatedAt,
	}
}
