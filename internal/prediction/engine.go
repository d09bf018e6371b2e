package prediction

import (
	"math"
	"sort"
	"time"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
	"github.com/OldStager01/predictify/pkg/validation"
)

const (
	baseScore       = 50
	baseConfidence  = 70
	maxConfidence   = 95
	confidenceStep  = 3
	maxFactorBonus  = 25
	estimateSpread  = 0.1
	trendUpRatio    = 0.6
	trendDownRatio  = 0.3
	hoursPerDay     = 24
	minScore        = 0
	maxScore        = 100
	percentageScale = 100
)

// Config configures an Engine. The zero value is usable.
type Config struct {
	// Now is the clock used for days-until-event. Defaults to time.Now.
	Now func() time.Time
	// Trend supplies trendChange. Defaults to NoTrend.
	Trend TrendEstimator
}

// Engine scores event attributes. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	now   func() time.Time
	trend TrendEstimator
}

// NewEngine returns an engine with defaults filled in for unset fields.
func NewEngine(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Trend == nil {
		cfg.Trend = NoTrend{}
	}

	return &Engine{
		now:   cfg.Now,
		trend: cfg.Trend,
	}
}

// Predict validates attrs and scores them. Out-of-domain input yields an
// error wrapping models.ErrInvalidEventAttributes.
func (e *Engine) Predict(attrs models.EventAttributes) (*models.Prediction, error) {
	if err := validation.ValidateEventAttributes(attrs); err != nil {
		return nil, err
	}
	return e.Score(attrs), nil
}

// Score never fails. Zero capacity makes every capacity ratio 0.
func (e *Engine) Score(attrs models.EventAttributes) *models.Prediction {
	now := e.now()
	s := signals{
		attrs:      attrs,
		engagement: attrs.EngagementRatio(),
		daysUntil:  daysUntil(attrs.EventDate, now),
	}

	score := baseScore
	factors := make([]models.Factor, 0, len(catalog))
	for _, def := range catalog {
		o, ok := def.rule(s)
		if !ok {
			continue
		}
		score += o.points
		factors = append(factors, def.instantiate(o))
	}

	probability := clampInt(score, minScore, maxScore)

	sort.SliceStable(factors, func(i, j int) bool {
		return math.Abs(factors[i].Weight) > math.Abs(factors[j].Weight)
	})

	p := &models.Prediction{
		Probability:        probability,
		Level:              models.ClassifyProbability(probability),
		EstimatedAttendees: estimateAttendees(attrs.InterestedCount, attrs.Capacity, probability),
		Confidence:         confidenceFor(len(factors)),
		Factors:            factors,
		Trend:              trendFor(s.engagement),
		TrendChange:        e.trend.TrendChange(attrs),
		CalculatedAt:       now,
	}

	if attrs.EventID != "" {
		logger.WithEvent(attrs.EventID).Debugf(
			"Prediction: %d%% %s (factors: %d, confidence: %d)",
			p.Probability, p.Level, len(p.Factors), p.Confidence,
		)
	}

	return p
}

func daysUntil(date models.Date, now time.Time) int {
	return int(math.Floor(date.Sub(now).Hours() / hoursPerDay))
}

func estimateAttendees(interested, capacity, probability int) models.AttendeeEstimate {
	expected := int(math.Round(float64(interested) * float64(probability) / percentageScale))
	variance := int(math.Round(float64(expected) * estimateSpread))

	low := maxInt(0, expected-variance)
	high := maxInt(0, minInt(capacity, expected+variance))
	if low > high {
		low = high
	}

	return models.AttendeeEstimate{
		Min:      low,
		Max:      high,
		Expected: clampInt(expected, low, high),
	}
}

func confidenceFor(factorCount int) int {
	return minInt(maxConfidence, baseConfidence+minInt(maxFactorBonus, factorCount*confidenceStep))
}

func trendFor(engagement float64) models.PredictionTrend {
	switch {
	case engagement > trendUpRatio:
		return models.TrendUp
	case engagement < trendDownRatio:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

func clampInt(v, lo, hi int) int {
	return maxInt(lo, minInt(hi, v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
