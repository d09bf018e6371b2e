package prediction

import (
	"math/rand"
	"sync"

	"github.com/OldStager01/predictify/pkg/models"
)

// TrendEstimator supplies the presentation-only trendChange magnitude.
// Callers must not cache or branch on its value.
type TrendEstimator interface {
	TrendChange(attrs models.EventAttributes) float64
}

// TrendFunc adapts a plain function to TrendEstimator.
type TrendFunc func(attrs models.EventAttributes) float64

func (f TrendFunc) TrendChange(attrs models.EventAttributes) float64 {
	return f(attrs)
}

// NoTrend always reports no movement.
type NoTrend struct{}

func (NoTrend) TrendChange(models.EventAttributes) float64 {
	return 0
}

const seededTrendRange = 5.0

// SeededTrend draws trendChange uniformly from [-5, 5) out of an explicitly
// seeded source, so a given seed replays the same sequence.
type SeededTrend struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededTrend returns a SeededTrend drawing from seed.
func NewSeededTrend(seed int64) *SeededTrend {
	return &SeededTrend{rnd: rand.New(rand.NewSource(seed))}
}

func (t *SeededTrend) TrendChange(models.EventAttributes) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Float64()*2*seededTrendRange - seededTrendRange
}
