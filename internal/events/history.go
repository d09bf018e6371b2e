package events

import (
	"context"
	"sync"

	"github.com/OldStager01/predictify/pkg/models"
)

const defaultHistoryLimit = 20

// MemoryHistory keeps the most recent prediction records of each event in
// memory. It backs the history endpoint when no database is configured.
type MemoryHistory struct {
	mu       sync.RWMutex
	records  map[string][]*models.PredictionRecord
	maxPerID int
	nextID   int
}

func NewMemoryHistory(maxPerEvent int) *MemoryHistory {
	if maxPerEvent <= 0 {
		maxPerEvent = 100
	}
	return &MemoryHistory{
		records:  make(map[string][]*models.PredictionRecord),
		maxPerID: maxPerEvent,
	}
}

func (h *MemoryHistory) SavePrediction(_ context.Context, record *models.PredictionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	stored := *record
	stored.ID = h.nextID
	record.ID = stored.ID

	list := append(h.records[record.EventID], &stored)
	if len(list) > h.maxPerID {
		list = list[len(list)-h.maxPerID:]
	}
	h.records[record.EventID] = list
	return nil
}

// History returns the newest records first, at most limit of them.
func (h *MemoryHistory) History(_ context.Context, eventID string, limit int) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.records[eventID]
	out := make([]*models.PredictionRecord, 0, minInt(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		record := *list[i]
		out = append(out, &record)
	}
	return out, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
