package events

import (
	"context"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

// PredictionStore persists prediction snapshots.
type PredictionStore interface {
	SavePrediction(ctx context.Context, record *models.PredictionRecord) error
}

// EventLogger writes every bus event to the structured log and persists
// freshly computed predictions. A nil store disables persistence.
type EventLogger struct {
	*Consumer
	store PredictionStore
}

func NewEventLogger(store PredictionStore, eventChan <-chan *models.BusEvent) *EventLogger {
	l := &EventLogger{store: store}
	l.Consumer = NewConsumer("event-logger", eventChan, l.processEvent)
	return l
}

func (l *EventLogger) processEvent(ctx context.Context, event *models.BusEvent) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"event_id":   event.EventID,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if event.Type == models.EventTypePredictionComputed {
		l.persistPrediction(ctx, event)
	}
}

func (l *EventLogger) persistPrediction(ctx context.Context, event *models.BusEvent) {
	if l.store == nil {
		return
	}
	update, ok := event.Data.(*models.PredictionUpdate)
	if !ok || update.Prediction == nil || update.Cached {
		return
	}

	record := models.NewPredictionRecord(update.EventID, update.Prediction)
	if err := l.store.SavePrediction(ctx, record); err != nil {
		logger.WithEvent(update.EventID).Errorf("Failed to persist prediction: %v", err)
	}
}
