package events

import (
	"fmt"

	"github.com/OldStager01/predictify/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.BusEvent) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) PredictionComputed(eventID string, prediction *models.Prediction, cached bool) {
	msg := fmt.Sprintf("Prediction computed: %d%% %s", prediction.Probability, prediction.Level)
	event := models.NewBusEvent(models.EventTypePredictionComputed, eventID, msg).
		WithData(&models.PredictionUpdate{EventID: eventID, Prediction: prediction, Cached: cached})

	if prediction.Level == models.LevelLow {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) EventCreated(e *models.Event) {
	p.publish(models.NewBusEvent(models.EventTypeEventCreated, e.ID, "Event created: "+e.Title).WithData(e))
}

func (p *Publisher) EventUpdated(e *models.Event) {
	p.publish(models.NewBusEvent(models.EventTypeEventUpdated, e.ID, "Event updated: "+e.Title).WithData(e))
}

func (p *Publisher) EventDeleted(eventID string) {
	p.publish(models.NewBusEvent(models.EventTypeEventDeleted, eventID, "Event deleted"))
}

func (p *Publisher) StatusChanged(eventID string, from, to models.EventStatus) {
	msg := fmt.Sprintf("Event status changed: %s -> %s", from, to)
	event := models.NewBusEvent(models.EventTypeStatusChanged, eventID, msg).
		WithData(&models.StatusChange{EventID: eventID, From: from, To: to})

	if to == models.EventStatusCancelled {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) InterestRegistered(eventID string, userID, interested int) {
	event := models.NewBusEvent(models.EventTypeInterestRegistered, eventID, "Interest registered").
		WithData(&models.InterestUpdate{EventID: eventID, UserID: userID, InterestedCount: interested})
	p.publish(event)
}

func (p *Publisher) RescoreComplete(summary *models.RescoreSummary) {
	msg := fmt.Sprintf("Rescore complete: %d scored, %d failed", summary.Scored, summary.Failed)
	event := models.NewBusEvent(models.EventTypeRescoreComplete, "", msg).WithData(summary)

	if summary.Failed > 0 {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) Alert(eventID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewBusEvent(models.EventTypeAlert, eventID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(eventID string, message string, err error) {
	event := models.NewBusEvent(models.EventTypeError, eventID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
