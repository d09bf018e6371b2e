package models

import "time"

type EventType string

const (
	EventTypePredictionComputed EventType = "prediction_computed"
	EventTypeEventCreated       EventType = "event_created"
	EventTypeEventUpdated       EventType = "event_updated"
	EventTypeEventDeleted       EventType = "event_deleted"
	EventTypeStatusChanged      EventType = "status_changed"
	EventTypeInterestRegistered EventType = "interest_registered"
	EventTypeRescoreComplete    EventType = "rescore_complete"
	EventTypeAlert              EventType = "alert"
	EventTypeError              EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// BusEvent represents an internal system notification. EventID refers to the
// catalog event the notification is about.
type BusEvent struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	EventID   string        `json:"event_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewBusEvent(eventType EventType, eventID, message string) *BusEvent {
	return &BusEvent{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		EventID:   eventID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *BusEvent) WithSeverity(severity EventSeverity) *BusEvent {
	e.Severity = severity
	return e
}

func (e *BusEvent) WithData(data interface{}) *BusEvent {
	e.Data = data
	return e
}

func (e *BusEvent) WithTraceID(traceID string) *BusEvent {
	e.TraceID = traceID
	return e
}

// RescoreSummary describes one batch re-scoring pass
type RescoreSummary struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Scored    int            `json:"scored"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	ByLevel   map[string]int `json:"by_level"`
}

// PredictionUpdate is the payload of prediction_computed events.
type PredictionUpdate struct {
	EventID    string      `json:"eventId"`
	Prediction *Prediction `json:"prediction"`
	Cached     bool        `json:"cached"`
}

// InterestUpdate is the payload of interest_registered events.
type InterestUpdate struct {
	EventID         string `json:"eventId"`
	UserID          int    `json:"userId"`
	InterestedCount int    `json:"interestedCount"`
}

// StatusChange is the payload of status_changed events.
type StatusChange struct {
	EventID string      `json:"eventId"`
	From    EventStatus `json:"from"`
	To      EventStatus `json:"to"`
}
