package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/predictify/pkg/models"
)

type MessageType string

const (
	MessageTypePrediction   MessageType = "prediction"
	MessageTypeInterest     MessageType = "interest"
	MessageTypeStatus       MessageType = "status"
	MessageTypeEventUpdated MessageType = "event_updated"
	MessageTypeEventDeleted MessageType = "event_deleted"
	MessageTypeRescore      MessageType = "rescore"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeError        MessageType = "error"
	MessageTypeSubscription MessageType = "subscription_update"
)

// OutgoingMessage is the frame format pushed to clients.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	EventID   string      `json:"event_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Action    string      `json:"action,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, eventID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		EventID:   eventID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewSubscriptionUpdate(action, eventID string) *OutgoingMessage {
	msg := NewMessage(MessageTypeSubscription, eventID, nil)
	msg.Action = action
	return msg
}

// FromBusEvent converts a bus event, returning nil for types clients do not
// receive.
func FromBusEvent(event *models.BusEvent) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		EventID:   event.EventID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypePredictionComputed:
		return MessageTypePrediction
	case models.EventTypeInterestRegistered:
		return MessageTypeInterest
	case models.EventTypeStatusChanged:
		return MessageTypeStatus
	case models.EventTypeEventUpdated:
		return MessageTypeEventUpdated
	case models.EventTypeEventDeleted:
		return MessageTypeEventDeleted
	case models.EventTypeRescoreComplete:
		return MessageTypeRescore
	case models.EventTypeAlert:
		return MessageTypeAlert
	case models.EventTypeError:
		return MessageTypeError
	}
	return ""
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}
