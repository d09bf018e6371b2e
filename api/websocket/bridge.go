package websocket

import (
	"context"
	"encoding/json"

	"github.com/OldStager01/predictify/internal/events"
	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

// EventBridge fans bus events out to websocket clients. Events tied to one
// catalog event reach only its subscribers; system-wide ones reach everyone.
type EventBridge struct {
	hub      *Hub
	consumer *events.Consumer
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.BusEvent) *EventBridge {
	b := &EventBridge{hub: hub}
	b.consumer = events.NewConsumer("ws-bridge", eventsChan, b.forward)
	return b
}

func (b *EventBridge) Start() {
	b.consumer.Start()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.consumer.Stop()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) forward(_ context.Context, event *models.BusEvent) {
	msg := FromBusEvent(event)
	if msg == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.WithEvent(event.EventID).Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	if event.EventID == "" {
		b.hub.Broadcast(data)
		return
	}
	b.hub.BroadcastToEvent(event.EventID, data)
}
