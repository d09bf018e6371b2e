package events

import (
	"sync"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/internal/metrics"
	"github.com/OldStager01/predictify/pkg/models"
)

// EventBus fans bus events out to buffered subscriber channels. Publish never
// blocks; a full subscriber loses the event.
type EventBus struct {
	subscribers map[models.EventType][]chan *models.BusEvent
	allChans    []chan *models.BusEvent
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.EventType][]chan *models.BusEvent),
		bufferSize:  bufferSize,
	}
}

func (b *EventBus) Subscribe(eventTypes ...models.EventType) <-chan *models.BusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.BusEvent, b.bufferSize)
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	b.allChans = append(b.allChans, ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.BusEvent {
	return b.Subscribe(AllEventTypes()...)
}

func (b *EventBus) Publish(event *models.BusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	metrics.Get().IncBusEvent(string(event.Type))
	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			metrics.Get().IncBusDropped()
			logger.Warnf("Event channel full, dropping event: %s", event.Type)
		}
	}
}

// Close closes every subscriber channel exactly once.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.allChans {
		close(ch)
	}

	b.subscribers = make(map[models.EventType][]chan *models.BusEvent)
	b.allChans = nil
}

func AllEventTypes() []models.EventType {
	return []models.EventType{
		models.EventTypePredictionComputed,
		models.EventTypeEventCreated,
		models.EventTypeEventUpdated,
		models.EventTypeEventDeleted,
		models.EventTypeStatusChanged,
		models.EventTypeInterestRegistered,
		models.EventTypeRescoreComplete,
		models.EventTypeAlert,
		models.EventTypeError,
	}
}
