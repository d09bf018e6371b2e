package events

import (
	"context"
	"sync/atomic"

	"github.com/OldStager01/predictify/internal/logger"
	"github.com/OldStager01/predictify/pkg/models"
)

// HandleFunc processes one bus event. ctx is cancelled when the consumer stops.
type HandleFunc func(ctx context.Context, event *models.BusEvent)

// Consumer drains a subscription on its own goroutine until the channel
// closes or Stop is called.
type Consumer struct {
	name    string
	events  <-chan *models.BusEvent
	handle  HandleFunc
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

func NewConsumer(name string, events <-chan *models.BusEvent, handle HandleFunc) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		name:   name,
		events: events,
		handle: handle,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start is a no-op after the first call.
func (c *Consumer) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run()
}

// Stop cancels the handler context and waits for the loop to exit.
func (c *Consumer) Stop() {
	c.cancel()
	if c.started.Load() {
		<-c.done
	}
}

func (c *Consumer) run() {
	defer close(c.done)
	log := logger.WithComponent(c.name)
	for {
		select {
		case <-c.ctx.Done():
			return
		case event, ok := <-c.events:
			if !ok {
				log.Debug("subscription closed")
				return
			}
			c.handle(c.ctx, event)
		}
	}
}
