package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/nanoid"
	"github.com/axonbase/extcore/types"
)

// Handler receives one lifecycle event.
type Handler func(types.Event)

// Bus delivers lifecycle events to in-process subscribers. Delivery is
// synchronous and in subscription order on the publisher's goroutine, so a
// subscriber observes transitions in the order the coordinator committed
// them. Handlers are panic-isolated.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[types.EventKind][]Handler
	allHandlers []Handler

	metrics struct {
		published atomic.Int64
		delivered atomic.Int64
		failed    atomic.Int64
	}
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[types.EventKind][]Handler)}
}

// Subscribe adds a handler for one event kind.
func (b *Bus) Subscribe(kind types.EventKind, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], handler)
}

// SubscribeAll adds a handler receiving every event kind.
func (b *Bus) SubscribeAll(handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish delivers the event to every matching subscriber. The event is
// stamped with an id and timestamp when missing.
func (b *Bus) Publish(evt types.Event) {
	if evt.EventID == "" {
		evt.EventID = nanoid.Lower()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[evt.Kind])+len(b.allHandlers))
	handlers = append(handlers, b.subscribers[evt.Kind]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.published.Add(1)
	for _, handler := range handlers {
		b.deliver(handler, evt)
	}
}

func (b *Bus) deliver(handler Handler, evt types.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.failed.Add(1)
			logger.Errorf(context.Background(), "panic in event handler for %s: %v", evt.Kind, r)
		}
	}()
	handler(evt)
	b.metrics.delivered.Add(1)
}

// Metrics returns delivery counters.
func (b *Bus) Metrics() map[string]int64 {
	return map[string]int64{
		"published_events": b.metrics.published.Load(),
		"delivered_events": b.metrics.delivered.Load(),
		"failed_events":    b.metrics.failed.Load(),
	}
}
