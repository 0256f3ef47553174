package event

import (
	"context"
	"fmt"

	"github.com/axonbase/extcore/config"
	"github.com/axonbase/extcore/logging/logger"
	"github.com/axonbase/extcore/types"
)

// Dispatcher couples the in-process bus with an optional queue publisher.
// In-process subscribers are always served; queue publication is best
// effort and a failure never blocks a lifecycle transition.
type Dispatcher struct {
	bus   *Bus
	queue QueuePublisher
}

// NewDispatcher builds a dispatcher over the given bus and optional queue.
func NewDispatcher(bus *Bus, queue QueuePublisher) *Dispatcher {
	return &Dispatcher{bus: bus, queue: queue}
}

// NewDispatcherFromConfig wires the queue publisher selected by config.
func NewDispatcherFromConfig(cfg *config.Events, bus *Bus) (*Dispatcher, error) {
	if cfg == nil || cfg.Queue == "" || cfg.Queue == "none" {
		return NewDispatcher(bus, nil), nil
	}
	switch cfg.Queue {
	case "rabbitmq":
		queue, err := NewRabbitMQPublisher(cfg.URL, cfg.Exchange)
		if err != nil {
			return nil, err
		}
		return NewDispatcher(bus, queue), nil
	case "kafka":
		return NewDispatcher(bus, NewKafkaPublisher(cfg.Brokers, cfg.Topic)), nil
	default:
		return nil, fmt.Errorf("unknown event queue type %q", cfg.Queue)
	}
}

// Bus returns the underlying in-process bus.
func (d *Dispatcher) Bus() *Bus {
	return d.bus
}

// Dispatch delivers the event in-process and mirrors it to the queue.
func (d *Dispatcher) Dispatch(ctx context.Context, evt types.Event) {
	d.bus.Publish(evt)
	if d.queue == nil {
		return
	}
	if err := d.queue.PublishEvent(ctx, evt); err != nil {
		logger.Warnf(ctx, "failed to publish %s event for %s to queue: %v",
			evt.Kind, evt.ExtensionID, err)
	}
}

// Close releases the queue publisher, if any.
func (d *Dispatcher) Close() error {
	if d.queue == nil {
		return nil
	}
	return d.queue.Close()
}
