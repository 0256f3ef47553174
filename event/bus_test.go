package event

import (
	"context"
	"testing"

	"github.com/axonbase/extcore/types"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []types.Event
	bus.Subscribe(types.EventInstalled, func(evt types.Event) {
		got = append(got, evt)
	})

	bus.Publish(types.Event{
		Kind:        types.EventInstalled,
		ExtensionID: "behllobkkfkfnphdnhnkndlbkcpglgmj",
	})
	bus.Publish(types.Event{
		Kind:        types.EventUninstalled,
		ExtensionID: "behllobkkfkfnphdnhnkndlbkcpglgmj",
	})

	if len(got) != 1 {
		t.Fatalf("handler received %d events, want 1", len(got))
	}
	if got[0].EventID == "" || got[0].Time.IsZero() {
		t.Error("published event should be stamped with id and time")
	}
}

func TestSubscribeAllSeesEveryKind(t *testing.T) {
	bus := NewBus()

	var kinds []types.EventKind
	bus.SubscribeAll(func(evt types.Event) {
		kinds = append(kinds, evt.Kind)
	})

	bus.Publish(types.Event{Kind: types.EventLoaded})
	bus.Publish(types.Event{Kind: types.EventUnloaded})
	bus.Publish(types.Event{Kind: types.EventDisabled})

	if len(kinds) != 3 {
		t.Fatalf("got %d events, want 3", len(kinds))
	}
	if kinds[0] != types.EventLoaded || kinds[2] != types.EventDisabled {
		t.Errorf("events out of order: %v", kinds)
	}
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(types.EventInstalled, func(types.Event) {
		panic("handler bug")
	})
	delivered := false
	bus.Subscribe(types.EventInstalled, func(types.Event) {
		delivered = true
	})

	bus.Publish(types.Event{Kind: types.EventInstalled})

	if !delivered {
		t.Error("a panicking handler must not block later handlers")
	}
	if bus.Metrics()["failed_events"] != 1 {
		t.Errorf("failed counter = %d, want 1", bus.Metrics()["failed_events"])
	}
}

func TestDispatcherWithoutQueue(t *testing.T) {
	bus := NewBus()
	d := NewDispatcher(bus, nil)

	seen := 0
	bus.Subscribe(types.EventEnabled, func(types.Event) { seen++ })

	d.Dispatch(context.Background(), types.Event{Kind: types.EventEnabled})
	if seen != 1 {
		t.Errorf("dispatch should reach bus subscribers, seen=%d", seen)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close without queue: %v", err)
	}
}

type recordingQueue struct {
	events []types.Event
	closed bool
}

func (q *recordingQueue) PublishEvent(_ context.Context, evt types.Event) error {
	q.events = append(q.events, evt)
	return nil
}

func (q *recordingQueue) Close() error {
	q.closed = true
	return nil
}

func TestDispatcherMirrorsToQueue(t *testing.T) {
	bus := NewBus()
	queue := &recordingQueue{}
	d := NewDispatcher(bus, queue)

	d.Dispatch(context.Background(), types.Event{
		Kind:        types.EventInstalled,
		ExtensionID: "behllobkkfkfnphdnhnkndlbkcpglgmj",
	})

	if len(queue.events) != 1 {
		t.Fatalf("queue received %d events, want 1", len(queue.events))
	}
	_ = d.Close()
	if !queue.closed {
		t.Error("Close should close the queue publisher")
	}
}
