package helpers

import (
	"testing"
	"time"

	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// EventWaiter collects events matching a filter. Create it before
// triggering the action that produces the events
type EventWaiter struct {
	consumer events.Consumer
	filter   events.Filter
}

// DefaultTimeout bounds every wait
const DefaultTimeout = 5 * time.Second

// Subscribe creates a waiter for the hub's events that match filter
func (env *TestEngineEnv) Subscribe(filter events.Filter) *EventWaiter {
	return &EventWaiter{
		consumer: env.EventHub.NewConsumer(),
		filter:   filter,
	}
}

// SubscribeToRun creates a waiter for the terminal event of any run
func (env *TestEngineEnv) SubscribeToRun() *EventWaiter {
	return env.Subscribe(func(ev *api.Event) bool {
		return ev.IsTerminal()
	})
}

// Next blocks until a matching event arrives and returns it
func (w *EventWaiter) Next(t *testing.T) *api.Event {
	t.Helper()
	evs := w.Collect(t, 1)
	return evs[0]
}

// Collect blocks until count matching events arrive and returns them in
// the order received
func (w *EventWaiter) Collect(t *testing.T, count int) []*api.Event {
	t.Helper()

	deadline := time.NewTimer(DefaultTimeout)
	defer deadline.Stop()

	res := make([]*api.Event, 0, count)
	for len(res) < count {
		select {
		case ev, ok := <-w.consumer.Receive():
			if !ok {
				t.Fatalf("event consumer closed after %d events", len(res))
			}
			if ev != nil && w.filter(ev) {
				res = append(res, ev)
			}
		case <-deadline.C:
			t.Fatalf("timeout waiting for %d events, got %d", count, len(res))
		}
	}
	return res
}

// Until collects matching events up to and including the first terminal
// event of the run
func (w *EventWaiter) Until(t *testing.T, id api.RunID) []*api.Event {
	t.Helper()

	deadline := time.NewTimer(DefaultTimeout)
	defer deadline.Stop()

	var res []*api.Event
	for {
		select {
		case ev, ok := <-w.consumer.Receive():
			if !ok {
				t.Fatalf("event consumer closed before run %s ended", id)
			}
			if ev == nil || ev.RunID != id {
				continue
			}
			if w.filter(ev) {
				res = append(res, ev)
			}
			if ev.IsTerminal() {
				return res
			}
		case <-deadline.C:
			t.Fatalf("timeout waiting for run %s to end", id)
		}
	}
}

// Close detaches the waiter from the hub
func (w *EventWaiter) Close() {
	w.consumer.Close()
}
