package events

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

type (
	// Hub broadcasts run events to every consumer attached to it
	Hub struct {
		topic  topic.Topic[*api.Event]
		prod   topic.Producer[*api.Event]
		mu     sync.RWMutex
		closed bool
	}

	// Consumer receives the events published after it was created
	Consumer = topic.Consumer[*api.Event]

	// Filter selects events of interest
	Filter func(*api.Event) bool
)

// NewHub creates an event hub backed by a caravan topic
func NewHub() *Hub {
	t := caravan.NewTopic[*api.Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish sends an event to all consumers. Events published after Close
// are dropped
func (h *Hub) Publish(ev *api.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	message.Send(h.prod, ev)
}

// NewConsumer attaches a consumer. The caller must Close it when done
func (h *Hub) NewConsumer() Consumer {
	return h.topic.NewConsumer()
}

// Close stops accepting events
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.prod.Close()
}

// FilterTypes matches events of any of the given types
func FilterTypes(types ...api.EventType) Filter {
	lookup := map[api.EventType]bool{}
	for _, typ := range types {
		lookup[typ] = true
	}
	return func(ev *api.Event) bool {
		return lookup[ev.Type]
	}
}

// FilterRun matches the events of one run
func FilterRun(id api.RunID) Filter {
	return func(ev *api.Event) bool {
		return ev.RunID == id
	}
}

// AndFilters matches events that every filter matches
func AndFilters(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// OrFilters matches events that any filter matches
func OrFilters(filters ...Filter) Filter {
	return func(ev *api.Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}
