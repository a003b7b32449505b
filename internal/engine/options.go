package engine

import (
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// Option configures an Engine at construction
type Option func(*Engine)

// WithHandler registers a Go action handler. Operations name it through
// their action's Handler field
func WithHandler(name api.Name, h Handler) Option {
	return func(e *Engine) {
		e.handlers[name] = h
	}
}

// WithHandlers registers several action handlers at once
func WithHandlers(handlers map[api.Name]Handler) Option {
	return func(e *Engine) {
		for name, h := range handlers {
			e.handlers[name] = h
		}
	}
}

// WithMetrics records engine activity into m
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock replaces the wall clock used for timestamps
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
