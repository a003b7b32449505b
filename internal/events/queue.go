package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

type (
	// Queue drains a hub consumer and hands events to a handler in bounded
	// batches
	Queue struct {
		cons        Consumer
		handler     Handler
		stop        chan struct{}
		batchSize   int
		wg          sync.WaitGroup
		startOnce   sync.Once
		stopOnce    sync.Once
		cleanupOnce sync.Once
	}

	// Handler processes a batch of events in a single call
	Handler func([]*api.Event) error

	// Sink is a delivery target for event batches
	Sink interface {
		Deliver(ctx context.Context, batch []*api.Event) error
	}
)

var ErrHandlerPanicked = errors.New("event handler panicked")

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	deliveryWait = 10 * time.Second
)

// NewQueue creates a queue reading from cons with the provided batch size
func NewQueue(cons Consumer, handler Handler, batchSize int) *Queue {
	return &Queue{
		cons:      cons,
		handler:   handler,
		stop:      make(chan struct{}),
		batchSize: max(batchSize, 1),
	}
}

// Deliver builds a Handler that hands each batch to every sink
func Deliver(sinks ...Sink) Handler {
	return func(batch []*api.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryWait)
		defer cancel()

		var errs []error
		for _, s := range sinks {
			if err := s.Deliver(ctx, batch); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Start begins processing events
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.wg.Go(func() {
			for {
				select {
				case <-q.stop:
					return
				case ev, ok := <-q.cons.Receive():
					if !ok {
						return
					}
					q.handleBatch(q.collectBatch(ev))
				}
			}
		})
	})
}

// Flush stops the queue after handling the events already received
func (q *Queue) Flush() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
	q.cleanupOnce.Do(q.flush)
}

// Cancel immediately stops the queue without processing remaining events
func (q *Queue) Cancel() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
	q.cleanupOnce.Do(q.cons.Close)
}

func (q *Queue) collectBatch(first *api.Event) []*api.Event {
	batch := []*api.Event{first}
	for len(batch) < q.batchSize {
		select {
		case ev, ok := <-q.cons.Receive():
			if !ok {
				return batch
			}
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (q *Queue) flush() {
	defer q.cons.Close()
	for {
		select {
		case ev, ok := <-q.cons.Receive():
			if !ok {
				return
			}
			q.handleBatch(q.collectBatch(ev))
		default:
			return
		}
	}
}

func (q *Queue) handleBatch(batch []*api.Event) {
	for attempt := range maxRetries {
		err := q.tryHandleBatch(batch)
		if err == nil {
			return
		}
		slog.Error("Event batch failed",
			slog.Int("batch_size", len(batch)),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries),
			log.Error(err))
		if attempt < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	slog.Error("Event batch permanently failed",
		slog.Int("batch_size", len(batch)))
}

func (q *Queue) tryHandleBatch(batch []*api.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanicked, r)
		}
	}()
	return q.handler(batch)
}
