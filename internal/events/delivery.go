package events

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/bilalinamdar/cloud-slang/internal/config"
)

// Delivery forwards hub events to the sinks enabled by configuration
type Delivery struct {
	queue   *Queue
	closers []io.Closer
}

// StartDelivery attaches a queue to the hub, delivering to a Redis stream
// when Redis.Addr is set and to a blob archive when Archive.BucketURL is set
func StartDelivery(
	ctx context.Context, hub *Hub, cfg *config.Config,
) (*Delivery, error) {
	d := &Delivery{}
	var sinks []Sink

	if cfg.Redis.Addr != "" {
		s := NewRedisSink(
			NewRedisClient(cfg.Redis), cfg.Redis.Stream, cfg.Redis.MaxLen,
		)
		sinks = append(sinks, s)
		d.closers = append(d.closers, s)
	}

	if cfg.Archive.BucketURL != "" {
		s, err := OpenArchiveSink(ctx, cfg.Archive.BucketURL, cfg.Archive.Prefix)
		if err != nil {
			_ = d.close()
			return nil, err
		}
		sinks = append(sinks, s)
		d.closers = append(d.closers, s)
	}

	d.queue = NewQueue(hub.NewConsumer(), Deliver(sinks...), cfg.EventBatchSize)
	d.queue.Start()
	slog.Info("Event delivery started",
		slog.Int("sinks", len(sinks)))
	return d, nil
}

// Stop delivers what has been received and releases the sinks
func (d *Delivery) Stop() error {
	d.queue.Flush()
	return d.close()
}

func (d *Delivery) close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
