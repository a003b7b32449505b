package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

// RedisSink appends events to a Redis stream
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

const (
	fieldType  = "type"
	fieldRunID = "run_id"
	fieldEvent = "event"
)

var ErrMarshalEvent = errors.New("failed to marshal event")

// NewRedisClient connects to the Redis server named in cfg
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisSink creates a sink writing to the configured stream. A positive
// maxLen caps the stream length
func NewRedisSink(
	client *redis.Client, stream string, maxLen int64,
) *RedisSink {
	return &RedisSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Deliver adds each event of the batch as one stream entry, in order
func (s *RedisSink) Deliver(ctx context.Context, batch []*api.Event) error {
	pipe := s.client.Pipeline()
	for _, ev := range batch {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMarshalEvent, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Values: map[string]any{
				fieldType:  string(ev.Type),
				fieldRunID: string(ev.RunID),
				fieldEvent: string(data),
			},
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Close releases the Redis client
func (s *RedisSink) Close() error {
	return s.client.Close()
}
