// Package cache keeps the public event listing in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
)

const (
	// EventListKey holds the JSON-encoded result of the public event listing.
	EventListKey = "eventflow:events:list"
	// EventListGenKey is bumped on every invalidation. A listing read from
	// the store is only cached if the generation has not moved since.
	EventListGenKey = "eventflow:events:gen"
)

var errStale = errors.New("event list generation changed")

// EventList is a read-through cache for the public event listing.
// A nil *EventList is valid and behaves as a permanently cold cache.
type EventList struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewEventList returns a cache backed by rdb. It returns nil when rdb is nil.
func NewEventList(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *EventList {
	if rdb == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventList{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached listing. On a miss it returns the current
// generation, to be handed back to Set once the listing has been loaded.
// Any Redis failure is reported as a miss.
func (c *EventList) Get(ctx context.Context) ([]models.Event, int64, bool) {
	if c == nil {
		return nil, 0, false
	}
	raw, err := c.rdb.Get(ctx, EventListKey).Bytes()
	if err == nil {
		var events []models.Event
		if err := json.Unmarshal(raw, &events); err == nil {
			return events, 0, true
		}
		c.logger.Warn("event cache entry corrupt", zap.Error(err))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("event cache read failed", zap.Error(err))
		return nil, 0, false
	}
	gen, err := c.generation(ctx, c.rdb)
	if err != nil {
		c.logger.Warn("event cache generation read failed", zap.Error(err))
	}
	return nil, gen, false
}

func (c *EventList) generation(ctx context.Context, r redis.Cmdable) (int64, error) {
	gen, err := r.Get(ctx, EventListGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores the listing if no invalidation happened since Get reported gen.
// Failures are logged and otherwise ignored.
func (c *EventList) Set(ctx context.Context, gen int64, events []models.Event) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(events)
	if err != nil {
		c.logger.Warn("event cache encode failed", zap.Error(err))
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, EventListKey, raw, c.ttl)
			return nil
		})
		return err
	}, EventListGenKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("event cache write skipped, listing changed", zap.Int64("generation", gen))
	default:
		c.logger.Warn("event cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached listing and bumps the generation so that
// listings loaded before the change are not written back.
func (c *EventList) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, EventListGenKey)
		pipe.Del(ctx, EventListKey)
		return nil
	})
	return err
}
