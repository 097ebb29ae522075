package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
)

// Broadcaster pushes a named event to connected clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{}) error
}

// ListCache caches the public event listing. Get reports a generation on a
// miss; Set only stores the listing if no Invalidate happened in between.
type ListCache interface {
	Get(ctx context.Context) ([]models.Event, int64, bool)
	Set(ctx context.Context, gen int64, events []models.Event)
	Invalidate(ctx context.Context) error
}

// Notifier runs the side effects that follow a committed change: it drops
// the cached event listing and broadcasts to connected clients. Both are
// best effort. A nil *Notifier does nothing.
type Notifier struct {
	hub    Broadcaster
	cache  ListCache
	logger *zap.Logger
}

// NewNotifier creates a notifier. hub and cache may be nil.
func NewNotifier(hub Broadcaster, cache ListCache, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{hub: hub, cache: cache, logger: logger}
}

// AfterCommit invalidates the listing cache and broadcasts event with
// payload. Failures are logged and returned as client-facing warnings.
func (n *Notifier) AfterCommit(ctx context.Context, event string, payload interface{}) []string {
	if n == nil {
		return nil
	}
	var warnings []string
	if n.cache != nil {
		if err := n.cache.Invalidate(ctx); err != nil {
			n.logger.Warn("event cache invalidation failed", zap.Error(err))
			warnings = append(warnings, "event list cache could not be refreshed")
		}
	}
	if n.hub != nil {
		if err := n.hub.Broadcast(event, payload); err != nil {
			n.logger.Warn("broadcast failed", zap.String("event", event), zap.Error(err))
			warnings = append(warnings, "clients could not be notified")
		}
	}
	return warnings
}

func (n *Notifier) cachedList(ctx context.Context) ([]models.Event, int64, bool) {
	if n == nil || n.cache == nil {
		return nil, 0, false
	}
	return n.cache.Get(ctx)
}

func (n *Notifier) storeList(ctx context.Context, gen int64, list []models.Event) {
	if n == nil || n.cache == nil {
		return
	}
	n.cache.Set(ctx, gen, list)
}
