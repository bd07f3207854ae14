// Package worker maintains per-owner usage counters from image lifecycle
// events. The counters live in Redis hashes so any process can read them;
// accounting drift on either direction is bounded by at-least-once delivery.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"image-service/internal/events"
)

// usageStats is the Redis capability the accountant needs.
type usageStats interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) error
}

type Accountant struct {
	stats usageStats
	log   *zap.Logger
}

func NewAccountant(stats usageStats, log *zap.Logger) *Accountant {
	return &Accountant{stats: stats, log: log}
}

func usageKey(ev events.Event) string {
	return fmt.Sprintf("usage:%s", ev.OwnerID)
}

// Apply folds one lifecycle event into the owner's counters.
func (a *Accountant) Apply(ctx context.Context, ev events.Event) error {
	key := usageKey(ev)

	var images, bytes int64
	switch ev.Type {
	case events.TypeUploaded:
		images, bytes = 1, ev.SizeBytes
	case events.TypeDeleted:
		images, bytes = -1, -ev.SizeBytes
	default:
		a.log.Warn("ignoring unknown event type", zap.String("type", ev.Type))
		return nil
	}

	if err := a.stats.HIncrBy(ctx, key, "images", images); err != nil {
		return fmt.Errorf("failed to update image count: %w", err)
	}
	if err := a.stats.HIncrBy(ctx, key, "bytes", bytes); err != nil {
		return fmt.Errorf("failed to update byte count: %w", err)
	}

	a.log.Info("usage updated",
		zap.String("owner_id", ev.OwnerID.String()),
		zap.String("type", ev.Type),
		zap.Int64("size_bytes", ev.SizeBytes))
	return nil
}
