// Copyright 2025 James Ross
package obs

import (
	"context"
	"time"

	"github.com/flyingrobots/orizuru/internal/keys"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartQueueLengthUpdater samples the given source queues plus every
// registered consumer's processing/unacked queues, updating a gauge per
// queue on the given interval.
func StartQueueLengthUpdater(ctx context.Context, interval time.Duration, sourceQueues []string, rdb *redis.Client, log *zap.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sample(ctx, sourceQueues, rdb, log)
			}
		}
	}()
}

func sample(ctx context.Context, sourceQueues []string, rdb *redis.Client, log *zap.Logger) {
	for _, q := range sourceQueues {
		n, err := rdb.LLen(ctx, q).Result()
		if err != nil {
			log.Debug("queue length poll error", String("queue", q), Err(err))
			continue
		}
		QueueLength.WithLabelValues(q).Set(float64(n))
	}

	names, err := rdb.SMembers(ctx, keys.Registry).Result()
	if err != nil {
		log.Debug("registry scan error", Err(err))
		return
	}
	for _, name := range names {
		for _, q := range []string{keys.Processing(name), keys.Unacked(name)} {
			n, err := rdb.LLen(ctx, q).Result()
			if err != nil {
				continue
			}
			QueueLength.WithLabelValues(q).Set(float64(n))
		}
	}
}
