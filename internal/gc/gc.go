// Copyright 2025 James Ross
// Package gc implements the stateless sweep that rescues payloads stranded
// in per-consumer unack queues back into processing, where a live consumer
// will re-deliver them. It does not consult heartbeats when choosing
// victims: it collects for every registered consumer, live or dead. A
// richer design would skip consumers whose heartbeat key hasn't expired;
// left as a future extension.
package gc

import (
	"context"

	"github.com/flyingrobots/orizuru/internal/keys"
	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type GC struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *GC {
	return &GC{rdb: rdb, log: log}
}

// CollectOne reads the unack queue's length once, then moves at most that
// many entries back to processing via RPOPLPUSH, stopping early if the
// queue empties under it. Non-blocking and safe to run alongside a
// consumer that is concurrently pushing new rejects onto the same queue:
// RPOPLPUSH reads the tail (oldest reject) while reject prepends at the
// head, so the two never collide.
func (g *GC) CollectOne(ctx context.Context, consumerName string) (int64, error) {
	unacked := keys.Unacked(consumerName)
	processing := keys.Processing(consumerName)

	n, err := g.rdb.LLen(ctx, unacked).Result()
	if err != nil {
		return 0, queueerr.New(queueerr.Transport, err)
	}
	if n == 0 {
		return 0, nil
	}

	var moved int64
	for i := int64(0); i < n; i++ {
		_, err := g.rdb.RPopLPush(ctx, unacked, processing).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return moved, queueerr.New(queueerr.Transport, err)
		}
		moved++
	}
	return moved, nil
}

// Collect sweeps every registered consumer. A single consumer's error is
// absorbed and counted as zero so one bad consumer cannot abort the sweep.
func (g *GC) Collect(ctx context.Context) (int64, error) {
	names, err := g.rdb.SMembers(ctx, keys.Registry).Result()
	if err != nil {
		return 0, queueerr.New(queueerr.Transport, err)
	}
	var total int64
	for _, name := range names {
		n, err := g.CollectOne(ctx, name)
		if err != nil {
			if g.log != nil {
				g.log.Warn("gc sweep failed for consumer", zap.String("consumer", name), zap.Error(err))
			}
			continue
		}
		total += n
	}
	return total, nil
}

// StartCron runs Collect on the given cron schedule and returns the
// running cron instance so the caller can stop it.
func (g *GC) StartCron(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := g.Collect(ctx)
		if err != nil {
			if g.log != nil {
				g.log.Warn("gc collect error", zap.Error(err))
			}
			return
		}
		if n > 0 && g.log != nil {
			g.log.Info("gc recovered payloads", zap.Int64("count", n))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
