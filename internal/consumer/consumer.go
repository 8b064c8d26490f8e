// Copyright 2025 James Ross
// Package consumer implements the claim side of the queue: registering
// liveness, claiming payloads from a source queue into a private processing
// queue with a single atomic BRPOPLPUSH, and heartbeating so an external
// monitor can track it. The GC does not read heartbeats.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flyingrobots/orizuru/internal/breaker"
	"github.com/flyingrobots/orizuru/internal/keys"
	"github.com/flyingrobots/orizuru/internal/message"
	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Consumer claims payloads from a single source queue into its own
// processing queue. Starts unregistered and not stopped.
type Consumer struct {
	name          string
	sourceQueue   string
	processingKey string
	unackedKey    string
	heartbeatKey  string

	rdb     *redis.Client
	log     *zap.Logger
	cb      *breaker.CircuitBreaker
	stopped atomic.Bool
}

// Option configures optional Consumer behavior.
type Option func(*Consumer)

// WithCircuitBreaker guards Next's blocking pop behind a circuit breaker so
// a dead Redis connection does not hot-loop transport errors.
func WithCircuitBreaker(cb *breaker.CircuitBreaker) Option {
	return func(c *Consumer) { c.cb = cb }
}

// New derives the processing, unacked, and heartbeat keys from name.
func New(name, sourceQueue string, rdb *redis.Client, log *zap.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		name:          name,
		sourceQueue:   sourceQueue,
		processingKey: keys.Processing(name),
		unackedKey:    keys.Unacked(name),
		heartbeatKey:  keys.Heartbeat(name),
		rdb:           rdb,
		log:           log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Name() string            { return c.name }
func (c *Consumer) SourceQueue() string     { return c.sourceQueue }
func (c *Consumer) ProcessingQueue() string { return c.processingKey }
func (c *Consumer) UnackedQueue() string    { return c.unackedKey }
func (c *Consumer) ConsumersKey() string    { return keys.Registry }
func (c *Consumer) HeartbeatKey() string    { return c.heartbeatKey }
func (c *Consumer) HeartbeatsKey() string   { return keys.Heartbeats }

// Register adds this consumer's name to the registry. Idempotent.
func (c *Consumer) Register(ctx context.Context) error {
	if err := c.rdb.SAdd(ctx, keys.Registry, c.name).Err(); err != nil {
		return queueerr.New(queueerr.Transport, err)
	}
	return nil
}

// Deregister removes this consumer's name from the registry. Idempotent.
func (c *Consumer) Deregister(ctx context.Context) error {
	if err := c.rdb.SRem(ctx, keys.Registry, c.name).Err(); err != nil {
		return queueerr.New(queueerr.Transport, err)
	}
	return nil
}

// Stop flags the consumer as stopped and deregisters it. Idempotent. A call
// to Next currently blocked inside BRPOPLPUSH is not interrupted by Stop;
// it takes effect at the top of the next Next call, or never if none comes.
func (c *Consumer) Stop(ctx context.Context) error {
	c.stopped.Store(true)
	return c.Deregister(ctx)
}

// IsStopped observes the stopped flag.
func (c *Consumer) IsStopped() bool {
	return c.stopped.Load()
}

// Size reports the length of the source queue. Best-effort: returns 0 on
// error rather than surfacing a diagnostic failure to the caller.
func (c *Consumer) Size(ctx context.Context) int64 {
	n, err := c.rdb.LLen(ctx, c.sourceQueue).Result()
	if err != nil {
		return 0
	}
	return n
}

// Heartbeat writes the current timestamp to the heartbeat hash and to the
// per-consumer TTL'd key, pipelined but not transactional: a partial write
// is tolerated since the next tick repairs it.
func (c *Consumer) Heartbeat(ctx context.Context, ttl time.Duration) (int64, error) {
	ts := time.Now().UnixMilli()
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, keys.Heartbeats, c.name, ts)
		pipe.Set(ctx, c.heartbeatKey, ts, ttl)
		return nil
	})
	if err != nil {
		return ts, queueerr.New(queueerr.Transport, err)
	}
	return ts, nil
}

// Result is the outcome of a Next call: nil means the consumer is stopped;
// a non-nil Result with Err set is a recoverable transport/decode failure;
// a non-nil Result with Guard set is success.
type Result[T any] struct {
	Guard *message.Guard[T]
	Err   error
}

// Next claims the next payload from the source queue into this consumer's
// processing queue via a single atomic BRPOPLPUSH, then decodes it. On a
// decode error the payload remains in the processing queue; it will be
// rescued by the GC or an operator. Blocks until a payload is available or
// the connection errors; timeout is the BRPOPLPUSH wait (0 blocks forever).
func Next[T any](ctx context.Context, c *Consumer, cd Decoder[T], timeout time.Duration) *Result[T] {
	if c.IsStopped() {
		return nil
	}
	if c.cb != nil && !c.cb.Allow() {
		return &Result[T]{Err: queueerr.New(queueerr.Transport, errBreakerOpen)}
	}

	raw, err := c.rdb.BRPopLPush(ctx, c.sourceQueue, c.processingKey, timeout).Result()
	if c.cb != nil {
		c.cb.Record(err == nil || err == redis.Nil)
	}
	if err == redis.Nil {
		return &Result[T]{Err: queueerr.New(queueerr.Transport, errTimeout)}
	}
	if err != nil {
		return &Result[T]{Err: queueerr.New(queueerr.Transport, err)}
	}

	payload := []byte(raw)
	value, decErr := cd.Decode(payload)
	if decErr != nil {
		// Payload stays in the processing queue on decode failure; the GC
		// or an operator rescues it.
		return &Result[T]{Err: decErr}
	}
	guard := message.New(value, payload, c.rdb, c.processingKey, c.unackedKey, c.log)
	return &Result[T]{Guard: guard}
}

// Decoder is the half of codec.Codec Next needs; kept minimal so callers
// can supply any decode-capable type without importing codec.Codec's full
// shape.
type Decoder[T any] interface {
	Decode(b []byte) (T, error)
}
