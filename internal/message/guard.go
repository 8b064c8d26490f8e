// Copyright 2025 James Ross
// Package message implements the MessageGuard lifecycle: the handle a
// Consumer hands back for exactly one in-flight payload, whose release
// defaults to rescue unless the caller explicitly transitioned it out of
// Unacked first. This is the keystone of at-least-once delivery.
package message

import (
	"context"

	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// State is the guard's position in its lifecycle.
type State int

const (
	Unacked State = iota
	Acked
	Rejected
	Pushed
)

func (s State) String() string {
	switch s {
	case Unacked:
		return "unacked"
	case Acked:
		return "acked"
	case Rejected:
		return "rejected"
	case Pushed:
		return "pushed"
	default:
		return "unknown"
	}
}

// Guard owns exactly one payload claimed into a consumer's processing
// queue. Go has no destructors, so the rescue-on-drop contract is mapped to
// a deferred Release call: callers must `defer guard.Release(ctx)`
// immediately after Next returns one, the way worker.go defers span.End()
// on every exit path of processJob.
type Guard[T any] struct {
	value         T
	payload       []byte
	rdb           *redis.Client
	processingKey string
	unackedKey    string
	log           *zap.Logger
	state         State
}

// New constructs a guard in the Unacked state. Consumer.Next is the only
// intended caller.
func New[T any](value T, payload []byte, rdb *redis.Client, processingKey, unackedKey string, log *zap.Logger) *Guard[T] {
	return &Guard[T]{
		value:         value,
		payload:       payload,
		rdb:           rdb,
		processingKey: processingKey,
		unackedKey:    unackedKey,
		log:           log,
		state:         Unacked,
	}
}

// Message returns the decoded value. Never mutates state.
func (g *Guard[T]) Message() T {
	return g.value
}

// Payload returns the raw bytes as stored in Redis. Never mutates state.
func (g *Guard[T]) Payload() []byte {
	return g.payload
}

// State reports the guard's current lifecycle position.
func (g *Guard[T]) State() State {
	return g.state
}

// Ack removes the payload from the processing queue. Returns the number of
// elements actually removed (0 or 1).
func (g *Guard[T]) Ack(ctx context.Context) (int64, error) {
	g.state = Acked
	n, err := g.rdb.LRem(ctx, g.processingKey, 1, g.payload).Result()
	if err != nil {
		return 0, queueerr.New(queueerr.Transport, err)
	}
	return n, nil
}

// Reject moves the payload from the processing queue to the unack queue.
func (g *Guard[T]) Reject(ctx context.Context) error {
	g.state = Rejected
	return g.pushTo(ctx, g.unackedKey)
}

// Push moves the payload from the processing queue to an arbitrary target
// queue, e.g. to implement manual retries onto the source queue.
func (g *Guard[T]) Push(ctx context.Context, targetQueue string) error {
	g.state = Pushed
	return g.pushTo(ctx, targetQueue)
}

// pushTo executes LPUSH target <payload>; LREM processing 1 <payload> as a
// single MULTI/EXEC transaction, so the payload is never absent from both
// lists at once.
func (g *Guard[T]) pushTo(ctx context.Context, target string) error {
	_, err := g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, target, g.payload)
		pipe.LRem(ctx, g.processingKey, 1, g.payload)
		return nil
	})
	if err != nil {
		return queueerr.New(queueerr.Transport, err)
	}
	return nil
}

// Release rescues the payload if the guard is leaving scope still Unacked.
// Call it with defer right after Next returns a guard; any early return,
// panic recovery, or forgotten ack/reject/push is covered by this call.
// Already-transitioned guards (Acked/Rejected/Pushed) are a no-op, so
// Release is safe to defer unconditionally and never double-executes the
// rescue after an explicit call.
func (g *Guard[T]) Release(ctx context.Context) {
	if g.state != Unacked {
		return
	}
	if err := g.Reject(ctx); err != nil && g.log != nil {
		g.log.Warn("automatic rescue failed, payload left for GC",
			zap.String("processing_queue", g.processingKey),
			zap.Error(err),
		)
	}
}
