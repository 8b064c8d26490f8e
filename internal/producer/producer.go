// Copyright 2025 James Ross
// Package producer implements the append side of the queue: encode a typed
// value and prepend it to a named source queue, paired on the consumer side
// with BRPOPLPUSH to form a FIFO discipline (LPUSH head, BRPOPLPUSH tail).
package producer

import (
	"context"

	"github.com/flyingrobots/orizuru/internal/queueerr"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Producer appends encoded payloads to a single named source queue.
type Producer struct {
	queueName string
	rdb       *redis.Client
	log       *zap.Logger
}

func New(queueName string, rdb *redis.Client, log *zap.Logger) *Producer {
	return &Producer{queueName: queueName, rdb: rdb, log: log}
}

func (p *Producer) QueueName() string { return p.queueName }

// Size reports the length of the source queue. Best-effort diagnostic:
// returns 0 on error.
func (p *Producer) Size(ctx context.Context) int64 {
	n, err := p.rdb.LLen(ctx, p.queueName).Result()
	if err != nil {
		return 0
	}
	return n
}

// Encoder is the half of codec.Codec Push needs.
type Encoder[T any] interface {
	Encode(v T) ([]byte, error)
}

// Push encodes value with cd and LPUSHes it onto the source queue.
func Push[T any](ctx context.Context, p *Producer, cd Encoder[T], value T) error {
	payload, err := cd.Encode(value)
	if err != nil {
		return err
	}
	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return queueerr.New(queueerr.Transport, err)
	}
	return nil
}
