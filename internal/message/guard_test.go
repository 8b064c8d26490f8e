package message

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T, rdb *redis.Client, payload []byte) *Guard[string] {
	t.Helper()
	ctx := context.Background()
	if err := rdb.LPush(ctx, "proc", payload).Err(); err != nil {
		t.Fatal(err)
	}
	return New("hello", payload, rdb, "proc", "unacked", nil)
}

func TestAckRemovesFromProcessing(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	g := newTestGuard(t, rdb, []byte("payload-1"))
	n, err := g.Ack(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 element removed, got %d", n)
	}
	if g.State() != Acked {
		t.Fatalf("expected Acked, got %s", g.State())
	}
	if l, _ := rdb.LLen(ctx, "proc").Result(); l != 0 {
		t.Fatalf("expected processing queue empty, got %d", l)
	}
	if l, _ := rdb.LLen(ctx, "unacked").Result(); l != 0 {
		t.Fatalf("ack must not touch the unacked queue, got %d", l)
	}
}

func TestRejectMovesToUnacked(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	g := newTestGuard(t, rdb, []byte("payload-2"))
	if err := g.Reject(ctx); err != nil {
		t.Fatal(err)
	}
	if g.State() != Rejected {
		t.Fatalf("expected Rejected, got %s", g.State())
	}
	if l, _ := rdb.LLen(ctx, "proc").Result(); l != 0 {
		t.Fatalf("expected processing queue empty after reject, got %d", l)
	}
	if l, _ := rdb.LLen(ctx, "unacked").Result(); l != 1 {
		t.Fatalf("expected payload in unacked queue, got %d", l)
	}
}

func TestPushMovesToArbitraryQueue(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	g := newTestGuard(t, rdb, []byte("payload-3"))
	if err := g.Push(ctx, "retry-queue"); err != nil {
		t.Fatal(err)
	}
	if g.State() != Pushed {
		t.Fatalf("expected Pushed, got %s", g.State())
	}
	if l, _ := rdb.LLen(ctx, "retry-queue").Result(); l != 1 {
		t.Fatalf("expected payload in retry-queue, got %d", l)
	}
}

func TestReleaseRescuesUnackedGuard(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	g := newTestGuard(t, rdb, []byte("payload-4"))
	g.Release(ctx)
	if g.State() != Rejected {
		t.Fatalf("Release on an Unacked guard should reject, got %s", g.State())
	}
	if l, _ := rdb.LLen(ctx, "unacked").Result(); l != 1 {
		t.Fatalf("expected rescued payload in unacked queue, got %d", l)
	}
}

func TestReleaseIsNoOpAfterAck(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	g := newTestGuard(t, rdb, []byte("payload-5"))
	if _, err := g.Ack(ctx); err != nil {
		t.Fatal(err)
	}
	g.Release(ctx)
	if l, _ := rdb.LLen(ctx, "unacked").Result(); l != 0 {
		t.Fatalf("Release after Ack must not rescue, got %d entries in unacked", l)
	}
}
