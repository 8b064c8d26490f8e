package producer

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/flyingrobots/orizuru/internal/codec"
	"github.com/redis/go-redis/v9"
)

func TestPushEncodesAndLPushes(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	p := New("jobs", rdb, nil)
	cd := codec.NewMsgpack[string]()
	if err := Push(ctx, p, cd, "hello"); err != nil {
		t.Fatal(err)
	}
	if p.Size(ctx) != 1 {
		t.Fatalf("expected source queue size 1, got %d", p.Size(ctx))
	}

	raw, err := rdb.LRange(ctx, "jobs", 0, -1).Result()
	if err != nil {
		t.Fatal(err)
	}
	v, err := cd.Decode([]byte(raw[0]))
	if err != nil {
		t.Fatal(err)
	}
	if v != "hello" {
		t.Fatalf("expected round-tripped value hello, got %q", v)
	}
}

func TestSizeIsBestEffort(t *testing.T) {
	mr, _ := miniredis.Run()
	mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p := New("jobs", rdb, nil)
	if got := p.Size(context.Background()); got != 0 {
		t.Fatalf("expected 0 on transport error, got %d", got)
	}
}
