package adminapi

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/flyingrobots/orizuru/internal/keys"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestStatsReportsSourceQueuesAndConsumers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	require.NoError(t, rdb.LPush(ctx, "jobs", "a", "b").Err())
	require.NoError(t, rdb.SAdd(ctx, keys.Registry, "c1").Err())
	require.NoError(t, rdb.LPush(ctx, keys.Processing("c1"), "p").Err())

	res, err := Stats(ctx, rdb, []string{"jobs"})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.SourceQueueSizes["jobs"])
	require.Len(t, res.Consumers, 1)
	require.Equal(t, "c1", res.Consumers[0].Name)
	require.Equal(t, int64(1), res.Consumers[0].Processing)
}

func TestPeekDoesNotRemove(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	if err := rdb.LPush(ctx, "jobs", "a", "b", "c").Err(); err != nil {
		t.Fatal(err)
	}
	items, err := Peek(ctx, rdb, "jobs", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if l, _ := rdb.LLen(ctx, "jobs").Result(); l != 3 {
		t.Fatalf("peek must not remove entries, got length %d", l)
	}
}

func TestPurgeDeletesQueue(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	if err := rdb.LPush(ctx, "jobs", "a").Err(); err != nil {
		t.Fatal(err)
	}
	if err := Purge(ctx, rdb, "jobs"); err != nil {
		t.Fatal(err)
	}
	if l, _ := rdb.LLen(ctx, "jobs").Result(); l != 0 {
		t.Fatalf("expected queue purged, got length %d", l)
	}
}
