package producer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDirProducerScanRespectsGlobs(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	dir := t.TempDir()
	write := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("keep.txt")
	write("skip.tmp")

	p := New("jobs", rdb, nil)
	dp := NewDirProducer(p, nil)
	dp.ExcludeGlobs = []string{"**/*.tmp"}

	if err := dp.Scan(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if got := p.Size(ctx); got != 1 {
		t.Fatalf("expected exactly one job enqueued for the non-excluded file, got %d", got)
	}

	raw, err := rdb.LRange(ctx, "jobs", 0, -1).Result()
	if err != nil {
		t.Fatal(err)
	}
	job, err := dp.cd.Decode([]byte(raw[0]))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(job.FilePath) != "keep.txt" {
		t.Fatalf("expected keep.txt, got %s", job.FilePath)
	}
}
