package stubserver

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newDeduper(t *testing.T) (*miniredis.Miniredis, *RedisDeduper) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisDeduper(client, time.Hour)
}

func TestDeduperClaimCommitReplay(t *testing.T) {
	_, d := newDeduper(t)
	ctx := context.Background()

	isNew, _, err := d.Claim(ctx, "k1")
	if err != nil || !isNew {
		t.Fatalf("first claim: isNew=%v err=%v", isNew, err)
	}
	if err := d.Commit(ctx, "k1", "task-9"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	isNew, taskID, err := d.Claim(ctx, "k1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if isNew || taskID != "task-9" {
		t.Fatalf("expected replay of task-9, got isNew=%v taskID=%q", isNew, taskID)
	}
}

func TestDeduperClaimBeforeCommit(t *testing.T) {
	_, d := newDeduper(t)
	ctx := context.Background()

	if _, _, err := d.Claim(ctx, "k1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	isNew, taskID, err := d.Claim(ctx, "k1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if isNew || taskID != "" {
		t.Fatalf("uncommitted key must report empty task id, got isNew=%v taskID=%q", isNew, taskID)
	}
}

func TestDeduperRelease(t *testing.T) {
	_, d := newDeduper(t)
	ctx := context.Background()

	if _, _, err := d.Claim(ctx, "k1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := d.Release(ctx, "k1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	isNew, _, err := d.Claim(ctx, "k1")
	if err != nil || !isNew {
		t.Fatalf("expected key claimable after release, got isNew=%v err=%v", isNew, err)
	}
}

func TestDeduperTTL(t *testing.T) {
	mr, d := newDeduper(t)
	ctx := context.Background()

	if _, _, err := d.Claim(ctx, "k1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	isNew, _, err := d.Claim(ctx, "k1")
	if err != nil || !isNew {
		t.Fatalf("expected key expired after TTL, got isNew=%v err=%v", isNew, err)
	}
}
