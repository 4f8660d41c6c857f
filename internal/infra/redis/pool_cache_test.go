package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"finquiz-service/internal/domain"
	"finquiz-service/internal/infra/memory"
)

func TestPoolCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		PoolLoader: memory.NewStaticPoolLoader(map[string][]domain.Question{
			"daily": samplePool(),
		}),
	}
	cache := NewPoolCache(client, loader, time.Minute)

	pool, err := cache.Pool(context.Background(), "daily")
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(pool))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	pool, err = cache.Pool(context.Background(), "daily")
	if err != nil {
		t.Fatalf("pool from cache: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if pool[0].Prompt != "What does APR stand for?" {
		t.Fatalf("cached pool lost content: %+v", pool[0])
	}
}

func TestPoolCacheReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		PoolLoader: memory.NewStaticPoolLoader(map[string][]domain.Question{
			"daily": samplePool(),
		}),
	}
	cache := NewPoolCache(newClient(mr), loader, time.Minute)

	if _, err := cache.Pool(context.Background(), "daily"); err != nil {
		t.Fatalf("pool: %v", err)
	}

	// Jitter adds at most 10%, so 2x TTL is safely past expiry.
	mr.FastForward(2 * time.Minute)
	if _, err := cache.Pool(context.Background(), "daily"); err != nil {
		t.Fatalf("pool after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d loader hits", loader.calls)
	}
}

func TestPoolCachePropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		PoolLoader: memory.NewStaticPoolLoader(map[string][]domain.Question{}),
	}
	cache := NewPoolCache(newClient(mr), loader, time.Minute)

	if _, err := cache.Pool(context.Background(), "missing"); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

type countingLoader struct {
	memory.PoolLoader
	calls int
}

func (l *countingLoader) LoadPool(ctx context.Context, key string) ([]domain.Question, error) {
	l.calls++
	return l.PoolLoader.LoadPool(ctx, key)
}

func samplePool() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: "What does APR stand for?",
			Options: []domain.Option{
				{ID: "o1", Text: "Annual Percentage Rate", Correct: true},
				{ID: "o2", Text: "Average Payment Ratio"},
			},
		},
		{
			ID:     "q2",
			Prompt: "Which account type typically earns the most interest?",
			Options: []domain.Option{
				{ID: "o1", Text: "Checking"},
				{ID: "o2", Text: "High-yield savings", Correct: true},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
