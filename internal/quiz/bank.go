package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"finquiz-service/internal/domain"
)

// PoolSource supplies the questions of a named pool; the bank does not care
// whether that is a static map, a TTL cache or a database.
type PoolSource interface {
	Pool(ctx context.Context, key string) ([]domain.Question, error)
}

// Bank draws shuffled, size-bounded question subsets from a pool source.
// Every draw hands out an independent slice, so sessions can never share
// mutable question state.
type Bank struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	source PoolSource
}

func NewBank(source PoolSource) *Bank {
	return NewBankWithSeed(source, time.Now().UnixNano())
}

// NewBankWithSeed fixes the shuffle seed; tests use it for reproducible draws.
func NewBankWithSeed(source PoolSource, seed int64) *Bank {
	return &Bank{
		rnd:    rand.New(rand.NewSource(seed)),
		source: source,
	}
}

// Draw returns count questions from the named pool, uniformly shuffled.
// A pool that cannot satisfy count is rejected rather than capped: a session
// must never silently start with fewer questions than its level promises.
func (b *Bank) Draw(ctx context.Context, poolKey string, count int) ([]domain.Question, error) {
	pool, err := b.source.Pool(ctx, poolKey)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, domain.ErrPoolNotFound
	}
	if count > len(pool) {
		return nil, domain.ErrInsufficientQuestions
	}

	drawn := make([]domain.Question, len(pool))
	copy(drawn, pool)

	b.mu.Lock()
	b.rnd.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	b.mu.Unlock()

	return drawn[:count], nil
}

// CloneQuestions copies a drawn sequence for an independent track.
// Option slices are duplicated; the structs themselves are value types.
func CloneQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		opts := make([]domain.Option, len(out[i].Options))
		copy(opts, out[i].Options)
		out[i].Options = opts
	}
	return out
}
