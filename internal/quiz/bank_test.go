package quiz

import (
	"context"
	"errors"
	"testing"

	"finquiz-service/internal/domain"
)

type mapSource map[string][]domain.Question

func (m mapSource) Pool(_ context.Context, key string) ([]domain.Question, error) {
	pool, ok := m[key]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return pool, nil
}

func TestDrawShufflesAndTruncates(t *testing.T) {
	pool := make([]domain.Question, 0, 10)
	for i := 0; i < 10; i++ {
		pool = append(pool, domain.Question{ID: string(rune('a' + i))})
	}
	bank := NewBankWithSeed(mapSource{"daily": pool}, 42)

	drawn, err := bank.Draw(context.Background(), "daily", 5)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(drawn) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(drawn))
	}

	seen := make(map[string]bool)
	for _, q := range drawn {
		if seen[q.ID] {
			t.Fatalf("duplicate question %q in draw", q.ID)
		}
		seen[q.ID] = true
	}

	// The source pool must be left untouched.
	for i, q := range pool {
		if q.ID != string(rune('a'+i)) {
			t.Fatalf("draw mutated the pool at %d: %q", i, q.ID)
		}
	}
}

func TestDrawUnknownPool(t *testing.T) {
	bank := NewBankWithSeed(mapSource{}, 1)
	if _, err := bank.Draw(context.Background(), "nope", 1); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestDrawEmptyPool(t *testing.T) {
	bank := NewBankWithSeed(mapSource{"daily": {}}, 1)
	if _, err := bank.Draw(context.Background(), "daily", 1); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound for empty pool, got %v", err)
	}
}

func TestDrawRejectsOversizedCount(t *testing.T) {
	bank := NewBankWithSeed(mapSource{
		"level:1": {{ID: "q1"}, {ID: "q2"}},
	}, 1)
	if _, err := bank.Draw(context.Background(), "level:1", 3); !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
}

func TestCloneQuestionsIsIndependent(t *testing.T) {
	original := []domain.Question{
		{ID: "q1", Options: []domain.Option{{ID: "o1", Text: "yes", Correct: true}}},
	}
	clone := CloneQuestions(original)
	clone[0].Options[0].Text = "mutated"
	if original[0].Options[0].Text != "yes" {
		t.Fatalf("clone shares option storage with the original")
	}
}
