package memory

import (
	"context"
	"testing"
)

func TestTopOrdersByPointsThenUserID(t *testing.T) {
	ctx := context.Background()
	index := NewLeaderboardIndex()
	_ = index.Record(ctx, "u3", 50)
	_ = index.Record(ctx, "u1", 80)
	_ = index.Record(ctx, "u2", 50)
	_ = index.Record(ctx, "u4", 10)

	top, err := index.Top(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	want := []string{"u1", "u2", "u3"}
	for i, userID := range want {
		if top[i].UserID != userID {
			t.Fatalf("expected order %v, got %+v", want, top)
		}
	}
}

func TestRankCountsStrictlyGreater(t *testing.T) {
	ctx := context.Background()
	index := NewLeaderboardIndex()
	_ = index.Record(ctx, "u1", 80)
	_ = index.Record(ctx, "u2", 50)
	_ = index.Record(ctx, "u3", 50)
	_ = index.Record(ctx, "u4", 10)

	cases := map[string]int{"u1": 1, "u2": 2, "u3": 2, "u4": 4}
	for userID, want := range cases {
		rank, err := index.Rank(ctx, userID)
		if err != nil {
			t.Fatalf("rank %s: %v", userID, err)
		}
		if rank != want {
			t.Fatalf("rank of %s: expected %d, got %d", userID, want, rank)
		}
	}

	// Unknown users rank below everyone with points.
	rank, err := index.Rank(ctx, "ghost")
	if err != nil {
		t.Fatalf("rank ghost: %v", err)
	}
	if rank != 5 {
		t.Fatalf("expected ghost rank 5, got %d", rank)
	}
}
