package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"finquiz-service/internal/app"
)

const leaderboardKey = "leaderboard:points"

// LeaderboardIndex keeps the points ranking in a Redis sorted set so several
// instances can share one board.
type LeaderboardIndex struct {
	client *redis.Client
}

func NewLeaderboardIndex(client *redis.Client) *LeaderboardIndex {
	return &LeaderboardIndex{client: client}
}

func (i *LeaderboardIndex) Record(ctx context.Context, userID string, points int) error {
	return i.client.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(points),
		Member: userID,
	}).Err()
}

func (i *LeaderboardIndex) Top(ctx context.Context, n int) ([]app.RankedUser, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := i.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	ranked := make([]app.RankedUser, 0, len(members))
	for _, member := range members {
		userID, ok := member.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T", member.Member)
		}
		ranked = append(ranked, app.RankedUser{UserID: userID, Points: int(member.Score)})
	}

	// Redis breaks score ties in reverse lexical order here; keep ties sorted
	// by user ID ascending so rankings are stable across backends.
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Points != ranked[b].Points {
			return ranked[a].Points > ranked[b].Points
		}
		return ranked[a].UserID < ranked[b].UserID
	})
	return ranked, nil
}

// Rank is 1 + the number of users with strictly more points. Users the board
// has never seen rank as if they had zero points.
func (i *LeaderboardIndex) Rank(ctx context.Context, userID string) (int, error) {
	points := 0.0
	score, err := i.client.ZScore(ctx, leaderboardKey, userID).Result()
	switch {
	case err == nil:
		points = score
	case errors.Is(err, redis.Nil):
		// not on the board yet
	default:
		return 0, err
	}

	greater, err := i.client.ZCount(ctx, leaderboardKey, fmt.Sprintf("(%g", points), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(greater) + 1, nil
}
