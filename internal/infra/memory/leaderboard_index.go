package memory

import (
	"context"
	"sort"
	"sync"

	"finquiz-service/internal/app"
)

// LeaderboardIndex keeps the points ranking in a plain map.
type LeaderboardIndex struct {
	mu     sync.RWMutex
	points map[string]int
}

func NewLeaderboardIndex() *LeaderboardIndex {
	return &LeaderboardIndex{points: make(map[string]int)}
}

func (i *LeaderboardIndex) Record(_ context.Context, userID string, points int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.points[userID] = points
	return nil
}

func (i *LeaderboardIndex) Top(_ context.Context, n int) ([]app.RankedUser, error) {
	i.mu.RLock()
	ranked := make([]app.RankedUser, 0, len(i.points))
	for userID, points := range i.points {
		ranked = append(ranked, app.RankedUser{UserID: userID, Points: points})
	}
	i.mu.RUnlock()

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Points != ranked[b].Points {
			return ranked[a].Points > ranked[b].Points
		}
		return ranked[a].UserID < ranked[b].UserID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Rank is 1 + the number of users with strictly more points; a user the index
// has never seen ranks as if they had zero.
func (i *LeaderboardIndex) Rank(_ context.Context, userID string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	own := i.points[userID]
	rank := 1
	for other, points := range i.points {
		if other == userID {
			continue
		}
		if points > own {
			rank++
		}
	}
	return rank, nil
}
