package app

import (
	"context"

	"finquiz-service/internal/domain"
)

// LeaderboardAggregator ranks users by cumulative points. Reads are eventually
// consistent with ledger submissions; there is no transactional coupling.
type LeaderboardAggregator struct {
	ledgers LedgerRepository
	index   LeaderboardIndex
}

func NewLeaderboardAggregator(ledgers LedgerRepository, index LeaderboardIndex) *LeaderboardAggregator {
	return &LeaderboardAggregator{ledgers: ledgers, index: index}
}

// TopN returns the n highest-point users in descending order, ties broken by
// user id so the order is stable. Every strictly higher scored user precedes a
// row, so ranks can be derived from the returned prefix alone.
func (a *LeaderboardAggregator) TopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	ranked, err := a.index.Top(ctx, n)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, ru := range ranked {
		entry := domain.LeaderboardEntry{
			UserID: ru.UserID,
			Score:  ru.Points,
			Rank:   i + 1,
		}
		if i > 0 && ranked[i-1].Points == ru.Points {
			entry.Rank = entries[i-1].Rank
		}
		a.decorate(ctx, &entry)
		entries = append(entries, entry)
	}
	return entries, nil
}

// RankOf is 1 + the number of users with strictly more points.
func (a *LeaderboardAggregator) RankOf(ctx context.Context, userID string) (int, error) {
	return a.index.Rank(ctx, userID)
}

// UserEntry builds the caller's own ranked row, for authenticated leaderboard
// requests.
func (a *LeaderboardAggregator) UserEntry(ctx context.Context, userID string) (*domain.LeaderboardEntry, error) {
	ledger, err := a.ledgers.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := a.index.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.LeaderboardEntry{
		UserID:   ledger.UserID,
		Username: ledger.Username,
		Score:    ledger.Points,
		Rank:     rank,
		Badges:   badgeIcons(ledger),
	}, nil
}

func badgeIcons(l *domain.UserLedger) []string {
	icons := make([]string, 0, len(l.Badges))
	for _, b := range l.Badges {
		icons = append(icons, b.Icon)
	}
	return icons
}

// decorate fills username and badge icons from the ledger; a missing ledger
// (index ahead of a deleted account) leaves the bare row rather than failing
// the whole board.
func (a *LeaderboardAggregator) decorate(ctx context.Context, entry *domain.LeaderboardEntry) {
	ledger, err := a.ledgers.Get(ctx, entry.UserID)
	if err != nil {
		return
	}
	entry.Username = ledger.Username
	entry.Badges = badgeIcons(ledger)
}
