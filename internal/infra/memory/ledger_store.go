package memory

import (
	"context"
	"sync"
	"time"

	"finquiz-service/internal/domain"
)

// LedgerStore is an in-memory implementation of app.LedgerRepository.
// Updates for one user serialize on the store lock, so the read-modify-write
// contract holds; a failed update leaves the stored document untouched.
type LedgerStore struct {
	mu      sync.Mutex
	ledgers map[string]*domain.UserLedger
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		ledgers: make(map[string]*domain.UserLedger),
	}
}

// Create registers a fresh ledger; account creation is external to the
// reward subsystem, so this is used by seeding and tests.
func (s *LedgerStore) Create(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledgers[userID]; ok {
		return
	}
	s.ledgers[userID] = &domain.UserLedger{
		UserID:    userID,
		Username:  username,
		UpdatedAt: time.Now(),
	}
}

func (s *LedgerStore) Get(_ context.Context, userID string) (*domain.UserLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneLedger(ledger), nil
}

func (s *LedgerStore) Update(_ context.Context, userID string, fn func(*domain.UserLedger) error) (*domain.UserLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	// Mutate a clone so a failing fn cannot leave a half-applied document.
	next := cloneLedger(ledger)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	s.ledgers[userID] = next
	return cloneLedger(next), nil
}

func cloneLedger(l *domain.UserLedger) *domain.UserLedger {
	out := *l
	out.Badges = append([]domain.Badge(nil), l.Badges...)
	out.Levels = append([]domain.LevelRecord(nil), l.Levels...)
	return &out
}
