package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"finquiz-service/internal/domain"
)

// ledgerRow is the table shape for user_ledgers. Badges and level history are
// kept as JSONB because they are always read and written as a unit.
type ledgerRow struct {
	bun.BaseModel `bun:"table:user_ledgers"`

	UserID    string               `bun:"user_id,pk"`
	Username  string               `bun:"username,notnull"`
	Coins     int                  `bun:"coins,notnull,default:0"`
	Points    int                  `bun:"points,notnull,default:0"`
	Badges    []domain.Badge       `bun:"badges,type:jsonb"`
	Levels    []domain.LevelRecord `bun:"levels,type:jsonb"`
	UpdatedAt time.Time            `bun:"updated_at,notnull"`
}

func (r *ledgerRow) toDomain() *domain.UserLedger {
	return &domain.UserLedger{
		UserID:    r.UserID,
		Username:  r.Username,
		Coins:     r.Coins,
		Points:    r.Points,
		Badges:    r.Badges,
		Levels:    r.Levels,
		UpdatedAt: r.UpdatedAt,
	}
}

func rowFromDomain(ledger *domain.UserLedger) *ledgerRow {
	return &ledgerRow{
		UserID:    ledger.UserID,
		Username:  ledger.Username,
		Coins:     ledger.Coins,
		Points:    ledger.Points,
		Badges:    ledger.Badges,
		Levels:    ledger.Levels,
		UpdatedAt: ledger.UpdatedAt,
	}
}

// LedgerStore persists user ledgers in Postgres. Update runs the mutation
// inside a transaction with the row locked, so concurrent submissions for the
// same user serialize instead of losing writes.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Get(ctx context.Context, userID string) (*domain.UserLedger, error) {
	row := new(ledgerRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return row.toDomain(), nil
}

func (s *LedgerStore) Update(ctx context.Context, userID string, fn func(*domain.UserLedger) error) (*domain.UserLedger, error) {
	var updated *domain.UserLedger
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(ledgerRow)
		err := tx.NewSelect().Model(row).Where("user_id = ?", userID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock ledger: %w", err)
		}

		ledger := row.toDomain()
		if err := fn(ledger); err != nil {
			return err
		}
		ledger.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().Model(rowFromDomain(ledger)).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("store ledger: %w", err)
		}
		updated = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Create seeds a fresh ledger for a new user. Existing rows are left alone.
func (s *LedgerStore) Create(ctx context.Context, userID, username string) error {
	row := &ledgerRow{
		UserID:    userID,
		Username:  username,
		Badges:    []domain.Badge{},
		Levels:    []domain.LevelRecord{},
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(row).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	return nil
}
