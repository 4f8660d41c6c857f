package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"finquiz-service/internal/domain"
	"finquiz-service/internal/progression"
)

// LedgerRepository abstracts how user ledgers are stored (in-memory, Postgres).
// Update must apply fn as one atomic read-modify-write of the user's document
// and return the post-update state; concurrent updates for the same user must
// serialize, never interleave.
type LedgerRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserLedger, error)
	Update(ctx context.Context, userID string, fn func(*domain.UserLedger) error) (*domain.UserLedger, error)
}

// RankedUser is one scored member of the leaderboard index.
type RankedUser struct {
	UserID string
	Points int
}

// LeaderboardIndex is the eventually consistent points ranking. Record is
// best-effort: losing an index write never loses ledger state.
type LeaderboardIndex interface {
	Record(ctx context.Context, userID string, points int) error
	Top(ctx context.Context, n int) ([]RankedUser, error)
	Rank(ctx context.Context, userID string) (int, error)
}

// RewardLedgerService turns reported quiz outcomes into durable coin, point
// and badge state. It recomputes every outcome server-side; nothing the client
// pre-computed is trusted.
type RewardLedgerService struct {
	ledgers LedgerRepository
	index   LeaderboardIndex
	now     func() time.Time
	log     *zap.Logger
}

func NewRewardLedgerService(ledgers LedgerRepository, index LeaderboardIndex, log *zap.Logger) *RewardLedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardLedgerService{
		ledgers: ledgers,
		index:   index,
		now:     time.Now,
		log:     log,
	}
}

// SubmitLevelCompletion applies the level progression policy to a reported
// (score, total) and persists the canonical outcome. Safe under duplicate or
// retried calls: completion is re-checked inside the atomic update, so coins
// are granted at most once per level no matter how often a result is resent.
func (s *RewardLedgerService) SubmitLevelCompletion(ctx context.Context, userID string, levelID, score, total int) (*domain.SubmissionResult, error) {
	def, ok := domain.LevelByID(levelID)
	if !ok {
		return nil, domain.ErrUnknownLevel
	}
	if score < 0 || total <= 0 || score > total {
		return nil, domain.ErrInvalidScore
	}

	var outcome progression.Outcome
	ledger, err := s.ledgers.Update(ctx, userID, func(l *domain.UserLedger) error {
		rec := l.Level(levelID)
		if rec == nil {
			if levelID != 1 {
				return domain.ErrLevelNotUnlocked
			}
			// Level 1 has no unlock precondition; synthesize its record.
			l.Levels = append(l.Levels, domain.LevelRecord{LevelID: 1})
			rec = l.Level(1)
		}

		outcome = progression.Evaluate(progression.Input{
			Level:          def,
			Score:          score,
			TotalQuestions: total,
			Prior:          rec,
		})

		rec.BestScore = outcome.NewBestScore
		if outcome.Completed && !rec.Completed {
			rec.Completed = true
			completedAt := s.now()
			rec.CompletedAt = &completedAt
		}

		l.Points += score
		l.Coins += outcome.CoinsEarned

		if outcome.FirstTimeCompletion {
			s.unlockNext(l, levelID)
		}
		s.checkBadges(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordIndex(ctx, ledger)

	return &domain.SubmissionResult{
		Completed:           outcome.Completed,
		Percentage:          outcome.Percentage,
		CoinsEarned:         outcome.CoinsEarned,
		FirstTimeCompletion: outcome.FirstTimeCompletion,
		Coins:               ledger.Coins,
		Points:              ledger.Points,
		Levels:              ledger.Levels,
	}, nil
}

// SubmitGenericReward adds coins and points for the modes that carry no level
// record (daily challenge, battle). No completion gating: the daily mode gates
// itself to once per calendar day on the client.
func (s *RewardLedgerService) SubmitGenericReward(ctx context.Context, userID string, coins int, quizType string, score int) (*domain.RewardResult, error) {
	if coins < 0 || score < 0 {
		return nil, domain.ErrInvalidScore
	}

	ledger, err := s.ledgers.Update(ctx, userID, func(l *domain.UserLedger) error {
		l.Coins += coins
		l.Points += score
		s.checkBadges(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordIndex(ctx, ledger)

	return &domain.RewardResult{
		Coins:    ledger.Coins,
		Points:   ledger.Points,
		QuizType: quizType,
		Score:    score,
	}, nil
}

// ScoreResult is the response of a direct leaderboard score submission.
type ScoreResult struct {
	Points int      `json:"points"`
	Rank   int      `json:"rank"`
	Badges []string `json:"badges"`
}

// SubmitScore adds points for an arbitrary quiz run and reports the caller's
// resulting rank and badge set.
func (s *RewardLedgerService) SubmitScore(ctx context.Context, userID string, score int, quizType string) (*ScoreResult, error) {
	if score < 0 {
		return nil, domain.ErrInvalidScore
	}
	_ = quizType // recorded by callers for display only

	ledger, err := s.ledgers.Update(ctx, userID, func(l *domain.UserLedger) error {
		l.Points += score
		s.checkBadges(l)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordIndex(ctx, ledger)

	rank, err := s.index.Rank(ctx, userID)
	if err != nil {
		s.log.Warn("rank lookup failed", zap.String("user", userID), zap.Error(err))
		rank = 0
	}

	return &ScoreResult{
		Points: ledger.Points,
		Rank:   rank,
		Badges: badgeNames(ledger),
	}, nil
}

// Ledger returns the caller's current ledger view.
func (s *RewardLedgerService) Ledger(ctx context.Context, userID string) (*domain.UserLedger, error) {
	return s.ledgers.Get(ctx, userID)
}

func (s *RewardLedgerService) unlockNext(l *domain.UserLedger, levelID int) {
	next := levelID + 1
	if _, ok := domain.LevelByID(next); !ok {
		return
	}
	if l.Level(next) == nil {
		l.Levels = append(l.Levels, domain.LevelRecord{LevelID: next})
	}
}

// checkBadges awards the highest newly crossed badge against the post-update
// point total. Awards are keyed by name, so re-checking never duplicates one.
func (s *RewardLedgerService) checkBadges(l *domain.UserLedger) {
	def, ok := progression.NextBadge(l.Points, l.HasBadge)
	if !ok {
		return
	}
	l.Badges = append(l.Badges, domain.Badge{
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		EarnedAt:    s.now(),
	})
}

func (s *RewardLedgerService) recordIndex(ctx context.Context, ledger *domain.UserLedger) {
	if err := s.index.Record(ctx, ledger.UserID, ledger.Points); err != nil {
		s.log.Warn("leaderboard index update failed", zap.String("user", ledger.UserID), zap.Error(err))
	}
}

func badgeNames(l *domain.UserLedger) []string {
	names := make([]string, 0, len(l.Badges))
	for _, b := range l.Badges {
		names = append(names, b.Name)
	}
	return names
}
