package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finquiz-service/internal/domain"
	"finquiz-service/internal/quiz"
)

// Session modes.
const (
	ModeDaily  = "daily"
	ModeLevel  = "level"
	ModeBattle = "battle"
)

// DailyQuestionCount sizes the daily challenge and battle draws.
const DailyQuestionCount = 5

// LiveSession is one running quiz session or battle, owned by a single
// transport connection.
type LiveSession struct {
	ID        string
	UserID    string
	Mode      string
	LevelID   int
	StartedAt time.Time

	Engine *quiz.Engine // set for daily and level modes
	Battle *quiz.Battle // set for battle mode
}

// Stop tears down whichever machine the session runs.
func (s *LiveSession) Stop() {
	if s.Engine != nil {
		s.Engine.Stop()
	}
	if s.Battle != nil {
		s.Battle.Stop()
	}
}

// SessionRegistry tracks live sessions so teardown and liveness bookkeeping
// survive transport hiccups.
type SessionRegistry interface {
	Add(session *LiveSession)
	Get(id string) (*LiveSession, bool)
	Remove(id string)
}

// QuizSessionService draws questions and spins up session machines. All pool
// and size validation happens here, before any timer starts: a session that
// cannot be dealt never reaches the countdown.
type QuizSessionService struct {
	bank     *quiz.Bank
	clock    quiz.Clock
	cfg      quiz.Config
	sessions SessionRegistry
}

func NewQuizSessionService(bank *quiz.Bank, clock quiz.Clock, cfg quiz.Config, sessions SessionRegistry) *QuizSessionService {
	return &QuizSessionService{bank: bank, clock: clock, cfg: cfg, sessions: sessions}
}

// LevelPoolKey names the question pool backing a level.
func LevelPoolKey(levelID int) string {
	return fmt.Sprintf("level:%d", levelID)
}

// StartDaily deals the daily challenge for one user.
func (s *QuizSessionService) StartDaily(ctx context.Context, userID string) (*LiveSession, error) {
	questions, err := s.bank.Draw(ctx, ModeDaily, DailyQuestionCount)
	if err != nil {
		return nil, err
	}
	return s.startEngine(userID, ModeDaily, 0, questions), nil
}

// StartLevel deals a ladder level; the question count comes from the catalog.
func (s *QuizSessionService) StartLevel(ctx context.Context, userID string, levelID int) (*LiveSession, error) {
	def, ok := domain.LevelByID(levelID)
	if !ok {
		return nil, domain.ErrUnknownLevel
	}
	questions, err := s.bank.Draw(ctx, LevelPoolKey(levelID), def.QuestionCount)
	if err != nil {
		return nil, err
	}
	session := s.startEngine(userID, ModeLevel, levelID, questions)
	return session, nil
}

// StartBattle deals one shared sequence for a two-track local battle.
func (s *QuizSessionService) StartBattle(ctx context.Context, userID string) (*LiveSession, error) {
	questions, err := s.bank.Draw(ctx, ModeBattle, DailyQuestionCount)
	if err != nil {
		return nil, err
	}
	session := &LiveSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      ModeBattle,
		StartedAt: s.clock.Now(),
		Battle:    quiz.NewBattle(s.clock, s.cfg, questions),
	}
	s.sessions.Add(session)
	return session, nil
}

// Release drops a session from the registry; the caller stops the machines.
func (s *QuizSessionService) Release(session *LiveSession) {
	session.Stop()
	s.sessions.Remove(session.ID)
}

func (s *QuizSessionService) startEngine(userID, mode string, levelID int, questions []domain.Question) *LiveSession {
	session := &LiveSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		LevelID:   levelID,
		StartedAt: s.clock.Now(),
		Engine:    quiz.NewEngine(s.clock, s.cfg, questions),
	}
	s.sessions.Add(session)
	return session
}
