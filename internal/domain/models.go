package domain

import (
	"strings"
	"time"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
// Once drawn into a session a question is never mutated.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	Category string   `json:"category,omitempty"`
}

// CorrectText returns the text of the designated correct option.
func (q Question) CorrectText() string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.Text
		}
	}
	return ""
}

// Accepts reports whether the selected text matches the correct option.
// The compare is whitespace-trimmed and case-sensitive.
func (q Question) Accepts(selected string) bool {
	return strings.TrimSpace(selected) == strings.TrimSpace(q.CorrectText())
}

// QuestionPool is a named partition of the question catalog.
type QuestionPool struct {
	Key       string     `json:"key"`
	Questions []Question `json:"questions"`
}

// LevelDefinition describes one rung of the level ladder.
type LevelDefinition struct {
	ID            int `json:"id"`
	QuestionCount int `json:"questionCount"`
}

// CoinBonus is the first-time completion bonus for the level's difficulty tier.
func (d LevelDefinition) CoinBonus() int {
	switch {
	case d.ID <= 4:
		return 2
	case d.ID <= 8:
		return 5
	default:
		return 10
	}
}

// Levels is the static level catalog: twelve levels of five questions each.
var Levels = buildLevels(12, 5)

func buildLevels(count, questions int) []LevelDefinition {
	defs := make([]LevelDefinition, 0, count)
	for id := 1; id <= count; id++ {
		defs = append(defs, LevelDefinition{ID: id, QuestionCount: questions})
	}
	return defs
}

// LevelByID looks up a level definition in the static catalog.
func LevelByID(id int) (LevelDefinition, bool) {
	for _, def := range Levels {
		if def.ID == id {
			return def, true
		}
	}
	return LevelDefinition{}, false
}

// LevelRecord is the per-level entry of a user's ledger.
type LevelRecord struct {
	LevelID     int        `json:"levelId"`
	Completed   bool       `json:"completed"`
	BestScore   int        `json:"bestScore"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Badge is a named achievement. Once present in a ledger it is never removed.
type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// UserLedger is the durable per-user record of coins, points, badges and
// per-level history. It is mutated exclusively through the reward ledger
// service, one atomic read-modify-write at a time.
type UserLedger struct {
	UserID    string        `json:"userId"`
	Username  string        `json:"username"`
	Coins     int           `json:"coins"`
	Points    int           `json:"points"`
	Badges    []Badge       `json:"badges"`
	Levels    []LevelRecord `json:"quizLevels"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Level returns a pointer to the record for levelID, or nil if the level has
// not been unlocked for this user.
func (l *UserLedger) Level(levelID int) *LevelRecord {
	for i := range l.Levels {
		if l.Levels[i].LevelID == levelID {
			return &l.Levels[i]
		}
	}
	return nil
}

// HasBadge reports whether a badge with the given name is already recorded.
func (l *UserLedger) HasBadge(name string) bool {
	for _, b := range l.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// SubmissionResult is the canonical outcome of a level submission, recomputed
// server-side; clients reconcile their provisional numbers against it.
type SubmissionResult struct {
	Completed           bool          `json:"completed"`
	Percentage          int           `json:"percentage"`
	CoinsEarned         int           `json:"coinsEarned"`
	FirstTimeCompletion bool          `json:"firstTimeCompletion"`
	Coins               int           `json:"coins"`
	Points              int           `json:"points"`
	Levels              []LevelRecord `json:"quizLevels"`
}

// RewardResult reports the ledger state after a generic (daily/battle) reward.
type RewardResult struct {
	Coins    int    `json:"coins"`
	Points   int    `json:"points"`
	QuizType string `json:"quizType"`
	Score    int    `json:"score"`
}

// LeaderboardEntry is one ranked row of the points leaderboard.
type LeaderboardEntry struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Score    int      `json:"score"`
	Rank     int      `json:"rank"`
	Badges   []string `json:"badges"`
}
