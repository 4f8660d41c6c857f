// Package progression holds the pure level-completion and badge rules. It
// performs no IO; the reward ledger service applies it inside its atomic
// per-user update.
package progression

import (
	"math"

	"finquiz-service/internal/domain"
)

// PassPercent is the completion threshold: a level counts as completed when
// the rounded percentage reaches it.
const PassPercent = 75

// Input carries one finished session and the user's prior state for the level.
type Input struct {
	Level          domain.LevelDefinition
	Score          int
	TotalQuestions int
	// Prior is nil when the user has no record for the level yet. The caller
	// decides whether that means "synthesize" (level 1) or "not unlocked".
	Prior *domain.LevelRecord
}

// Outcome is the canonical result of applying the policy.
type Outcome struct {
	Percentage          int
	Completed           bool
	FirstTimeCompletion bool
	CoinsEarned         int
	NewBestScore        int
}

// Percentage computes the rounded completion percentage for a score.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(total)))
}

// Evaluate maps a finished session onto the canonical outcome.
//
// Coins are granted only on the transition from not-completed to completed;
// completion, once true, never reverts even if a later attempt scores lower,
// and the best score is monotonically non-decreasing.
func Evaluate(in Input) Outcome {
	percentage := Percentage(in.Score, in.TotalQuestions)
	completedNow := percentage >= PassPercent

	wasCompleted := false
	priorBest := 0
	if in.Prior != nil {
		wasCompleted = in.Prior.Completed
		priorBest = in.Prior.BestScore
	}

	firstTime := completedNow && !wasCompleted

	coins := 0
	if firstTime {
		coins = in.Score + in.Level.CoinBonus()
	}

	best := priorBest
	if in.Score > best {
		best = in.Score
	}

	return Outcome{
		Percentage:          percentage,
		Completed:           completedNow || wasCompleted,
		FirstTimeCompletion: firstTime,
		CoinsEarned:         coins,
		NewBestScore:        best,
	}
}
