package domain

import "errors"

var (
	// ErrPoolNotFound is returned when a question pool has no entries.
	ErrPoolNotFound = errors.New("question pool not found")
	// ErrInsufficientQuestions is returned when a draw asks for more questions than the pool holds.
	ErrInsufficientQuestions = errors.New("not enough questions in pool")
	// ErrInvalidScore is returned for a submission outside 0..totalQuestions.
	ErrInvalidScore = errors.New("score out of range")
	// ErrUserNotFound is returned when no ledger exists for the user.
	ErrUserNotFound = errors.New("user ledger not found")
	// ErrLevelNotUnlocked is returned when submitting a level the user has not unlocked.
	ErrLevelNotUnlocked = errors.New("level not unlocked")
	// ErrUnknownLevel is returned for a level id outside the catalog.
	ErrUnknownLevel = errors.New("unknown level")
	// ErrSessionFinished indicates input arrived after the session reached its terminal state.
	ErrSessionFinished = errors.New("session already finished")
)
