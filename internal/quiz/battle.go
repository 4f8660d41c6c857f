package quiz

import (
	"sync"

	"finquiz-service/internal/domain"
)

// Track identifies one side of a head-to-head battle.
type Track string

const (
	TrackA Track = "A"
	TrackB Track = "B"
)

// Winner is the joint outcome of a battle.
type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "tie"
)

// BattleResult is computed exactly once, after both tracks complete.
type BattleResult struct {
	ScoreA int    `json:"scoreA"`
	ScoreB int    `json:"scoreB"`
	Total  int    `json:"total"`
	Winner Winner `json:"winner"`
}

// PhaseWaiting is the display state of a track that finished before its
// opponent; it is not an engine phase, the coordinator derives it.
const PhaseWaiting Phase = "waiting"

// Battle composes two independent session engines over the same drawn
// question sequence. Each track deals its own copy so the cursors can never
// share state, and each runs its own clock-driven deadlines. Finalization is
// a barrier: the joint result exists only once both tracks complete.
type Battle struct {
	mu     sync.Mutex
	a, b   *Engine
	doneA  bool
	doneB  bool
	scoreA int
	scoreB int
	total  int
	result chan BattleResult
}

func NewBattle(clock Clock, cfg Config, questions []domain.Question) *Battle {
	b := &Battle{
		total:  len(questions),
		result: make(chan BattleResult, 1),
	}
	b.a = NewEngine(clock, cfg, CloneQuestions(questions))
	b.b = NewEngine(clock, cfg, CloneQuestions(questions))
	b.a.OnComplete(func(score, _ int) { b.trackDone(TrackA, score) })
	b.b.OnComplete(func(score, _ int) { b.trackDone(TrackB, score) })
	return b
}

// Start launches both tracks.
func (b *Battle) Start() {
	b.a.Start()
	b.b.Start()
}

// Engine returns the engine driving the given track.
func (b *Battle) Engine(track Track) *Engine {
	if track == TrackB {
		return b.b
	}
	return b.a
}

// Select forwards an answer to the given track.
func (b *Battle) Select(track Track, option string) error {
	return b.Engine(track).Select(option)
}

// TrackPhase reports the display phase for a track: a completed track shows
// waiting until the barrier resolves.
func (b *Battle) TrackPhase(track Track) Phase {
	snap := b.Engine(track).Snapshot()
	if snap.Phase != PhaseCompleted {
		return snap.Phase
	}
	b.mu.Lock()
	resolved := b.doneA && b.doneB
	b.mu.Unlock()
	if !resolved {
		return PhaseWaiting
	}
	return PhaseCompleted
}

// Result delivers the joint result once; the channel is closed after it.
func (b *Battle) Result() <-chan BattleResult {
	return b.result
}

// Stop tears down both tracks. A battle stopped before the barrier resolves
// never produces a result.
func (b *Battle) Stop() {
	b.a.Stop()
	b.b.Stop()
}

func (b *Battle) trackDone(track Track, score int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch track {
	case TrackA:
		if b.doneA {
			return
		}
		b.doneA = true
		b.scoreA = score
	case TrackB:
		if b.doneB {
			return
		}
		b.doneB = true
		b.scoreB = score
	}

	// Both final scores are held here even if one track's view already moved
	// on to waiting; the barrier releases only now.
	if !(b.doneA && b.doneB) {
		return
	}

	winner := WinnerTie
	if b.scoreA > b.scoreB {
		winner = WinnerA
	} else if b.scoreB > b.scoreA {
		winner = WinnerB
	}
	b.result <- BattleResult{ScoreA: b.scoreA, ScoreB: b.scoreB, Total: b.total, Winner: winner}
	close(b.result)
}
