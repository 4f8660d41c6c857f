package quiz

import (
	"sync"
	"time"

	"finquiz-service/internal/domain"
)

// Phase is the session state machine phase.
type Phase string

const (
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
	PhaseLocked    Phase = "locked"
	PhaseCompleted Phase = "completed"
)

// Config holds the session timing knobs.
type Config struct {
	CountdownTicks int           // pre-roll ticks before the first question
	QuestionTime   time.Duration // per-question deadline
	LockDelay      time.Duration // how long a locked answer stays on screen
	TickInterval   time.Duration // cadence of the driving clock
}

func (c Config) withDefaults() Config {
	if c.CountdownTicks <= 0 {
		c.CountdownTicks = 3
	}
	if c.QuestionTime <= 0 {
		c.QuestionTime = 30 * time.Second
	}
	if c.LockDelay <= 0 {
		c.LockDelay = time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	return c
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	Phase         Phase            `json:"phase"`
	Countdown     int              `json:"countdown,omitempty"`
	QuestionIndex int              `json:"questionIndex"`
	Question      *domain.Question `json:"question,omitempty"`
	Selected      string           `json:"selected,omitempty"`
	Deadline      time.Time        `json:"deadline,omitempty"`
	Score         int              `json:"score"`
	Total         int              `json:"total"`
}

// Engine drives one ordered sequence of questions through
// countdown -> active -> locked -> (advance | completed).
//
// All transitions are serialized by the engine's mutex, so a clock tick and a
// user selection can never interleave mid-transition. Ticks carry the timer
// generation they were armed under; Stop bumps the generation, which drops
// ticks already queued against a torn-down session.
type Engine struct {
	mu        sync.Mutex
	clock     Clock
	cfg       Config
	questions []domain.Question

	phase     Phase
	countdown int
	index     int
	selected  string
	answered  bool
	score     int
	deadline  time.Time
	lockUntil time.Time

	gen      uint64
	handle   Handle
	started  bool
	finished bool
	closed   bool
	updates  chan Snapshot

	onComplete   func(score, total int)
	completeFire func()
}

func NewEngine(clock Clock, cfg Config, questions []domain.Question) *Engine {
	return &Engine{
		clock:     clock,
		cfg:       cfg.withDefaults(),
		questions: questions,
		phase:     PhaseCountdown,
		updates:   make(chan Snapshot, 16),
	}
}

// OnComplete registers the terminal callback; it receives (score, total)
// exactly once, after the engine enters the completed phase. Must be set
// before Start.
func (e *Engine) OnComplete(fn func(score, total int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// Updates returns the snapshot stream. The channel is closed when the session
// completes or is stopped; slow consumers see the latest snapshot, not a backlog.
func (e *Engine) Updates() <-chan Snapshot {
	return e.updates
}

// Start enters the countdown and arms the driving tick.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.finished {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.phase = PhaseCountdown
	e.countdown = e.cfg.CountdownTicks
	e.broadcastLocked()

	e.gen++
	gen := e.gen
	e.handle = e.clock.Start(e.cfg.TickInterval, func() { e.tick(gen) })
	e.mu.Unlock()
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.finished {
		e.mu.Unlock()
		return
	}

	switch e.phase {
	case PhaseCountdown:
		e.countdown--
		if e.countdown > 0 {
			e.broadcastLocked()
			break
		}
		// Terminal "start" tick, then straight into the first question.
		e.countdown = 0
		e.broadcastLocked()
		e.enterActiveLocked(0)
	case PhaseActive:
		if !e.clock.Now().Before(e.deadline) {
			// Deadline elapsed: locked with no selection, counts as incorrect.
			e.lockAnswerLocked("")
		}
	case PhaseLocked:
		if !e.clock.Now().Before(e.lockUntil) {
			e.advanceLocked()
		}
	}

	fire := e.completeFire
	e.completeFire = nil
	e.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// Select records the user's option for the active question. Input after the
// terminal state reports ErrSessionFinished; input outside the active phase
// (double taps during the lock delay, clicks during countdown) is ignored.
func (e *Engine) Select(option string) error {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return domain.ErrSessionFinished
	}
	if e.phase != PhaseActive {
		e.mu.Unlock()
		return nil
	}
	e.lockAnswerLocked(option)

	fire := e.completeFire
	e.completeFire = nil
	e.mu.Unlock()

	if fire != nil {
		fire()
	}
	return nil
}

func (e *Engine) lockAnswerLocked(option string) {
	e.phase = PhaseLocked
	e.selected = option
	if option != "" && !e.answered && e.questions[e.index].Accepts(option) {
		e.score++
	}
	// One scoring decision per question, whatever else happens before advance.
	e.answered = true
	e.lockUntil = e.clock.Now().Add(e.cfg.LockDelay)
	e.broadcastLocked()
}

func (e *Engine) advanceLocked() {
	if e.index+1 < len(e.questions) {
		e.enterActiveLocked(e.index + 1)
		return
	}
	e.completeLocked()
}

func (e *Engine) enterActiveLocked(i int) {
	e.phase = PhaseActive
	e.index = i
	e.selected = ""
	e.answered = false
	e.deadline = e.clock.Now().Add(e.cfg.QuestionTime)
	e.broadcastLocked()
}

func (e *Engine) completeLocked() {
	e.phase = PhaseCompleted
	e.finished = true
	e.gen++
	if e.handle != nil {
		e.handle.Cancel()
		e.handle = nil
	}
	e.broadcastLocked()
	if !e.closed {
		close(e.updates)
		e.closed = true
	}
	if e.onComplete != nil {
		score, total := e.score, len(e.questions)
		fn := e.onComplete
		// Deferred past the mutex so the callback may re-enter the engine.
		e.completeFire = func() { fn(score, total) }
	}
}

// Stop tears the session down: cancels the tick, suppresses any in-flight
// ticks and closes the update stream. Idempotent; a stopped session never
// reaches the completed phase and never fires OnComplete.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.handle != nil {
		e.handle.Cancel()
		e.handle = nil
	}
	if !e.finished {
		e.finished = true
		if !e.closed {
			close(e.updates)
			e.closed = true
		}
	}
}

// Result returns the frozen score once the session has completed.
func (e *Engine) Result() (score, total int, completed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score, len(e.questions), e.phase == PhaseCompleted
}

// Snapshot returns the current view of the session.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:         e.phase,
		Countdown:     e.countdown,
		QuestionIndex: e.index,
		Selected:      e.selected,
		Score:         e.score,
		Total:         len(e.questions),
	}
	if e.phase == PhaseActive || e.phase == PhaseLocked {
		q := e.questions[e.index]
		snap.Question = &q
		snap.Deadline = e.deadline
	}
	return snap
}

func (e *Engine) broadcastLocked() {
	if e.closed {
		return
	}
	snap := e.snapshotLocked()
	select {
	case e.updates <- snap:
	default:
		// Drop the stale snapshot so a slow reader never blocks a transition.
		select {
		case <-e.updates:
		default:
		}
		e.updates <- snap
	}
}
