package quiz

import (
	"errors"
	"testing"
	"time"

	"finquiz-service/internal/domain"
)

func testConfig() Config {
	return Config{
		CountdownTicks: 3,
		QuestionTime:   30 * time.Second,
		LockDelay:      time.Second,
		TickInterval:   time.Second,
	}
}

func makeQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:     string(rune('a' + i)),
			Prompt: "pick right",
			Options: []domain.Option{
				{ID: "o1", Text: "wrong"},
				{ID: "o2", Text: "right", Correct: true},
			},
		})
	}
	return questions
}

func TestSessionHappyPath(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), makeQuestions(2))

	var gotScore, gotTotal int
	completions := 0
	engine.OnComplete(func(score, total int) {
		completions++
		gotScore, gotTotal = score, total
	})

	engine.Start()
	if snap := engine.Snapshot(); snap.Phase != PhaseCountdown || snap.Countdown != 3 {
		t.Fatalf("expected countdown 3, got %+v", snap)
	}

	mc.Advance(3 * time.Second)
	snap := engine.Snapshot()
	if snap.Phase != PhaseActive || snap.QuestionIndex != 0 {
		t.Fatalf("expected first question active, got %+v", snap)
	}
	if snap.Question == nil || snap.Deadline.IsZero() {
		t.Fatalf("expected question and deadline in active snapshot, got %+v", snap)
	}

	if err := engine.Select("right"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap := engine.Snapshot(); snap.Phase != PhaseLocked || snap.Score != 1 {
		t.Fatalf("expected locked with score 1, got %+v", snap)
	}

	mc.Advance(time.Second)
	if snap := engine.Snapshot(); snap.Phase != PhaseActive || snap.QuestionIndex != 1 {
		t.Fatalf("expected second question, got %+v", snap)
	}

	if err := engine.Select("right"); err != nil {
		t.Fatalf("select: %v", err)
	}
	mc.Advance(time.Second)

	score, total, done := engine.Result()
	if !done || score != 2 || total != 2 {
		t.Fatalf("expected completed 2/2, got score=%d total=%d done=%v", score, total, done)
	}
	if completions != 1 || gotScore != 2 || gotTotal != 2 {
		t.Fatalf("expected one completion callback with 2/2, got count=%d %d/%d", completions, gotScore, gotTotal)
	}
}

func TestDeadlineExpiryCountsIncorrectAndAdvances(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), makeQuestions(5))
	engine.Start()

	mc.Advance(3 * time.Second) // countdown

	// Questions 1 and 2 answered correctly.
	for i := 0; i < 2; i++ {
		if err := engine.Select("right"); err != nil {
			t.Fatalf("select q%d: %v", i+1, err)
		}
		mc.Advance(time.Second)
	}

	snap := engine.Snapshot()
	if snap.QuestionIndex != 2 || snap.Phase != PhaseActive {
		t.Fatalf("expected question 3 active, got %+v", snap)
	}

	// Question 3 is never answered: the deadline elapses, it locks with no
	// selection and the engine advances on its own.
	mc.Advance(30 * time.Second)
	if snap := engine.Snapshot(); snap.Phase != PhaseLocked || snap.Selected != "" {
		t.Fatalf("expected unanswered lock, got %+v", snap)
	}
	mc.Advance(time.Second)

	snap = engine.Snapshot()
	if snap.QuestionIndex != 3 || snap.Phase != PhaseActive {
		t.Fatalf("expected auto-advance to question 4, got %+v", snap)
	}
	if snap.Score != 2 {
		t.Fatalf("expected score 2 after timeout on q3, got %d", snap.Score)
	}
}

func TestAnswerCompareIsTrimmedAndCaseSensitive(t *testing.T) {
	questions := []domain.Question{{
		ID:     "q1",
		Prompt: "how many",
		Options: []domain.Option{
			{ID: "o1", Text: " four ", Correct: true},
			{ID: "o2", Text: "five"},
		},
	}}

	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), questions)
	engine.Start()
	mc.Advance(3 * time.Second)

	if err := engine.Select("four"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap := engine.Snapshot(); snap.Score != 1 {
		t.Fatalf("expected trimmed match to score, got %+v", snap)
	}

	mc2 := NewManualClock(time.Unix(0, 0))
	engine2 := NewEngine(mc2, testConfig(), questions)
	engine2.Start()
	mc2.Advance(3 * time.Second)

	if err := engine2.Select("FOUR"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap := engine2.Snapshot(); snap.Score != 0 {
		t.Fatalf("expected case-sensitive mismatch, got %+v", snap)
	}
}

func TestSelectOutsideActiveIsIgnored(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), makeQuestions(1))
	engine.Start()

	// Countdown: input does nothing.
	if err := engine.Select("right"); err != nil {
		t.Fatalf("select during countdown: %v", err)
	}
	mc.Advance(3 * time.Second)

	if err := engine.Select("right"); err != nil {
		t.Fatalf("select: %v", err)
	}
	// Locked: a second tap must not double-score.
	if err := engine.Select("right"); err != nil {
		t.Fatalf("select during lock: %v", err)
	}
	mc.Advance(time.Second)

	score, total, done := engine.Result()
	if !done || score != 1 || total != 1 {
		t.Fatalf("expected 1/1 completed, got %d/%d done=%v", score, total, done)
	}

	if err := engine.Select("right"); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished after terminal state, got %v", err)
	}
}

func TestStopSuppressesPendingTicks(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), makeQuestions(2))
	engine.OnComplete(func(int, int) {
		t.Fatalf("stopped session must not complete")
	})
	engine.Start()
	mc.Advance(time.Second)

	engine.Stop()
	engine.Stop() // idempotent

	// Ticks keep coming from the clock's point of view; none may land.
	mc.Advance(2 * time.Minute)

	if _, _, done := engine.Result(); done {
		t.Fatalf("stopped session reported completed")
	}

	// The update stream is closed so consumers shut down.
	for {
		if _, ok := <-engine.Updates(); !ok {
			return
		}
	}
}

func TestUpdatesCarryCountdownThenQuestions(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))
	engine := NewEngine(mc, testConfig(), makeQuestions(1))
	engine.Start()
	mc.Advance(3 * time.Second)
	engine.Select("right")
	mc.Advance(time.Second)

	var phases []Phase
	for snap := range engine.Updates() {
		phases = append(phases, snap.Phase)
	}

	want := []Phase{PhaseCountdown, PhaseCountdown, PhaseCountdown, PhaseCountdown, PhaseActive, PhaseLocked, PhaseCompleted}
	if len(phases) != len(want) {
		t.Fatalf("expected %d snapshots, got %v", len(want), phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("expected phases %v, got %v", want, phases)
		}
	}
}
