package quiz

import (
	"testing"
	"time"
)

func TestManualClockFiresDueTimersInOrder(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))

	var fired []string
	mc.Start(2*time.Second, func() { fired = append(fired, "slow") })
	mc.Start(time.Second, func() { fired = append(fired, "fast") })

	mc.Advance(2 * time.Second)

	want := []string{"fast", "slow", "fast"}
	if len(fired) != len(want) {
		t.Fatalf("expected %d firings, got %v", len(want), fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, fired)
		}
	}
	if got := mc.Now(); !got.Equal(time.Unix(2, 0)) {
		t.Fatalf("expected clock at +2s, got %v", got)
	}
}

func TestManualClockCancelStopsTicks(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))

	ticks := 0
	handle := mc.Start(time.Second, func() { ticks++ })

	mc.Advance(2 * time.Second)
	if ticks != 2 {
		t.Fatalf("expected 2 ticks, got %d", ticks)
	}

	handle.Cancel()
	handle.Cancel() // idempotent
	mc.Advance(5 * time.Second)
	if ticks != 2 {
		t.Fatalf("expected no ticks after cancel, got %d", ticks)
	}
}

func TestManualClockCallbackMayStartTimers(t *testing.T) {
	mc := NewManualClock(time.Unix(0, 0))

	nested := 0
	mc.Start(time.Second, func() {
		if nested == 0 {
			mc.Start(time.Second, func() { nested++ })
		}
	})

	mc.Advance(3 * time.Second)
	if nested == 0 {
		t.Fatalf("expected nested timer to fire")
	}
}

func TestWallClockCancelIsIdempotent(t *testing.T) {
	wc := WallClock{}
	got := make(chan struct{}, 1)
	handle := wc.Start(time.Millisecond, func() {
		select {
		case got <- struct{}{}:
		default:
		}
	})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("expected at least one tick")
	}

	handle.Cancel()
	handle.Cancel()
}
