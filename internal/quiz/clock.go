package quiz

import (
	"sort"
	"sync"
	"time"
)

// Handle controls a running periodic tick source. Cancel is idempotent; after
// Cancel returns, the callback fires no more. Callers that can observe a tick
// racing Cancel (anything driven by WallClock) must additionally guard with a
// generation check, as the session engine does.
type Handle interface {
	Cancel()
}

// Clock is the time source for everything that counts down. Injecting it lets
// tests advance virtual time deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
	Start(interval time.Duration, fn func()) Handle
}

// WallClock delivers real ticks from a time.Ticker.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) Start(interval time.Duration, fn func()) Handle {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	return &wallHandle{ticker: ticker, done: done}
}

type wallHandle struct {
	ticker *time.Ticker
	once   sync.Once
	done   chan struct{}
}

func (h *wallHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// ManualClock is a virtual clock for tests. Advance moves time forward and
// fires due timers synchronously, in time order, on the calling goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock     *ManualClock
	interval  time.Duration
	nextFire  time.Time
	fn        func()
	cancelled bool
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Start(interval time.Duration, fn func()) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{
		clock:    c,
		interval: interval,
		nextFire: c.now.Add(interval),
		fn:       fn,
	}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Cancel() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.cancelled = true
}

// Advance moves the clock forward by d, firing every due timer at its exact
// fire time. Callbacks run outside the clock lock so they may start or cancel
// timers.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.cancelled || t.nextFire.After(target) {
				continue
			}
			if next == nil || t.nextFire.Before(next.nextFire) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.compact()
			c.mu.Unlock()
			return
		}
		c.now = next.nextFire
		next.nextFire = next.nextFire.Add(next.interval)
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// compact drops cancelled timers so long-running clocks do not accumulate them.
func (c *ManualClock) compact() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.Slice(c.timers, func(i, j int) bool { return c.timers[i].nextFire.Before(c.timers[j].nextFire) })
}
