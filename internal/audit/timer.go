package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Timer accumulates whole seconds of active session time. The tick
// path checks the paused flag before incrementing, so seconds spent
// paused are never counted no matter how many ticks fire meanwhile.
type Timer struct {
	mu      sync.Mutex
	elapsed int64
	paused  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewTimer() *Timer { return &Timer{} }

// Start launches the 1-second tick loop. The loop exits on Stop or
// when ctx is cancelled; a stopped timer keeps its final count.
func (t *Timer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.Tick()
			}
		}
	}()
}

// Tick adds one second unless paused. Exported so the elapsed policy
// is testable without waiting on a real ticker.
func (t *Timer) Tick() {
	t.mu.Lock()
	if !t.paused {
		t.elapsed++
	}
	t.mu.Unlock()
}

func (t *Timer) Pause() {
	t.mu.Lock()
	t.paused = true
	t.mu.Unlock()
}

func (t *Timer) Resume() {
	t.mu.Lock()
	t.paused = false
	t.mu.Unlock()
}

func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *Timer) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// SetElapsed seeds the counter when resuming a persisted session.
func (t *Timer) SetElapsed(sec int64) {
	t.mu.Lock()
	t.elapsed = sec
	t.mu.Unlock()
}

// Stop cancels the tick loop, waits for it to exit, and returns the
// final elapsed count. Safe to call on a timer that never started or
// already stopped.
func (t *Timer) Stop() int64 {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return t.Elapsed()
}

// FormatElapsed renders seconds as mm:ss. Minutes are unbounded rather
// than wrapped past 99.
func FormatElapsed(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// TimerRegistry owns the live timer of every in-progress session, so
// teardown is an explicit session-lifecycle step instead of being left
// to request lifetimes.
type TimerRegistry struct {
	base   context.Context
	mu     sync.Mutex
	timers map[string]*Timer
}

func NewTimerRegistry(base context.Context) *TimerRegistry {
	if base == nil {
		base = context.Background()
	}
	return &TimerRegistry{base: base, timers: map[string]*Timer{}}
}

// Start creates and starts a timer for the session, seeded with any
// previously persisted elapsed seconds. A prior timer for the same
// session is stopped first.
func (r *TimerRegistry) Start(sessionID string, elapsed int64) *Timer {
	r.mu.Lock()
	prev := r.timers[sessionID]
	t := NewTimer()
	t.SetElapsed(elapsed)
	r.timers[sessionID] = t
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	t.Start(r.base)
	return t
}

func (r *TimerRegistry) Get(sessionID string) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[sessionID]
	return t, ok
}

// Stop tears down the session's timer and returns its final count;
// (0, false) if no timer is registered.
func (r *TimerRegistry) Stop(sessionID string) (int64, bool) {
	r.mu.Lock()
	t, ok := r.timers[sessionID]
	delete(r.timers, sessionID)
	r.mu.Unlock()
	if !ok {
		return 0, false
	}
	return t.Stop(), true
}

// StopAll is the shutdown path: no dangling tickers survive the
// process.
func (r *TimerRegistry) StopAll() {
	r.mu.Lock()
	timers := r.timers
	r.timers = map[string]*Timer{}
	r.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}
