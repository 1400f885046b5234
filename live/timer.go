package live

import (
	"sync"
	"time"
)

// MatchTimer is the server-owned countdown for one field (or a whole
// tournament when no field is involved). Every command publishes a full
// TimerState snapshot; connected displays resync to it and only count
// down locally in between.
//
// A generation counter guards the ticking goroutine: each command bumps
// it, so a superseded tick loop sees a stale generation and exits. Two
// loops never run for the same timer.
type MatchTimer struct {
	mu        sync.Mutex
	duration  time.Duration
	remaining time.Duration
	running   bool
	gen       uint64

	tick    time.Duration
	publish func(TimerState)
}

func NewMatchTimer(publish func(TimerState)) *MatchTimer {
	return &MatchTimer{
		tick:    time.Second,
		publish: publish,
	}
}

// Start begins a fresh countdown from the given duration, superseding
// any countdown in progress.
func (t *MatchTimer) Start(duration time.Duration) {
	t.mu.Lock()
	t.gen++
	t.duration = duration
	t.remaining = duration
	t.running = duration > 0
	gen := t.gen
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if snap.IsRunning {
		go t.run(gen)
	}
	t.publish(snap)
}

// Resume continues a paused countdown from its current remaining time.
func (t *MatchTimer) Resume() {
	t.mu.Lock()
	t.gen++
	t.running = t.remaining > 0
	gen := t.gen
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if snap.IsRunning {
		go t.run(gen)
	}
	t.publish(snap)
}

// Pause freezes the countdown at its current remaining time.
func (t *MatchTimer) Pause() {
	t.mu.Lock()
	t.gen++
	t.running = false
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(snap)
}

// Reset stops the countdown and restores the full duration.
func (t *MatchTimer) Reset() {
	t.mu.Lock()
	t.gen++
	t.running = false
	t.remaining = t.duration
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(snap)
}

// Stop halts the timer without publishing, for teardown.
func (t *MatchTimer) Stop() {
	t.mu.Lock()
	t.gen++
	t.running = false
	t.mu.Unlock()
}

// Snapshot returns the current authoritative state.
func (t *MatchTimer) Snapshot() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *MatchTimer) snapshotLocked() TimerState {
	return TimerState{
		DurationMs:  t.duration.Milliseconds(),
		RemainingMs: t.remaining.Milliseconds(),
		IsRunning:   t.running,
	}
}

func (t *MatchTimer) run(gen uint64) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		if t.gen != gen || !t.running {
			t.mu.Unlock()
			return
		}
		t.remaining -= t.tick
		if t.remaining <= 0 {
			t.remaining = 0
			t.running = false
		}
		snap := t.snapshotLocked()
		done := !t.running
		t.mu.Unlock()

		t.publish(snap)
		if done {
			return
		}
	}
}
