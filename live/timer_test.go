package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateRecorder collects published timer snapshots.
type stateRecorder struct {
	mu     sync.Mutex
	states []TimerState
}

func (r *stateRecorder) record(s TimerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) last() (TimerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return TimerState{}, false
	}
	return r.states[len(r.states)-1], true
}

func TestTimerStartPublishesFullSnapshot(t *testing.T) {
	rec := &stateRecorder{}
	timer := NewMatchTimer(rec.record)
	defer timer.Stop()

	timer.Start(150 * time.Second)

	last, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, int64(150000), last.DurationMs)
	assert.Equal(t, int64(150000), last.RemainingMs)
	assert.True(t, last.IsRunning)
}

func TestTimerPauseResumeReset(t *testing.T) {
	rec := &stateRecorder{}
	timer := NewMatchTimer(rec.record)
	defer timer.Stop()

	timer.Start(time.Minute)
	timer.Pause()

	snap := timer.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, int64(60000), snap.RemainingMs)

	timer.Resume()
	assert.True(t, timer.Snapshot().IsRunning)

	timer.Reset()
	snap = timer.Snapshot()
	assert.False(t, snap.IsRunning)
	assert.Equal(t, int64(60000), snap.RemainingMs)
	assert.Equal(t, int64(60000), snap.DurationMs)
}

func TestTimerCountsDownToZeroAndStops(t *testing.T) {
	rec := &stateRecorder{}
	timer := NewMatchTimer(rec.record)
	timer.tick = 5 * time.Millisecond
	defer timer.Stop()

	timer.Start(3 * timer.tick)

	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && !last.IsRunning && last.RemainingMs == 0
	}, time.Second, 5*time.Millisecond)
}

func TestTimerStartSupersedesRunningCountdown(t *testing.T) {
	rec := &stateRecorder{}
	timer := NewMatchTimer(rec.record)
	timer.tick = 5 * time.Millisecond
	defer timer.Stop()

	timer.Start(time.Hour)
	timer.Start(2 * timer.tick)

	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && !last.IsRunning && last.RemainingMs == 0
	}, time.Second, 5*time.Millisecond)

	// The superseded countdown must never reappear: once at zero the
	// state stays at zero.
	time.Sleep(5 * timer.tick)
	last, _ := rec.last()
	assert.Equal(t, int64(0), last.RemainingMs)
	assert.False(t, last.IsRunning)
}

func TestTimerResumeWithNothingRemainingStaysStopped(t *testing.T) {
	rec := &stateRecorder{}
	timer := NewMatchTimer(rec.record)
	defer timer.Stop()

	timer.Resume()

	last, ok := rec.last()
	require.True(t, ok)
	assert.False(t, last.IsRunning)
}
