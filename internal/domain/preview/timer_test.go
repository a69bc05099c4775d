package preview

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-gate/internal/platform/clock"
)

type countingPlayer struct {
	stops atomic.Int32
}

func (p *countingPlayer) Stop() { p.stops.Add(1) }

func newTimer(t *testing.T, ceiling int, opts ...Option) (*Timer, *clock.FakeClock, *countingPlayer) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC))
	player := &countingPlayer{}
	tm, err := New(ceiling, player, append([]Option{WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	return tm, clk, player
}

func tick(tm *Timer, clk *clock.FakeClock, n int) {
	for i := 0; i < n; i++ {
		clk.Advance(time.Second)
		tm.Tick()
	}
}

func TestNewRejectsNonPositiveCeiling(t *testing.T) {
	for _, c := range []int{0, -300} {
		_, err := New(c, nil)
		assert.ErrorIs(t, err, ErrInvalidCeiling)
	}
}

func TestTimerRestrictsAtCeiling(t *testing.T) {
	var notified atomic.Int32
	tm, clk, player := newTimer(t, 300, OnRestricted(func(s Session) {
		notified.Add(1)
		assert.Equal(t, 0, s.RemainingSeconds)
	}))
	require.NoError(t, tm.Start())

	tick(tm, clk, 299)
	assert.Equal(t, StatePlaying, tm.State())
	assert.Equal(t, 1, tm.Remaining())
	assert.Zero(t, player.stops.Load())

	tick(tm, clk, 1)
	assert.Equal(t, StateRestricted, tm.State())
	assert.Equal(t, 0, tm.Remaining())
	assert.EqualValues(t, 1, player.stops.Load())
	assert.EqualValues(t, 1, notified.Load())

	tick(tm, clk, 50)
	snap := tm.Snapshot()
	assert.Equal(t, 300, snap.WatchedSeconds)
	assert.Equal(t, StateRestricted, snap.State)
	assert.EqualValues(t, 1, player.stops.Load(), "player is stopped exactly once")
	assert.EqualValues(t, 1, notified.Load())

	select {
	case <-tm.Done():
	default:
		t.Fatal("done must be closed once restricted")
	}
}

func TestTimerPauseHaltsAccounting(t *testing.T) {
	tm, clk, _ := newTimer(t, 300)
	require.NoError(t, tm.Start())
	tick(tm, clk, 100)

	require.NoError(t, tm.Pause())
	tick(tm, clk, 500)
	clk.Advance(time.Hour)
	tm.Tick()
	assert.Equal(t, 100, tm.Snapshot().WatchedSeconds)
	assert.Equal(t, StatePaused, tm.State())

	require.NoError(t, tm.Resume())
	tick(tm, clk, 199)
	assert.Equal(t, StatePlaying, tm.State())
	tick(tm, clk, 1)
	assert.Equal(t, StateRestricted, tm.State())
}

func TestTimerPauseResumeKeepsFractions(t *testing.T) {
	tm, clk, _ := newTimer(t, 300)
	require.NoError(t, tm.Start())
	for i := 0; i < 10; i++ {
		clk.Advance(600 * time.Millisecond)
		require.NoError(t, tm.Pause())
		clk.Advance(10 * time.Second)
		require.NoError(t, tm.Resume())
	}
	tm.Tick()
	assert.Equal(t, 6, tm.Snapshot().WatchedSeconds)
}

func TestTimerMeasuresLateTicks(t *testing.T) {
	tm, clk, player := newTimer(t, 300)
	require.NoError(t, tm.Start())

	// a throttled tab delivers one tick after 45 seconds
	clk.Advance(45 * time.Second)
	tm.Tick()
	assert.Equal(t, 45, tm.Snapshot().WatchedSeconds)

	clk.Advance(10 * time.Minute)
	assert.Equal(t, StateRestricted, tm.Tick())
	assert.Equal(t, 300, tm.Snapshot().WatchedSeconds)
	assert.EqualValues(t, 1, player.stops.Load())
}

func TestTimerPauseAfterCeilingRestricts(t *testing.T) {
	tm, clk, player := newTimer(t, 10)
	require.NoError(t, tm.Start())
	clk.Advance(12 * time.Second)
	assert.ErrorIs(t, tm.Pause(), ErrRestricted)
	assert.Equal(t, StateRestricted, tm.State())
	assert.EqualValues(t, 1, player.stops.Load())
}

func TestTimerRestrictedRejectsPlay(t *testing.T) {
	tm, clk, _ := newTimer(t, 5)
	require.NoError(t, tm.Start())
	tick(tm, clk, 5)

	assert.ErrorIs(t, tm.Resume(), ErrRestricted)
	assert.ErrorIs(t, tm.Start(), ErrRestricted)
	assert.ErrorIs(t, tm.Pause(), ErrRestricted)
	tm.Stop()
	assert.Equal(t, StateRestricted, tm.State())
}

func TestTimerStopIsTerminal(t *testing.T) {
	tm, clk, player := newTimer(t, 300)
	require.NoError(t, tm.Start())
	tick(tm, clk, 30)
	tm.Stop()
	tm.Stop()

	assert.Equal(t, StateStopped, tm.State())
	assert.ErrorIs(t, tm.Start(), ErrStopped)
	assert.ErrorIs(t, tm.Resume(), ErrStopped)
	tick(tm, clk, 400)
	assert.Equal(t, 30, tm.Snapshot().WatchedSeconds)
	assert.Zero(t, player.stops.Load())
}

func TestTimerInvalidTransitions(t *testing.T) {
	tm, _, _ := newTimer(t, 300)
	assert.ErrorIs(t, tm.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, tm.Resume(), ErrInvalidTransition)
	require.NoError(t, tm.Start())
	assert.ErrorIs(t, tm.Start(), ErrInvalidTransition)
	assert.ErrorIs(t, tm.Resume(), ErrInvalidTransition)
}

func TestTimerRunRestricts(t *testing.T) {
	tm, clk, player := newTimer(t, 300)
	require.NoError(t, tm.Start())

	errc := make(chan error, 1)
	go func() { errc <- tm.Run(context.Background()) }()
	require.Eventually(t, func() bool { return clk.ActiveTickers() == 1 }, time.Second, time.Millisecond)

	clk.Advance(300 * time.Second)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after restriction")
	}
	assert.Equal(t, StateRestricted, tm.State())
	assert.EqualValues(t, 1, player.stops.Load())
	assert.Equal(t, 0, clk.ActiveTickers())
}

func TestTimerRunCancelStopsTickSource(t *testing.T) {
	tm, clk, _ := newTimer(t, 300)
	require.NoError(t, tm.Start())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- tm.Run(ctx) }()
	require.Eventually(t, func() bool { return clk.ActiveTickers() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, StateStopped, tm.State())
	assert.Equal(t, 0, clk.ActiveTickers())

	clk.Advance(time.Hour)
	tm.Tick()
	assert.Equal(t, 0, tm.Snapshot().WatchedSeconds)
}

func TestTimerStopSettlesSuspendedPlayback(t *testing.T) {
	var notified atomic.Int32
	tm, clk, player := newTimer(t, 10, OnRestricted(func(Session) { notified.Add(1) }))
	require.NoError(t, tm.Start())

	// no ticks while the tab was suspended
	clk.Advance(25 * time.Second)
	tm.Stop()

	s := tm.Snapshot()
	assert.Equal(t, StateRestricted, s.State)
	assert.Equal(t, 10, s.WatchedSeconds)
	assert.Equal(t, 0, s.RemainingSeconds)
	assert.EqualValues(t, 1, player.stops.Load())
	assert.EqualValues(t, 1, notified.Load())
	select {
	case <-tm.Done():
	default:
		t.Fatal("Done not closed")
	}

	tm.Stop()
	assert.Equal(t, StateRestricted, tm.State())
	assert.EqualValues(t, 1, player.stops.Load())
}

func TestTimerStopCreditsUntickedTime(t *testing.T) {
	tm, clk, player := newTimer(t, 300)
	require.NoError(t, tm.Start())

	clk.Advance(42*time.Second + 500*time.Millisecond)
	tm.Stop()

	assert.Equal(t, StateStopped, tm.State())
	assert.Equal(t, 42, tm.Snapshot().WatchedSeconds)
	assert.Zero(t, player.stops.Load())
}
