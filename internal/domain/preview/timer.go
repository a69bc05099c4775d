// Package preview enforces the time-boxed preview window on gated playback.
//
// A Timer accumulates watched time for one playback session against a
// monotonic clock. Once the configured ceiling is reached it moves to
// StateRestricted, force-stops the player and refuses further play commands.
// Restricted is terminal for the session; only a brand-new Timer can play
// again. Timers are client-side state: two tabs hold two timers, which is
// why the server keeps its own ledger (see internal/infra/watchtime).
package preview

import (
	"context"
	"errors"
	"sync"
	"time"

	"content-gate/internal/platform/clock"
)

type State string

const (
	StateIdle       State = "idle"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateStopped    State = "stopped"
	StateRestricted State = "restricted"
)

// DefaultCeilingSeconds is the preview allowance when none is configured.
const DefaultCeilingSeconds = 300

var (
	ErrInvalidCeiling    = errors.New("preview: ceiling must be positive")
	ErrInvalidTransition = errors.New("preview: invalid state transition")
	ErrRestricted        = errors.New("preview: playback restricted")
	ErrStopped           = errors.New("preview: session stopped")
)

// Player is the media element under control. Stop is called exactly once,
// while the timer holds its lock, when the ceiling is reached; it must not
// call back into the Timer.
type Player interface {
	Stop()
}

// Session is a point-in-time view of a Timer.
type Session struct {
	StartedAt        time.Time `json:"started_at"`
	WatchedSeconds   int       `json:"watched_seconds"`
	CeilingSeconds   int       `json:"ceiling_seconds"`
	RemainingSeconds int       `json:"remaining_seconds"`
	State            State     `json:"state"`
}

type Timer struct {
	mu           sync.Mutex
	clock        clock.Clock
	player       Player
	tickEvery    time.Duration
	onRestricted func(Session)

	ceiling      int
	state        State
	startedAt    time.Time
	played       time.Duration // closed playing segments
	segmentStart time.Time
	watched      int
	done         chan struct{}
}

type Option func(*Timer)

func WithClock(c clock.Clock) Option {
	return func(t *Timer) { t.clock = c }
}

// WithTickInterval sets how often Run reconciles watched time.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tickEvery = d
		}
	}
}

// OnRestricted registers a callback invoked once, outside the lock, after
// the timer enters StateRestricted.
func OnRestricted(fn func(Session)) Option {
	return func(t *Timer) { t.onRestricted = fn }
}

func New(ceilingSeconds int, player Player, opts ...Option) (*Timer, error) {
	if ceilingSeconds <= 0 {
		return nil, ErrInvalidCeiling
	}
	t := &Timer{
		clock:     clock.Real(),
		player:    player,
		tickEvery: time.Second,
		ceiling:   ceilingSeconds,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return t.transitionErr()
	}
	now := t.clock.Now()
	t.startedAt = now
	t.segmentStart = now
	t.state = StatePlaying
	return nil
}

// Tick reconciles watched time with the clock. Elapsed playing time is
// measured, not counted, so late or dropped ticks never under-count.
func (t *Timer) Tick() State {
	t.mu.Lock()
	fired := t.reconcile()
	state := t.state
	t.mu.Unlock()
	if fired {
		t.notifyRestricted()
	}
	return state
}

func (t *Timer) Pause() error {
	t.mu.Lock()
	if t.state != StatePlaying {
		err := t.transitionErr()
		t.mu.Unlock()
		return err
	}
	if t.reconcile() {
		t.mu.Unlock()
		t.notifyRestricted()
		return ErrRestricted
	}
	t.played += t.clock.Now().Sub(t.segmentStart)
	t.state = StatePaused
	t.mu.Unlock()
	return nil
}

// Resume continues from the preserved watched time; nothing is given back.
func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePaused {
		return t.transitionErr()
	}
	t.segmentStart = t.clock.Now()
	t.state = StatePlaying
	return nil
}

// Stop ends the session and cancels the tick source. Playing time up to the
// stop is settled first, so a session that crossed the ceiling without a
// tick ends Restricted. A restricted timer stays restricted. Stop is
// idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	switch t.state {
	case StateStopped, StateRestricted:
		t.mu.Unlock()
		return
	case StatePlaying:
		if t.reconcile() {
			t.mu.Unlock()
			t.notifyRestricted()
			return
		}
		t.played += t.clock.Now().Sub(t.segmentStart)
	}
	t.state = StateStopped
	close(t.done)
	t.mu.Unlock()
}

// Run drives Tick from the clock until ctx is cancelled, the timer is stopped
// or it becomes restricted. Cancelling ctx stops the timer.
func (t *Timer) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.done:
			return nil
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Done is closed when the timer is stopped or restricted.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ceiling - t.watched
}

func (t *Timer) Snapshot() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) snapshotLocked() Session {
	return Session{
		StartedAt:        t.startedAt,
		WatchedSeconds:   t.watched,
		CeilingSeconds:   t.ceiling,
		RemainingSeconds: t.ceiling - t.watched,
		State:            t.state,
	}
}

// reconcile credits whole seconds of playing time and restricts the session
// at the ceiling. It reports whether this call caused the restriction.
func (t *Timer) reconcile() bool {
	if t.state != StatePlaying {
		return false
	}
	elapsed := t.played + t.clock.Now().Sub(t.segmentStart)
	watched := int(elapsed / time.Second)
	if watched > t.watched {
		t.watched = watched
	}
	if t.watched < t.ceiling {
		return false
	}
	t.watched = t.ceiling
	t.state = StateRestricted
	if t.player != nil {
		t.player.Stop()
	}
	close(t.done)
	return true
}

func (t *Timer) notifyRestricted() {
	if t.onRestricted == nil {
		return
	}
	t.onRestricted(t.Snapshot())
}

func (t *Timer) transitionErr() error {
	switch t.state {
	case StateRestricted:
		return ErrRestricted
	case StateStopped:
		return ErrStopped
	}
	return ErrInvalidTransition
}
