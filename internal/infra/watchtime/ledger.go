// Package watchtime is the server-side counterpart of the client preview
// timer. It accumulates confirmed watch time per (user, video) in redis, so
// restarting the player, reloading the page or opening a second tab all draw
// from the same allowance.
package watchtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"content-gate/internal/platform/clock"
)

var (
	ErrUnknownSession = errors.New("watchtime: no preview session")
	ErrInvalidReport  = errors.New("watchtime: reported seconds must not be negative")
	ErrContention     = errors.New("watchtime: too much contention on session")
)

const (
	fieldWatched = "watched"
	fieldLast    = "last_ms"
	maxRetries   = 5
)

// Status is the server view of a preview allowance.
type Status struct {
	WatchedSeconds   int  `json:"watched_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
	CeilingSeconds   int  `json:"ceiling_seconds"`
	Restricted       bool `json:"restricted"`
}

type Ledger struct {
	client  *redis.Client
	ceiling int
	ttl     time.Duration
	slack   time.Duration
	clock   clock.Clock
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithTTL sets how long an allowance is remembered after the last report.
func WithTTL(d time.Duration) Option {
	return func(l *Ledger) { l.ttl = d }
}

func NewLedger(client *redis.Client, ceilingSeconds int, opts ...Option) *Ledger {
	l := &Ledger{
		client:  client,
		ceiling: ceilingSeconds,
		ttl:     30 * 24 * time.Hour,
		slack:   time.Second,
		clock:   clock.Real(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(userID, videoID string) string {
	return fmt.Sprintf("preview:watch:%s:%s", userID, videoID)
}

// Open starts (or rejoins) the allowance for userID on videoID. Watched time
// already recorded is kept.
func (l *Ledger) Open(ctx context.Context, userID, videoID string) (Status, error) {
	k := key(userID, videoID)
	nowMs := l.clock.Now().UnixMilli()
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, k, fieldWatched, 0)
		pipe.HSet(ctx, k, fieldLast, nowMs)
		pipe.Expire(ctx, k, l.ttl)
		return nil
	})
	if err != nil {
		return Status{}, fmt.Errorf("watchtime: open session: %w", err)
	}
	return l.Status(ctx, userID, videoID)
}

// Confirm credits reported seconds of playback. A report is clamped to the
// time the server observed since the previous confirmation (plus one second
// of slack), so a client cannot bank time it has not spent.
func (l *Ledger) Confirm(ctx context.Context, userID, videoID string, reportedSeconds int) (Status, error) {
	if reportedSeconds < 0 {
		return Status{}, ErrInvalidReport
	}
	k := key(userID, videoID)
	var status Status

	txf := func(tx *redis.Tx) error {
		watched, lastMs, err := l.load(ctx, tx, k)
		if err != nil {
			return err
		}
		nowMs := l.clock.Now().UnixMilli()
		allowed := int((time.Duration(nowMs-lastMs)*time.Millisecond + l.slack) / time.Second)
		credit := min(reportedSeconds, max(allowed, 0))
		watched = min(l.ceiling, watched+credit)
		status = l.status(watched)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, fieldWatched, watched, fieldLast, nowMs)
			pipe.Expire(ctx, k, l.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.client.Watch(ctx, txf, k)
		if err == nil {
			return status, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Status{}, err
	}
	return Status{}, ErrContention
}

// Status reports the allowance without changing it.
func (l *Ledger) Status(ctx context.Context, userID, videoID string) (Status, error) {
	watched, _, err := l.load(ctx, l.client, key(userID, videoID))
	if err != nil {
		return Status{}, err
	}
	return l.status(watched), nil
}

func (l *Ledger) status(watched int) Status {
	return Status{
		WatchedSeconds:   watched,
		RemainingSeconds: l.ceiling - watched,
		CeilingSeconds:   l.ceiling,
		Restricted:       watched >= l.ceiling,
	}
}

func (l *Ledger) load(ctx context.Context, c redis.Cmdable, k string) (watched int, lastMs int64, err error) {
	vals, err := c.HMGet(ctx, k, fieldWatched, fieldLast).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("watchtime: load session: %w", err)
	}
	if vals[0] == nil {
		return 0, 0, ErrUnknownSession
	}
	watched, err = strconv.Atoi(fmt.Sprint(vals[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("watchtime: corrupt watched value: %w", err)
	}
	if vals[1] != nil {
		lastMs, err = strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("watchtime: corrupt timestamp: %w", err)
		}
	}
	return watched, lastMs, nil
}
