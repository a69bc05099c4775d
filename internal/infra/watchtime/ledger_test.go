package watchtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-gate/internal/platform/clock"
)

func newLedger(t *testing.T, ceiling int) (*Ledger, *clock.FakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	clk := clock.Fake(time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC))
	return NewLedger(client, ceiling, WithClock(clk)), clk, mr
}

func TestLedgerAccumulatesToCeiling(t *testing.T) {
	ledger, clk, _ := newLedger(t, 300)
	ctx := context.Background()

	st, err := ledger.Open(ctx, "7", "v1")
	require.NoError(t, err)
	assert.Equal(t, 300, st.RemainingSeconds)

	for i := 0; i < 29; i++ {
		clk.Advance(10 * time.Second)
		st, err = ledger.Confirm(ctx, "7", "v1", 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 290, st.WatchedSeconds)
	assert.False(t, st.Restricted)

	clk.Advance(15 * time.Second)
	st, err = ledger.Confirm(ctx, "7", "v1", 15)
	require.NoError(t, err)
	assert.Equal(t, 300, st.WatchedSeconds)
	assert.Equal(t, 0, st.RemainingSeconds)
	assert.True(t, st.Restricted)
}

func TestLedgerClampsOverReporting(t *testing.T) {
	ledger, clk, _ := newLedger(t, 300)
	ctx := context.Background()
	_, err := ledger.Open(ctx, "7", "v1")
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	st, err := ledger.Confirm(ctx, "7", "v1", 250)
	require.NoError(t, err)
	assert.Equal(t, 6, st.WatchedSeconds, "five observed seconds plus slack")
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ledger, clk, _ := newLedger(t, 300)
	ctx := context.Background()
	_, err := ledger.Open(ctx, "7", "v1")
	require.NoError(t, err)
	clk.Advance(120 * time.Second)
	_, err = ledger.Confirm(ctx, "7", "v1", 120)
	require.NoError(t, err)

	// reload / second tab
	st, err := ledger.Open(ctx, "7", "v1")
	require.NoError(t, err)
	assert.Equal(t, 120, st.WatchedSeconds)

	other, err := ledger.Open(ctx, "8", "v1")
	require.NoError(t, err)
	assert.Equal(t, 0, other.WatchedSeconds)
}

func TestLedgerErrors(t *testing.T) {
	ledger, _, mr := newLedger(t, 300)
	ctx := context.Background()

	_, err := ledger.Confirm(ctx, "7", "missing", 1)
	assert.ErrorIs(t, err, ErrUnknownSession)

	_, err = ledger.Confirm(ctx, "7", "v1", -1)
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = ledger.Status(ctx, "7", "missing")
	assert.ErrorIs(t, err, ErrUnknownSession)

	_, err = ledger.Open(ctx, "7", "v1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("preview:watch:7:v1"))
	assert.Greater(t, mr.TTL("preview:watch:7:v1"), time.Duration(0))
}
