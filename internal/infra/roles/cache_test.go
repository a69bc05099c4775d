package roles

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-gate/internal/domain/access"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

type countingResolver struct {
	roles []access.RoleName
	err   error
	calls int
}

func (r *countingResolver) Roles(ctx context.Context, userID string) ([]access.RoleName, error) {
	r.calls++
	return r.roles, r.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheHitsRedis(t *testing.T) {
	mr, client := newRedis(t)
	next := &countingResolver{roles: []access.RoleName{access.RoleAdmin, access.RolePremiumUser}}
	cache := NewCache(next, client, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Roles(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, next.roles, got)
	}
	assert.Equal(t, 1, next.calls)
	assert.True(t, mr.Exists("roles:user:42"))

	mr.FastForward(2 * time.Minute)
	_, err := cache.Roles(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCacheInvalidate(t *testing.T) {
	_, client := newRedis(t)
	next := &countingResolver{roles: []access.RoleName{access.RoleFreeUser}}
	cache := NewCache(next, client, time.Minute, nil)
	ctx := context.Background()

	_, err := cache.Roles(ctx, "7")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "7"))
	_, err = cache.Roles(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCacheEmptyRoles(t *testing.T) {
	_, client := newRedis(t)
	next := &countingResolver{roles: nil}
	cache := NewCache(next, client, time.Minute, nil)

	_, err := cache.Roles(context.Background(), "5")
	require.NoError(t, err)
	got, err := cache.Roles(context.Background(), "5")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, next.calls)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	mr, client := newRedis(t)
	next := &countingResolver{err: errors.New("db down")}
	cache := NewCache(next, client, time.Minute, nil)

	_, err := cache.Roles(context.Background(), "9")
	assert.Error(t, err)
	assert.False(t, mr.Exists("roles:user:9"))
}

func TestCacheFallsThroughWhenRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	next := &countingResolver{roles: []access.RoleName{access.RoleFreeUser}}
	cache := NewCache(next, client, time.Minute, nil)
	mr.Close()

	got, err := cache.Roles(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, next.roles, got)
}
