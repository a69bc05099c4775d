package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"content-gate/internal/domain/access"
)

const cacheKeyPrefix = "roles:user:"

// Cache keeps resolved roles in redis for a short TTL. Roles may be stale by
// up to the TTL. Redis failures fall through to the wrapped resolver.
type Cache struct {
	next   access.RoleResolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(next access.RoleResolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *Cache) Roles(ctx context.Context, userID string) ([]access.RoleName, error) {
	key := cacheKeyPrefix + userID
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return decodeRoles(raw), nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("role cache read failed", slog.String("user_id", userID), slog.Any("error", err))
	}

	roles, err := c.next.Roles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, encodeRoles(roles), c.ttl).Err(); err != nil {
		c.logger.Warn("role cache write failed", slog.String("user_id", userID), slog.Any("error", err))
	}
	return roles, nil
}

// Invalidate drops the cached roles of a user, e.g. after a plan change.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, cacheKeyPrefix+userID).Err()
}

func encodeRoles(roles []access.RoleName) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func decodeRoles(raw string) []access.RoleName {
	if raw == "" {
		return []access.RoleName{}
	}
	parts := strings.Split(raw, ",")
	roles := make([]access.RoleName, 0, len(parts))
	for _, p := range parts {
		roles = append(roles, access.RoleName(p))
	}
	return roles
}
