package access

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

type roleMemoKey struct{}

// roleMemo caches role lookups for the lifetime of one request. Concurrent
// lookups for the same user share a single resolver call; failures are not
// cached.
type roleMemo struct {
	mu    sync.Mutex
	roles map[string][]RoleName
	group singleflight.Group
}

// WithRoleMemo returns a context whose role lookups are memoized until the
// request ends.
func WithRoleMemo(ctx context.Context) context.Context {
	if roleMemoFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, roleMemoKey{}, &roleMemo{roles: make(map[string][]RoleName)})
}

func roleMemoFrom(ctx context.Context) *roleMemo {
	m, _ := ctx.Value(roleMemoKey{}).(*roleMemo)
	return m
}

func (m *roleMemo) resolve(ctx context.Context, userID string, next RoleResolver) ([]RoleName, error) {
	m.mu.Lock()
	if roles, ok := m.roles[userID]; ok {
		m.mu.Unlock()
		return slices.Clone(roles), nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(userID, func() (any, error) {
		roles, err := next.Roles(ctx, userID)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.roles[userID] = roles
		m.mu.Unlock()
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]RoleName)), nil
}
