// Package roles resolves engine roles from the account database, with an
// optional redis cache in front.
package roles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"content-gate/internal/domain/access"
	"content-gate/internal/domain/users"
)

var ErrUserNotFound = errors.New("roles: user not found")

// UserRoleStore derives roles from the users and plans tables.
type UserRoleStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserRoleStore(db *gorm.DB) *UserRoleStore {
	return &UserRoleStore{db: db, now: time.Now}
}

func (s *UserRoleStore) Roles(ctx context.Context, userID string) ([]access.RoleName, error) {
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("roles: malformed user id %q: %w", userID, err)
	}

	var user users.User
	if err := s.db.WithContext(ctx).Preload("Plan").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("roles: load user %s: %w", userID, err)
	}
	return access.RolesFor(s.now(), user), nil
}
