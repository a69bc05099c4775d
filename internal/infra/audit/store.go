package audit

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Store persists audit entries with gorm (postgres in production, sqlite in tests).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, e *Entry) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	UserID   string
	Resource string
	Allowed  *bool
	Limit    int
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	q := s.db.WithContext(ctx).Model(&Entry{})
	if v := strings.TrimSpace(f.UserID); v != "" {
		q = q.Where("user_id = ?", v)
	}
	if v := strings.TrimSpace(f.Resource); v != "" {
		q = q.Where("resource = ?", v)
	}
	if f.Allowed != nil {
		q = q.Where("allowed = ?", *f.Allowed)
	}

	var entries []Entry
	if err := q.Order("timestamp DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	return entries, nil
}
