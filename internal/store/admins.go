package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AdminSet persists the mutable set of administrator user ids. The owner is
// a static configuration value and is never stored here.
type AdminSet struct {
	db  dbtx
	now func() time.Time
}

// NewAdminSet constructs an AdminSet over the provided handle.
func NewAdminSet(db dbtx) *AdminSet {
	return &AdminSet{
		db:  db,
		now: time.Now,
	}
}

// Add inserts the user id into the admin set. Adding an existing admin is a
// no-op.
func (s *AdminSet) Add(ctx context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return errors.New("admin set is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == 0 {
		return errors.New("user id is required")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (user_id, granted_at) VALUES (?, ?)`,
		userID, toMillis(s.now()),
	); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}

	return nil
}

// Remove deletes the user id from the admin set. Removing a non-admin is a
// no-op.
func (s *AdminSet) Remove(ctx context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return errors.New("admin set is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}

	return nil
}

// Contains reports whether the user id is in the admin set.
func (s *AdminSet) Contains(ctx context.Context, userID int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("admin set is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}

	var one int
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE user_id = ?`, userID)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check admin: %w", err)
	}

	return true, nil
}
