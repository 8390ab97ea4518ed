// Package user provides helpers for user registration.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tg_filegate_bot/internal/logging"
)

type userExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Registrar ensures users are present in the database the first time they
// start the bot.
type Registrar struct {
	db     userExecer
	now    func() time.Time
	logger *logrus.Entry
}

// NewRegistrar constructs a Registrar over the provided database handle.
func NewRegistrar(db userExecer, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// EnsureUser inserts the user record when missing and reports whether a new
// record was created. Repeat interactions are no-ops.
func (r *Registrar) EnsureUser(ctx context.Context, userID int64) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if userID == 0 {
		return false, errors.New("user id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, created_at) VALUES (?, ?)`,
		userID, r.now().UTC().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure user result: %w", err)
	}

	created := affected > 0
	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": userID,
		}).Info("registered new user")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": userID,
	}).Debug("user already registered")

	return false, nil
}
