// Package auth decides which users may issue administrative commands.
package auth

import (
	"context"

	"github.com/sirupsen/logrus"

	"tg_filegate_bot/internal/logging"
)

type adminSet interface {
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	Contains(ctx context.Context, userID int64) (bool, error)
}

// Authorizer combines the statically configured owner identity with the
// mutable admin set. The owner is privileged unconditionally and never
// appears in the removable set.
type Authorizer struct {
	ownerID int64
	admins  adminSet
	logger  *logrus.Entry
}

// New constructs an Authorizer for the given owner id and admin set.
func New(ownerID int64, admins adminSet, logger *logrus.Entry) *Authorizer {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Authorizer{
		ownerID: ownerID,
		admins:  admins,
		logger:  logger,
	}
}

// IsOwner reports whether the user id is the configured owner.
func (a *Authorizer) IsOwner(userID int64) bool {
	return a != nil && a.ownerID != 0 && userID == a.ownerID
}

// IsAuthorized reports whether the user may issue admin commands: the owner
// always is, everyone else must be in the admin set. A failed lookup counts
// as not authorized.
func (a *Authorizer) IsAuthorized(ctx context.Context, userID int64) bool {
	if a == nil || a.admins == nil {
		return false
	}
	if a.IsOwner(userID) {
		return true
	}

	isAdmin, err := a.admins.Contains(ctx, userID)
	if err != nil {
		a.logger.WithFields(logging.Fields{
			"event":   "auth_lookup_failed",
			"user_id": userID,
		}).WithError(err).Warn("admin lookup failed, treating as unauthorized")
		return false
	}

	return isAdmin
}

// Promote adds the user to the admin set. Promoting the owner or an
// existing admin is a no-op.
func (a *Authorizer) Promote(ctx context.Context, userID int64) error {
	if a.IsOwner(userID) {
		return nil
	}

	if err := a.admins.Add(ctx, userID); err != nil {
		return err
	}

	a.logger.WithFields(logging.Fields{
		"event":   "admin_promoted",
		"user_id": userID,
	}).Info("promoted user to admin")

	return nil
}

// Demote removes the user from the admin set. The owner cannot be demoted;
// demoting the owner or a non-admin is a no-op.
func (a *Authorizer) Demote(ctx context.Context, userID int64) error {
	if a.IsOwner(userID) {
		return nil
	}

	if err := a.admins.Remove(ctx, userID); err != nil {
		return err
	}

	a.logger.WithFields(logging.Fields{
		"event":   "admin_demoted",
		"user_id": userID,
	}).Info("demoted admin to user")

	return nil
}
