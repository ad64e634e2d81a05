// Package directory exposes the user directory consulted during login: candidate lookup,
// lock state write-back and the business-partner access check.
package directory

import (
	"context"
	"time"

	"github.com/charlesng35/sessiongate/internal/models"
)

// LockState is the lockout portion of a user record written back after a policy decision.
type LockState struct {
	UserID         string
	Locked         bool
	LockedAt       *time.Time
	FailedAttempts int
}

// Directory is the persistence contract used by the login flow.
type Directory interface {
	// FindByUsername returns every record sharing username, across all clients.
	FindByUsername(ctx context.Context, username string) ([]*models.User, error)
	// WriteLockState overwrites the lock columns of one user. Writing the same state twice is a no-op.
	WriteLockState(ctx context.Context, state LockState) error
	// RecordLogin stamps a successful login and clears the failure counter.
	RecordLogin(ctx context.Context, userID string, at time.Time) error
	HasBusinessPartner(ctx context.Context, userID string) (bool, error)
	// Transaction runs fn as one isolated unit of work. The Directory passed to fn must be
	// used for every call inside it.
	Transaction(ctx context.Context, fn func(Directory) error) error
}

// StateOf captures the current lock columns of user.
func StateOf(user *models.User) LockState {
	return LockState{
		UserID:         user.ID,
		Locked:         user.IsLocked,
		LockedAt:       user.LockedAt,
		FailedAttempts: user.FailedAttempts,
	}
}

// Apply copies state onto user.
func (s LockState) Apply(user *models.User) {
	user.IsLocked = s.Locked
	if s.LockedAt != nil {
		at := *s.LockedAt
		user.LockedAt = &at
	} else {
		user.LockedAt = nil
	}
	user.FailedAttempts = s.FailedAttempts
}
