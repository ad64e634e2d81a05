package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/internal/directory"
	"github.com/charlesng35/sessiongate/internal/models"
	"github.com/charlesng35/sessiongate/pkg/logger"
	"github.com/charlesng35/sessiongate/pkg/metrics"
)

// ReleaseMode decides when an expired lock is cleared.
type ReleaseMode string

const (
	// ReleaseElapsed clears a lock once the lock duration has passed.
	ReleaseElapsed ReleaseMode = "elapsed"
	// ReleaseElapsedAndActive additionally keeps inactive accounts locked.
	ReleaseElapsedAndActive ReleaseMode = "elapsed_and_active"
)

// LockoutConfig holds lockout thresholds. Values are used as given; a zero or negative
// InactivityDays or MaxFailedAttempts disables that rule, and a zero or negative
// LockDuration means locks are never released automatically.
type LockoutConfig struct {
	InactivityDays    int
	LockDuration      time.Duration
	MaxFailedAttempts int
	Release           ReleaseMode
	Clock             func() time.Time
	Logger            *zap.Logger
}

// DefaultLockoutConfig returns the stock thresholds.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		InactivityDays:    180,
		LockDuration:      180 * time.Minute,
		MaxFailedAttempts: 10,
		Release:           ReleaseElapsed,
	}
}

// LockoutPolicy applies inactivity, expiry and failed-attempt rules to directory records.
type LockoutPolicy struct {
	inactivityDays int
	lockDuration   time.Duration
	maxFailed      int
	release        ReleaseMode
	now            func() time.Time
	log            *zap.Logger
}

// NewLockoutPolicy validates cfg and builds a policy.
func NewLockoutPolicy(cfg LockoutConfig) (*LockoutPolicy, error) {
	release := cfg.Release
	switch release {
	case "":
		release = ReleaseElapsed
	case ReleaseElapsed, ReleaseElapsedAndActive:
	default:
		return nil, fmt.Errorf("lockout: unknown release mode %q", cfg.Release)
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	log := cfg.Logger
	if log == nil {
		log = logger.WithModule("auth.lockout")
	}

	return &LockoutPolicy{
		inactivityDays: cfg.InactivityDays,
		lockDuration:   cfg.LockDuration,
		maxFailed:      cfg.MaxFailedAttempts,
		release:        release,
		now:            now,
		log:            log,
	}, nil
}

// Precheck runs before any password comparison. It locks records idle for longer than the
// inactivity threshold and releases locks older than the lock duration. Records are only
// updated in memory after the matching write-back succeeded.
func (p *LockoutPolicy) Precheck(ctx context.Context, dir directory.Directory, users []*models.User) {
	now := p.now()

	for _, user := range users {
		if user == nil {
			continue
		}

		if !user.IsLocked && p.inactive(user, now) {
			state := directory.StateOf(user)
			state.Locked = true
			state.LockedAt = &now
			if p.write(ctx, dir, user, state, "inactivity_lock") {
				metrics.AccountLocks.WithLabelValues("inactivity").Inc()
				p.log.Info("account locked for inactivity", zap.String("user_id", user.ID))
			}
		}

		if !user.IsLocked {
			continue
		}

		if user.LockedAt == nil {
			state := directory.StateOf(user)
			state.LockedAt = &now
			p.write(ctx, dir, user, state, "lock_timestamp_repair")
			continue
		}

		if !p.lockExpired(user, now) {
			continue
		}
		if p.release == ReleaseElapsedAndActive && p.inactive(user, now) {
			continue
		}

		state := directory.LockState{UserID: user.ID}
		if p.write(ctx, dir, user, state, "lock_release") {
			metrics.AccountUnlocks.Inc()
			p.log.Info("expired account lock released", zap.String("user_id", user.ID))
		}
	}
}

// RecordFailures increments the failure counter of every unlocked record in failed and locks
// those reaching the maximum.
func (p *LockoutPolicy) RecordFailures(ctx context.Context, dir directory.Directory, failed []*models.User) {
	now := p.now()

	for _, user := range failed {
		if user == nil || user.IsLocked {
			continue
		}

		state := directory.StateOf(user)
		state.FailedAttempts++
		if p.maxFailed > 0 && state.FailedAttempts >= p.maxFailed {
			state.Locked = true
			state.LockedAt = &now
		}

		if p.write(ctx, dir, user, state, "failed_attempt") && state.Locked {
			metrics.AccountLocks.WithLabelValues("failed_attempts").Inc()
			p.log.Info("account locked after failed attempts",
				zap.String("user_id", user.ID),
				zap.Int("failed_attempts", state.FailedAttempts),
			)
		}
	}
}

// inactive reports whether more whole days than the threshold passed since the last login.
func (p *LockoutPolicy) inactive(user *models.User, now time.Time) bool {
	if p.inactivityDays <= 0 || user.LastLoginAt == nil {
		return false
	}
	days := int(now.Sub(*user.LastLoginAt) / (24 * time.Hour))
	return days > p.inactivityDays
}

func (p *LockoutPolicy) lockExpired(user *models.User, now time.Time) bool {
	if p.lockDuration <= 0 {
		return false
	}
	return now.Sub(*user.LockedAt) > p.lockDuration
}

// write persists state and mirrors it onto user when the write succeeds.
func (p *LockoutPolicy) write(ctx context.Context, dir directory.Directory, user *models.User, state directory.LockState, action string) bool {
	if err := dir.WriteLockState(ctx, state); err != nil {
		metrics.LockWriteFailures.Inc()
		p.log.Warn("lock state write-back failed",
			zap.String("user_id", user.ID),
			zap.String("action", action),
			zap.Error(err),
		)
		return false
	}
	state.Apply(user)
	return true
}
