package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/sessiongate/internal/models"
)

// GormDirectory implements Directory on top of the users and user_business_partners tables.
type GormDirectory struct {
	db *gorm.DB
	// lockRows is set inside Transaction so candidate rows stay locked until commit.
	lockRows bool
}

// NewGormDirectory constructs a directory backed by db.
func NewGormDirectory(db *gorm.DB) (*GormDirectory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &GormDirectory{db: db}, nil
}

// FindByUsername returns matching users ordered by client so repeated lookups are stable.
// Inside Transaction the rows are read with SELECT ... FOR UPDATE.
func (d *GormDirectory) FindByUsername(ctx context.Context, username string) ([]*models.User, error) {
	var users []*models.User
	if err := d.usersByName(d.db.WithContext(ctx), username).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory: find users: %w", err)
	}
	return users, nil
}

func (d *GormDirectory) usersByName(tx *gorm.DB, username string) *gorm.DB {
	query := tx.Where("username = ?", username).
		Order("client_id ASC").
		Order("id ASC")
	if d.lockRows {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// WriteLockState runs in its own nested transaction so a failed write only rolls back itself
// when called inside Transaction.
func (d *GormDirectory) WriteLockState(ctx context.Context, state LockState) error {
	if state.UserID == "" {
		return errors.New("directory: user id is required")
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("id = ?", state.UserID).
			Updates(map[string]any{
				"is_locked":       state.Locked,
				"locked_at":       state.LockedAt,
				"failed_attempts": state.FailedAttempts,
			}).Error
		if err != nil {
			return fmt.Errorf("directory: write lock state: %w", err)
		}
		return nil
	})
}

// RecordLogin sets last_login_at and resets the failure counter.
func (d *GormDirectory) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return errors.New("directory: user id is required")
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"last_login_at":   at,
				"failed_attempts": 0,
			}).Error
		if err != nil {
			return fmt.Errorf("directory: record login: %w", err)
		}
		return nil
	})
}

// HasBusinessPartner reports whether the user has at least one non-null partner association.
func (d *GormDirectory) HasBusinessPartner(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.BusinessPartnerLink{}).
		Where("user_id = ? AND business_partner_id IS NOT NULL", userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("directory: count business partners: %w", err)
	}
	return count > 0, nil
}

// Transaction runs fn inside a database transaction. Nested write-backs become savepoints.
func (d *GormDirectory) Transaction(ctx context.Context, fn func(Directory) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormDirectory{db: tx, lockRows: true})
	})
}

// Ping checks database connectivity for health probes.
func (d *GormDirectory) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
