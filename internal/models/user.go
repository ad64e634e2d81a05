package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is one directory row per (username, client) pair. The same username may exist
// under several clients, so ClientID is what tells them apart.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"not null;uniqueIndex:idx_users_username_client" json:"username"`
	ClientID string `gorm:"not null;uniqueIndex:idx_users_username_client" json:"client_id"`

	// Password holds plaintext, a hex SHA-512 digest or a bcrypt hash depending on
	// the configured credential mode.
	Password *string `json:"-"`
	Salt     *string `json:"-"`

	IsLocked       bool       `gorm:"not null;default:false" json:"is_locked"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	FailedAttempts int        `gorm:"not null;default:0" json:"failed_attempts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Clone returns a deep copy so callers can mutate lock state without aliasing.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cpy := *u
	cpy.Password = cloneString(u.Password)
	cpy.Salt = cloneString(u.Salt)
	cpy.LockedAt = cloneTime(u.LockedAt)
	cpy.LastLoginAt = cloneTime(u.LastLoginAt)
	return &cpy
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
