package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessPartnerLink associates a user with a business partner. Rows with a null
// BusinessPartnerID do not count towards access.
type BusinessPartnerLink struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID            string    `gorm:"type:uuid;not null;index" json:"user_id"`
	BusinessPartnerID *string   `json:"business_partner_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName keeps the association table name stable across drivers.
func (BusinessPartnerLink) TableName() string {
	return "user_business_partners"
}

// BeforeCreate ensures a UUID is present before persisting.
func (l *BusinessPartnerLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
