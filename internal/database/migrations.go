package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/models"
)

// AutoMigrate creates or updates the directory schema.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.BusinessPartnerLink{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
