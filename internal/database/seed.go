package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/models"
	"github.com/charlesng35/sessiongate/pkg/crypto"
)

// Credential storage modes understood by SeedDemoData.
const (
	CredentialPlaintext = "plaintext"
	CredentialSHA512    = "sha512"
	CredentialBcrypt    = "bcrypt"
)

const demoSaltLength = 16

// SeedUser describes a directory row to create.
type SeedUser struct {
	Username         string
	ClientID         string
	Password         string
	Credential       string // plaintext (default), sha512 or bcrypt
	Iterations       int    // sha512 only; defaults to crypto.DefaultHashIterations
	BusinessPartners []string
}

// SeedDemoData inserts users and their business-partner links in one transaction and
// returns the created records.
func SeedDemoData(db *gorm.DB, users ...SeedUser) ([]*models.User, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}

	created := make([]*models.User, 0, len(users))
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range users {
			user, err := buildSeedUser(seed)
			if err != nil {
				return err
			}
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("seed user %s/%s: %w", seed.Username, seed.ClientID, err)
			}
			for _, partner := range seed.BusinessPartners {
				partnerID := partner
				link := &models.BusinessPartnerLink{UserID: user.ID, BusinessPartnerID: &partnerID}
				if err := tx.Create(link).Error; err != nil {
					return fmt.Errorf("seed business partner for %s: %w", seed.Username, err)
				}
			}
			created = append(created, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func buildSeedUser(seed SeedUser) (*models.User, error) {
	user := &models.User{Username: seed.Username, ClientID: seed.ClientID}

	switch strings.ToLower(strings.TrimSpace(seed.Credential)) {
	case "", CredentialPlaintext:
		password := seed.Password
		user.Password = &password
	case CredentialSHA512:
		salt, err := crypto.GenerateSalt(demoSaltLength)
		if err != nil {
			return nil, fmt.Errorf("seed salt: %w", err)
		}
		raw, err := crypto.DecodeHexSalt(salt)
		if err != nil {
			return nil, err
		}
		iterations := seed.Iterations
		if iterations == 0 {
			iterations = crypto.DefaultHashIterations
		}
		digest, err := crypto.SHA512Hash(iterations, seed.Password, raw)
		if err != nil {
			return nil, fmt.Errorf("seed hash: %w", err)
		}
		user.Password = &digest
		user.Salt = &salt
	case CredentialBcrypt:
		hashed, err := crypto.HashPassword(seed.Password)
		if err != nil {
			return nil, fmt.Errorf("seed bcrypt: %w", err)
		}
		user.Password = &hashed
	default:
		return nil, fmt.Errorf("unsupported credential mode %q", seed.Credential)
	}

	return user, nil
}
