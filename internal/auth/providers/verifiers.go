package providers

import (
	"crypto/subtle"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/internal/models"
	"github.com/charlesng35/sessiongate/pkg/crypto"
	"github.com/charlesng35/sessiongate/pkg/logger"
)

// MissingCredentialSentinel stands in for an absent salt or stored hash so a record
// without credentials still costs one full hash computation. It is 16 hex characters,
// which decode to an 8-byte salt; the length is intentional and must stay as is.
const MissingCredentialSentinel = "0000000000000000"

// PlaintextVerifier compares against a credential stored as-is.
type PlaintextVerifier struct{}

// Verify implements CredentialVerifier.
func (PlaintextVerifier) Verify(user *models.User, password string) bool {
	if user == nil || user.Password == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*user.Password), []byte(password)) == 1
}

// SaltedHashVerifier compares against a hex digest of salt||password produced by Hasher.
type SaltedHashVerifier struct {
	Hasher     Hasher
	Iterations int
	Logger     *zap.Logger
}

// NewSaltedHashVerifier returns a verifier over crypto.SHA512Hash.
func NewSaltedHashVerifier(iterations int, log *zap.Logger) *SaltedHashVerifier {
	if log == nil {
		log = logger.WithModule("auth.local")
	}
	return &SaltedHashVerifier{
		Hasher:     HasherFunc(crypto.SHA512Hash),
		Iterations: iterations,
		Logger:     log,
	}
}

// Verify implements CredentialVerifier. Hash failures are logged and count as a mismatch.
func (v *SaltedHashVerifier) Verify(user *models.User, password string) bool {
	if user == nil {
		return false
	}

	salt, stored := MissingCredentialSentinel, MissingCredentialSentinel
	present := user.Salt != nil && user.Password != nil
	if present {
		salt, stored = *user.Salt, *user.Password
	}

	raw, err := crypto.DecodeHexSalt(salt)
	if err != nil {
		v.warn("decode salt failed", user, err)
		return false
	}

	digest, err := v.Hasher.Hash(v.Iterations, password, raw)
	if err != nil {
		v.warn("hash credential failed", user, err)
		return false
	}

	matched := subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
	return matched && present
}

func (v *SaltedHashVerifier) warn(msg string, user *models.User, err error) {
	if v.Logger == nil {
		return
	}
	v.Logger.Warn(msg, zap.String("user_id", user.ID), zap.Error(err))
}

// BcryptVerifier compares against a bcrypt hash.
type BcryptVerifier struct{}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// Verify implements CredentialVerifier.
func (BcryptVerifier) Verify(user *models.User, password string) bool {
	if user == nil || user.Password == nil {
		crypto.VerifyPassword(bcryptDummyHash(), password)
		return false
	}
	return crypto.VerifyPassword(*user.Password, password)
}

func bcryptDummyHash() string {
	dummyHashOnce.Do(func() {
		hashed, err := crypto.HashPassword(MissingCredentialSentinel)
		if err == nil {
			dummyHash = hashed
		}
	})
	return dummyHash
}
