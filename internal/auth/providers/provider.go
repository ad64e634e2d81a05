package providers

import "github.com/charlesng35/sessiongate/internal/models"

// CredentialVerifier decides whether password matches the credential stored on user.
// Implementations must not mutate user and must not return early on a missing credential.
type CredentialVerifier interface {
	Verify(user *models.User, password string) bool
}

// Hasher is the keyed iterative hash used by salted credential storage.
type Hasher interface {
	Hash(iterations int, plaintext string, salt []byte) (string, error)
}

// HasherFunc adapts a function to Hasher.
type HasherFunc func(iterations int, plaintext string, salt []byte) (string, error)

// Hash implements Hasher.
func (f HasherFunc) Hash(iterations int, plaintext string, salt []byte) (string, error) {
	return f(iterations, plaintext, salt)
}
