package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DefaultHashIterations matches the iteration count used when the legacy directory
// stored salted SHA-512 credentials.
const DefaultHashIterations = 1000

// ErrInvalidIterations is returned when a negative iteration count is requested.
var ErrInvalidIterations = errors.New("crypto: iterations must not be negative")

// SHA512Hash digests salt||plaintext once and then re-digests the result iterations
// times, returning the lowercase hex encoding of the final digest.
func SHA512Hash(iterations int, plaintext string, salt []byte) (string, error) {
	if iterations < 0 {
		return "", ErrInvalidIterations
	}

	h := sha512.New()
	h.Write(salt)
	h.Write([]byte(plaintext))
	digest := h.Sum(nil)

	for i := 0; i < iterations; i++ {
		sum := sha512.Sum512(digest)
		digest = sum[:]
	}

	return hex.EncodeToString(digest), nil
}

// DecodeHexSalt converts a hex-encoded salt column into raw bytes.
func DecodeHexSalt(value string) ([]byte, error) {
	salt, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("crypto: decode salt: %w", err)
	}
	return salt, nil
}

// GenerateSalt returns a random salt of length bytes, hex-encoded for storage.
func GenerateSalt(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("crypto: salt length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
