package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret string
	// Issuer is applied to tokens whose claims leave it empty.
	Issuer string
	Clock  func() time.Time
}

// Claims represents the claims embedded in issued session tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenClaims holds the parameters used when signing a session token.
type TokenClaims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenSigner signs and verifies session tokens.
type TokenSigner interface {
	Sign(claims TokenClaims) (string, error)
	Verify(token string) (*Claims, error)
}

// JWTService is responsible for issuing and validating HS256 JSON Web Tokens.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ TokenSigner = (*JWTService)(nil)

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// Sign issues a signed JWT. Every token carries a random jti so two tokens minted for the
// same subject within one second still differ.
func (s *JWTService) Sign(input TokenClaims) (string, error) {
	if input.Subject == "" {
		return "", errors.New("jwt: subject is required")
	}

	issuer := input.Issuer
	if issuer == "" {
		issuer = s.issuer
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   input.Subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(input.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(input.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	return &claims, nil
}
