package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/sessiongate/internal/auth"
	"github.com/charlesng35/sessiongate/internal/auth/providers"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret: c.JWT.Secret,
		Issuer: c.JWT.Issuer,
	}
}

// SessionServiceConfig converts AuthConfig into SessionService parameters.
func (c AuthConfig) SessionServiceConfig() (auth.SessionConfig, error) {
	override, err := c.ttlOverride()
	if err != nil {
		return auth.SessionConfig{}, err
	}

	ttl := c.JWT.TTL
	if ttl == 0 {
		ttl = auth.DefaultTokenTTL
	}

	return auth.SessionConfig{
		Issuer:      c.JWT.Issuer,
		TokenTTL:    ttl,
		TTLOverride: override,
	}, nil
}

// LockoutConfig converts AuthConfig into lockout thresholds. Values pass through unchanged.
func (c AuthConfig) LockoutConfig() auth.LockoutConfig {
	return auth.LockoutConfig{
		InactivityDays:    c.Local.InactivityDays,
		LockDuration:      c.Local.LockDuration,
		MaxFailedAttempts: c.Local.MaxFailedAttempts,
		Release:           auth.ReleaseMode(strings.ToLower(strings.TrimSpace(c.Local.ReleaseMode))),
	}
}

// LocalProviderConfig converts AuthConfig into LocalProvider parameters.
func (c AuthConfig) LocalProviderConfig() providers.LocalConfig {
	mode := providers.ModePlaintext
	if c.Local.HashPasswords {
		mode = strings.ToLower(strings.TrimSpace(c.Local.HashAlgorithm))
		if mode == "" {
			mode = providers.ModeSHA512
		}
	}

	return providers.LocalConfig{
		Mode:       mode,
		Iterations: c.Local.HashIterations,
	}
}

func (c AuthConfig) ttlOverride() (*time.Duration, error) {
	raw := strings.TrimSpace(c.JWT.TTLOverride)
	if raw == "" {
		return nil, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("config: invalid auth.jwt.ttl_override: %w", err)
	}
	return &ttl, nil
}
