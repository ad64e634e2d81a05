package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/pkg/logger"
	"github.com/charlesng35/sessiongate/pkg/metrics"
)

// DefaultTokenTTL is the lifetime of a session token when none is configured.
const DefaultTokenTTL = 14400 * time.Minute

// LoginHandler performs the credential part of a login.
type LoginHandler interface {
	Login(ctx context.Context, input LoginInput) (LoginResult, error)
}

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	Issuer   string
	TokenTTL time.Duration
	// TTLOverride replaces TokenTTL when set, including zero or negative values.
	TTLOverride *time.Duration
	Clock       func() time.Time
	Logger      *zap.Logger
}

// SessionService issues tokens for granted logins and keeps the latest one per login name.
// The store lives in process memory only and is never pruned.
type SessionService struct {
	logins   LoginHandler
	signer   TokenSigner
	issuer   string
	ttl      time.Duration
	override atomic.Pointer[time.Duration]
	now      func() time.Time
	log      *zap.Logger

	mu      sync.RWMutex
	entries map[string]LoginResult
}

// NewSessionService constructs a session manager over a login handler and token signer.
func NewSessionService(logins LoginHandler, signer TokenSigner, cfg SessionConfig) (*SessionService, error) {
	if logins == nil {
		return nil, errors.New("session service: login handler is required")
	}
	if signer == nil {
		return nil, errors.New("session service: token signer is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("session service: issuer is required")
	}

	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	log := cfg.Logger
	if log == nil {
		log = logger.WithModule("auth.session")
	}

	svc := &SessionService{
		logins:  logins,
		signer:  signer,
		issuer:  cfg.Issuer,
		ttl:     ttl,
		now:     clock,
		log:     log,
		entries: make(map[string]LoginResult),
	}
	if cfg.TTLOverride != nil {
		svc.SetTTLOverride(cfg.TTLOverride)
	}
	return svc, nil
}

// SetTTLOverride replaces the token lifetime for subsequent logins. Nil restores TokenTTL.
func (s *SessionService) SetTTLOverride(ttl *time.Duration) {
	if ttl == nil {
		s.override.Store(nil)
		return
	}
	v := *ttl
	s.override.Store(&v)
}

func (s *SessionService) effectiveTTL() time.Duration {
	if override := s.override.Load(); override != nil {
		return *override
	}
	return s.ttl
}

// Login authenticates input and, when access is granted, mints a token that replaces any
// earlier token stored for the same login name.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	result, err := s.logins.Login(ctx, input)
	if err != nil || !result.AccessGranted {
		return result, err
	}

	now := s.now()
	token, err := s.signer.Sign(TokenClaims{
		Subject:   result.LoginName,
		Issuer:    s.issuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.effectiveTTL()),
	})
	if err != nil {
		s.log.Error("mint session token failed", zap.String("login_name", result.LoginName), zap.Error(err))
		return LoginResult{LoginName: result.LoginName}, fmt.Errorf("session service: %w", err)
	}
	result.Token = token

	s.mu.Lock()
	s.entries[result.LoginName] = result
	size := len(s.entries)
	s.mu.Unlock()

	metrics.TokenStoreEntries.Set(float64(size))
	return result, nil
}

// ValidateToken returns a copy of the stored outcome that owns token when the token still
// verifies and its subject and issuer match.
func (s *SessionService) ValidateToken(token string) (*LoginResult, bool) {
	if token == "" {
		metrics.TokenValidations.WithLabelValues("unknown").Inc()
		return nil, false
	}

	entry, found := s.lookup(token)
	if !found {
		metrics.TokenValidations.WithLabelValues("unknown").Inc()
		return nil, false
	}

	claims, err := s.signer.Verify(token)
	if err != nil {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		s.log.Debug("stored token failed verification", zap.String("login_name", entry.LoginName), zap.Error(err))
		return nil, false
	}
	if claims.Subject != entry.LoginName || claims.Issuer != s.issuer {
		metrics.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, false
	}

	metrics.TokenValidations.WithLabelValues("valid").Inc()
	return &entry, true
}

// lookup scans the store for the entry holding token.
func (s *SessionService) lookup(token string) (LoginResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.Token == token {
			return entry, true
		}
	}
	return LoginResult{}, false
}

// Revoke drops the stored entry for loginName and reports whether one existed.
func (s *SessionService) Revoke(loginName string) bool {
	s.mu.Lock()
	_, ok := s.entries[loginName]
	delete(s.entries, loginName)
	size := len(s.entries)
	s.mu.Unlock()

	metrics.TokenStoreEntries.Set(float64(size))
	return ok
}

// Len reports how many login names currently hold a token.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
