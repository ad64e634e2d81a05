package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/internal/directory"
)

type sessionFixture struct {
	dir     *directory.MemoryDirectory
	clock   *testClock
	service *SessionService
}

func newSessionFixture(t *testing.T, mutate func(*SessionConfig)) *sessionFixture {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	clock := newTestClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

	logins := newLoginService(t, dir, clock, nil)
	signer, err := NewJWTService(JWTConfig{Secret: "test-secret", Clock: clock.Now})
	require.NoError(t, err)

	cfg := SessionConfig{Issuer: "sessiongate-test", Clock: clock.Now, Logger: zap.NewNop()}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewSessionService(logins, signer, cfg)
	require.NoError(t, err)

	return &sessionFixture{dir: dir, clock: clock, service: svc}
}

type stubLogins struct {
	result LoginResult
	err    error
}

func (s stubLogins) Login(context.Context, LoginInput) (LoginResult, error) {
	return s.result, s.err
}

type failingSigner struct{}

func (failingSigner) Sign(TokenClaims) (string, error) { return "", errors.New("no key") }
func (failingSigner) Verify(string) (*Claims, error) { return nil, errors.New("no key") }

func TestNewSessionServiceValidation(t *testing.T) {
	signer, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)

	_, err = NewSessionService(nil, signer, SessionConfig{Issuer: "x"})
	require.Error(t, err)
	_, err = NewSessionService(stubLogins{}, nil, SessionConfig{Issuer: "x"})
	require.Error(t, err)
	_, err = NewSessionService(stubLogins{}, signer, SessionConfig{})
	require.Error(t, err)

	svc, err := NewSessionService(stubLogins{}, signer, SessionConfig{Issuer: "x"})
	require.NoError(t, err)
	require.Equal(t, DefaultTokenTTL, svc.effectiveTTL())
}

func TestSessionLoginRoundTrip(t *testing.T) {
	f := newSessionFixture(t, nil)
	user := seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")

	result, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "correct", ClientID: "100"})
	require.NoError(t, err)
	require.True(t, result.AccessGranted)
	require.NotEmpty(t, result.Token)
	require.Equal(t, 1, f.service.Len())

	validated, ok := f.service.ValidateToken(result.Token)
	require.True(t, ok)
	require.Equal(t, "alice", validated.LoginName)
	require.Equal(t, "100", validated.ClientID)
	require.Equal(t, user.ID, validated.UserID)

	again, ok := f.service.ValidateToken(result.Token)
	require.True(t, ok)
	require.Equal(t, validated, again)

	// callers get a copy
	validated.LoginName = "mallory"
	third, ok := f.service.ValidateToken(result.Token)
	require.True(t, ok)
	require.Equal(t, "alice", third.LoginName)
}

func TestSessionFailedLoginHasNoToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")
	seedMemoryUser(f.dir, "nopartner", "100", "correct")

	for _, input := range []LoginInput{
		{Username: "ghost", Password: "x"},
		{Username: "alice", Password: "wrong"},
		{Username: "nopartner", Password: "correct"},
	} {
		result, err := f.service.Login(context.Background(), input)
		require.NoError(t, err)
		require.False(t, result.AccessGranted)
		require.Empty(t, result.Token)
	}
	require.Zero(t, f.service.Len())
}

func TestSessionReloginInvalidatesPreviousToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")
	ctx := context.Background()

	first, err := f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	second, err := f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, ok := f.service.ValidateToken(first.Token)
	require.False(t, ok)
	_, ok = f.service.ValidateToken(second.Token)
	require.True(t, ok)
	require.Equal(t, 1, f.service.Len())
}

func TestSessionTokenExpiry(t *testing.T) {
	zero := time.Duration(0)
	f := newSessionFixture(t, func(cfg *SessionConfig) { cfg.TTLOverride = &zero })
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")
	ctx := context.Background()

	result, err := f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	_, ok := f.service.ValidateToken(result.Token)
	require.False(t, ok)

	negative := -time.Minute
	f.service.SetTTLOverride(&negative)
	result, err = f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	_, ok = f.service.ValidateToken(result.Token)
	require.False(t, ok)

	f.service.SetTTLOverride(nil)
	result, err = f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)
	_, ok = f.service.ValidateToken(result.Token)
	require.True(t, ok)

	f.clock.Advance(DefaultTokenTTL + time.Second)
	_, ok = f.service.ValidateToken(result.Token)
	require.False(t, ok)
}

func TestSessionTTLResolvedPerMint(t *testing.T) {
	f := newSessionFixture(t, func(cfg *SessionConfig) { cfg.TokenTTL = time.Hour })
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")
	ctx := context.Background()

	result, err := f.service.Login(ctx, LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)

	short := time.Minute
	f.service.SetTTLOverride(&short)

	f.clock.Advance(30 * time.Minute)
	_, ok := f.service.ValidateToken(result.Token)
	require.True(t, ok)
}

func TestSessionValidateUnknownToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")

	_, ok := f.service.ValidateToken("not-a-real-token")
	require.False(t, ok)
	_, ok = f.service.ValidateToken("")
	require.False(t, ok)

	_, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)

	_, ok = f.service.ValidateToken("not-a-real-token")
	require.False(t, ok)
}

func TestSessionValidateRejectsIssuerMismatch(t *testing.T) {
	clock := newTestClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	signer, err := NewJWTService(JWTConfig{Secret: "s", Clock: clock.Now})
	require.NoError(t, err)

	// a signer that stamps a foreign issuer regardless of the request
	foreign := &issuerRewritingSigner{JWTService: signer, issuer: "someone-else"}
	svc, err := NewSessionService(stubLogins{result: LoginResult{LoginName: "alice", AccessGranted: true}}, foreign, SessionConfig{
		Issuer: "sessiongate",
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	_, ok := svc.ValidateToken(result.Token)
	require.False(t, ok)
}

type issuerRewritingSigner struct {
	*JWTService
	issuer string
}

func (s *issuerRewritingSigner) Sign(claims TokenClaims) (string, error) {
	claims.Issuer = s.issuer
	return s.JWTService.Sign(claims)
}

func TestSessionSignFailure(t *testing.T) {
	svc, err := NewSessionService(stubLogins{result: LoginResult{LoginName: "alice", UserID: "u1", AccessGranted: true}}, failingSigner{}, SessionConfig{Issuer: "x"})
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "pw"})
	require.Error(t, err)
	require.Equal(t, LoginResult{LoginName: "alice"}, result)
	require.Zero(t, svc.Len())
}

func TestSessionRevoke(t *testing.T) {
	f := newSessionFixture(t, nil)
	seedMemoryUser(f.dir, "alice", "100", "correct", "BP-1")

	result, err := f.service.Login(context.Background(), LoginInput{Username: "alice", Password: "correct"})
	require.NoError(t, err)

	require.True(t, f.service.Revoke("alice"))
	require.False(t, f.service.Revoke("alice"))
	_, ok := f.service.ValidateToken(result.Token)
	require.False(t, ok)
	require.Zero(t, f.service.Len())
}

func TestSessionConcurrentLogins(t *testing.T) {
	f := newSessionFixture(t, nil)
	const users = 8
	for i := 0; i < users; i++ {
		seedMemoryUser(f.dir, fmt.Sprintf("user%d", i), "100", "pw", "BP")
	}

	var wg sync.WaitGroup
	tokens := make([]string, users*4)
	for i := 0; i < users*4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.Login(context.Background(), LoginInput{Username: fmt.Sprintf("user%d", i%users), Password: "pw"})
			if err == nil {
				tokens[i] = result.Token
			}
			f.service.ValidateToken(result.Token)
		}(i)
	}
	wg.Wait()

	require.Equal(t, users, f.service.Len())
	for i := 0; i < users; i++ {
		valid := 0
		for j := i; j < len(tokens); j += users {
			require.NotEmpty(t, tokens[j])
			if _, ok := f.service.ValidateToken(tokens[j]); ok {
				valid++
			}
		}
		require.Equal(t, 1, valid, "exactly one live token per user")
	}
}
