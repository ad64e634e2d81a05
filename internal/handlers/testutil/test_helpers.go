package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/api"
	"github.com/charlesng35/sessiongate/internal/app"
	iauth "github.com/charlesng35/sessiongate/internal/auth"
	"github.com/charlesng35/sessiongate/internal/auth/providers"
	"github.com/charlesng35/sessiongate/internal/database"
	sharedtestutil "github.com/charlesng35/sessiongate/internal/database/testutil"
	"github.com/charlesng35/sessiongate/internal/directory"
	"github.com/charlesng35/sessiongate/pkg/response"
)

const (
	testSecret = "test-suite-super-secret-key-32-bytes!!"
	testIssuer = "test-suite"
)

// Clock is a manually advanced time source shared by every service in an Env.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Sessions *iauth.SessionService
	Clock    *Clock
}

// EnvOption customises the configuration used by NewEnv.
type EnvOption func(*app.Config)

// WithLocalAuth overrides the credential and lockout settings.
func WithLocalAuth(settings app.LocalAuthSettings) EnvOption {
	return func(cfg *app.Config) {
		cfg.Auth.Local = settings
	}
}

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Auth.JWT.TTL = ttl
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	clock := &Clock{current: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: testSecret,
				Issuer: testIssuer,
				TTL:    time.Hour,
			},
			Local: app.LocalAuthSettings{
				LockDuration:      30 * time.Minute,
				InactivityDays:    90,
				MaxFailedAttempts: 3,
			},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	log := zap.NewNop()

	dir, err := directory.NewGormDirectory(db)
	require.NoError(t, err)

	lockoutCfg := cfg.Auth.LockoutConfig()
	lockoutCfg.Clock = clock.Now
	lockoutCfg.Logger = log
	lockout, err := iauth.NewLockoutPolicy(lockoutCfg)
	require.NoError(t, err)

	providerCfg := cfg.Auth.LocalProviderConfig()
	providerCfg.Logger = log
	provider, err := providers.NewLocalProvider(providerCfg)
	require.NoError(t, err)

	logins, err := iauth.NewLoginService(dir, lockout, provider, iauth.LoginServiceConfig{Clock: clock.Now, Logger: log})
	require.NoError(t, err)

	jwtCfg := cfg.Auth.JWTServiceConfig()
	jwtCfg.Clock = clock.Now
	signer, err := iauth.NewJWTService(jwtCfg)
	require.NoError(t, err)

	sessionCfg, err := cfg.Auth.SessionServiceConfig()
	require.NoError(t, err)
	sessionCfg.Clock = clock.Now
	sessionCfg.Logger = log
	sessions, err := iauth.NewSessionService(logins, signer, sessionCfg)
	require.NoError(t, err)

	router, err := api.NewRouter(db, sessions, cfg)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		Sessions: sessions,
		Clock:    clock,
	}
}

// Seed inserts directory users.
func (e *Env) Seed(users ...database.SeedUser) {
	e.T.Helper()
	_, err := database.SeedDemoData(e.DB, users...)
	require.NoError(e.T, err)
}

// LoginResult mirrors the handler login response payload.
type LoginResult struct {
	LoginName string `json:"login_name"`
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id"`
	Logged    bool   `json:"logged"`
	Token     string `json:"token"`
}

// Login authenticates and returns the issued session.
func (e *Env) Login(username, password, clientID string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"username":  username,
		"password":  password,
		"client_id": clientID,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.True(e.T, result.Logged)
	require.NotEmpty(e.T, result.Token)
	require.Equal(e.T, username, result.LoginName)

	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
