package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/internal/directory"
	"github.com/charlesng35/sessiongate/internal/models"
	"github.com/charlesng35/sessiongate/pkg/logger"
	"github.com/charlesng35/sessiongate/pkg/metrics"
)

// LoginInput carries the credentials of one login attempt. ClientID is optional.
type LoginInput struct {
	Username string
	Password string
	ClientID string
}

// LoginResult is the outcome of one login attempt. Empty strings mark absent fields.
type LoginResult struct {
	LoginName     string `json:"login_name"`
	ClientID      string `json:"client_id"`
	UserID        string `json:"user_id"`
	AccessGranted bool   `json:"logged"`
	Token         string `json:"token"`
}

// Authenticator partitions directory candidates by credential match.
type Authenticator interface {
	Authenticate(candidates []*models.User, password string) (passed, failed []*models.User)
}

// LoginServiceConfig tunes the LoginService.
type LoginServiceConfig struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

// LoginService resolves a username/password pair to a single directory user.
type LoginService struct {
	dir     directory.Directory
	lockout *LockoutPolicy
	auth    Authenticator
	now     func() time.Time
	log     *zap.Logger
}

// NewLoginService wires the directory, lockout policy and authenticator together.
func NewLoginService(dir directory.Directory, lockout *LockoutPolicy, authenticator Authenticator, cfg LoginServiceConfig) (*LoginService, error) {
	if dir == nil {
		return nil, errors.New("login service: directory is required")
	}
	if lockout == nil {
		return nil, errors.New("login service: lockout policy is required")
	}
	if authenticator == nil {
		return nil, errors.New("login service: authenticator is required")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}
	log := cfg.Logger
	if log == nil {
		log = logger.WithModule("auth.login")
	}

	return &LoginService{
		dir:     dir,
		lockout: lockout,
		auth:    authenticator,
		now:     now,
		log:     log,
	}, nil
}

// Login runs one attempt. Rejections come back as a result with AccessGranted false and no
// reason; the error is reserved for failures of the directory itself.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	if input.Username == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return LoginResult{}, nil
	}

	result := LoginResult{LoginName: input.Username}

	err := s.dir.Transaction(ctx, func(tx directory.Directory) error {
		users, err := tx.FindByUsername(ctx, input.Username)
		if err != nil {
			return err
		}

		s.lockout.Precheck(ctx, tx, users)
		if len(users) == 0 {
			return nil
		}

		passed, failed := s.auth.Authenticate(users, input.Password)
		s.lockout.RecordFailures(ctx, tx, failed)

		selected := selectUser(passed, input.ClientID)
		if selected == nil {
			return nil
		}

		if err := tx.RecordLogin(ctx, selected.ID, s.now()); err != nil {
			s.log.Warn("record login failed", zap.String("user_id", selected.ID), zap.Error(err))
		}

		granted, err := tx.HasBusinessPartner(ctx, selected.ID)
		if err != nil {
			s.log.Warn("business partner lookup failed", zap.String("user_id", selected.ID), zap.Error(err))
			granted = false
		}

		result.ClientID = selected.ClientID
		result.UserID = selected.ID
		result.AccessGranted = granted
		return nil
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		s.log.Error("login directory failure", zap.String("login_name", input.Username), zap.Error(err))
		return LoginResult{LoginName: input.Username}, fmt.Errorf("login service: %w", err)
	}

	if result.AccessGranted {
		metrics.AuthAttempts.WithLabelValues("success").Inc()
	} else {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
	}
	return result, nil
}

// selectUser picks the only passed record, or otherwise the first one scoped to clientID.
func selectUser(passed []*models.User, clientID string) *models.User {
	if len(passed) == 1 {
		return passed[0]
	}
	if clientID == "" {
		return nil
	}
	for _, user := range passed {
		if user.ClientID == clientID {
			return user
		}
	}
	return nil
}
