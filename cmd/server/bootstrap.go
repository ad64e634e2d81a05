package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/api"
	"github.com/charlesng35/sessiongate/internal/app"
	iauth "github.com/charlesng35/sessiongate/internal/auth"
	"github.com/charlesng35/sessiongate/internal/auth/providers"
	"github.com/charlesng35/sessiongate/internal/database"
	"github.com/charlesng35/sessiongate/internal/directory"
	"github.com/charlesng35/sessiongate/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Directory  *directory.GormDirectory
	SessionSvc *iauth.SessionService
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, the login pipeline and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Directory, err = directory.NewGormDirectory(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise directory: %w", err)
	}

	lockout, err := iauth.NewLockoutPolicy(cfg.Auth.LockoutConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise lockout policy: %w", err)
	}

	provider, err := providers.NewLocalProvider(cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise credential provider: %w", err)
	}
	log.Info("credential mode selected", zap.String("mode", provider.Mode()))

	logins, err := iauth.NewLoginService(stack.Directory, lockout, provider, iauth.LoginServiceConfig{})
	if err != nil {
		return nil, fmt.Errorf("initialise login service: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg, err := cfg.Auth.SessionServiceConfig()
	if err != nil {
		return nil, err
	}
	stack.SessionSvc, err = iauth.NewSessionService(logins, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.SessionSvc, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown() error {
	if s == nil {
		return nil
	}

	var err error
	if s.SessionSvc != nil {
		logger.WithModule("bootstrap").Info("dropping in-memory sessions", zap.Int("entries", s.SessionSvc.Len()))
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
		s.DB = nil
	}
	return err
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, multierr.Append(fmt.Errorf("auto-migrate database: %w", err), database.Close(db))
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	var hosted *app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		hosted = &cfg.Database.Postgres
	case "mysql":
		hosted = &cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	if hosted != nil {
		dbCfg.Host = strings.TrimSpace(hosted.Host)
		dbCfg.Port = hosted.Port
		dbCfg.Name = strings.TrimSpace(hosted.Database)
		dbCfg.User = strings.TrimSpace(hosted.Username)
		dbCfg.Password = hosted.Password
		dbCfg.Options = hosted.Options
	}

	return dbCfg
}
