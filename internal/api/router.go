package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sessiongate/internal/app"
	"github.com/charlesng35/sessiongate/internal/handlers"
	"github.com/charlesng35/sessiongate/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers the session gateway routes.
func NewRouter(db *gorm.DB, sessions handlers.SessionManager, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, db)

	authHandler, err := handlers.NewAuthHandler(sessions)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(sessions))

	registerAuthRoutes(r, api, authRouteDeps{AuthHandler: authHandler})
	registerMonitoringRoutes(r, cfg.Monitoring.Prometheus)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
