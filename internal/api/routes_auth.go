package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sessiongate/internal/handlers"
)

type authRouteDeps struct {
	AuthHandler *handlers.AuthHandler
}

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, deps authRouteDeps) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/validate", deps.AuthHandler.Validate)
	}

	api.GET("/auth/me", deps.AuthHandler.Me)
	api.POST("/auth/logout", deps.AuthHandler.Logout)
}
