package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appErrors "github.com/charlesng35/sessiongate/pkg/errors"
	"github.com/charlesng35/sessiongate/pkg/logger"
	"github.com/charlesng35/sessiongate/pkg/response"
)

const healthPingTimeout = 2 * time.Second

// Health reports readiness, including a database ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := pingDatabase(requestContext(c), db); err != nil {
			logger.WithModule("health").Warn("database ping failed", zap.Error(err))
			response.Error(c, appErrors.ErrServiceUnavailable)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return appErrors.ErrServiceUnavailable
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
