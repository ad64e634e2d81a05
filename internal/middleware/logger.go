package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/pkg/logger"
)

// Logger writes a concise structured access log for each request. Request bodies are
// never logged since they carry passwords and tokens.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if name := c.GetString(CtxLoginNameKey); name != "" {
			fields = append(fields, zap.String("login_name", name))
		}

		logger.WithModule("http").Info("request", fields...)
	}
}
