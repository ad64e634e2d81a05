package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/sessiongate/internal/auth"
	"github.com/charlesng35/sessiongate/pkg/errors"
	"github.com/charlesng35/sessiongate/pkg/response"
)

const (
	CtxLoginKey     = "authLogin"
	CtxLoginNameKey = "loginName"
	CtxTokenKey     = "authToken"
)

// TokenValidator resolves a bearer token to the login that owns it.
type TokenValidator interface {
	ValidateToken(token string) (*iauth.LoginResult, bool)
}

// Auth enforces bearer token authentication against the session store.
func Auth(sessions TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		login, valid := sessions.ValidateToken(token)
		if !valid {
			// unknown, expired and tampered tokens look the same
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		c.Set(CtxLoginKey, login)
		c.Set(CtxLoginNameKey, login.LoginName)
		c.Set(CtxTokenKey, token)

		c.Next()
	}
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[7:])
	return token, token != ""
}

// LoginFromContext returns the login stored by Auth.
func LoginFromContext(c *gin.Context) (*iauth.LoginResult, bool) {
	value, ok := c.Get(CtxLoginKey)
	if !ok {
		return nil, false
	}
	login, ok := value.(*iauth.LoginResult)
	return login, ok && login != nil
}
