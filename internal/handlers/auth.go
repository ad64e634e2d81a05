package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/sessiongate/internal/auth"
	"github.com/charlesng35/sessiongate/internal/middleware"
	appErrors "github.com/charlesng35/sessiongate/pkg/errors"
	"github.com/charlesng35/sessiongate/pkg/response"
)

// SessionManager is the part of the session service the HTTP layer needs.
type SessionManager interface {
	Login(ctx context.Context, input iauth.LoginInput) (iauth.LoginResult, error)
	ValidateToken(token string) (*iauth.LoginResult, bool)
	Revoke(loginName string) bool
}

// AuthHandler manages authentication flows (login/validate/me/logout).
type AuthHandler struct {
	sessions SessionManager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions SessionManager) (*AuthHandler, error) {
	if sessions == nil {
		return nil, errors.New("auth handler: session manager is required")
	}
	return &AuthHandler{sessions: sessions}, nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
	ClientID string `json:"client_id"`
}

type validateRequest struct {
	Token string `json:"token" validate:"required,notblank"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.sessions.Login(requestContext(c), iauth.LoginInput{
		Username: req.Username,
		Password: req.Password,
		ClientID: req.ClientID,
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !result.AccessGranted {
		// one answer for every rejection
		response.Error(c, appErrors.ErrInvalidCredentials)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /api/auth/validate
func (h *AuthHandler) Validate(c *gin.Context) {
	var req validateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, ok := h.sessions.ValidateToken(req.Token)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	login, ok := middleware.LoginFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, login)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	login, ok := middleware.LoginFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	revoked := h.sessions.Revoke(login.LoginName)
	response.Success(c, http.StatusOK, gin.H{"revoked": revoked})
}
