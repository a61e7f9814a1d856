package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrTOTPRequired       = errors.New("2fa code required")
	ErrInvalidTOTP        = errors.New("invalid 2fa code")
)

// LoginRequest represents a login request. TOTPCode is required when the
// account has 2FA enabled; a backup code is accepted in its place.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

// LoginResponse represents a login response. Requires2FA is set (with no
// token) when the password was accepted but a 2FA code is still needed.
type LoginResponse struct {
	Token       string              `json:"token,omitempty"`
	User        *models.UserProfile `json:"user,omitempty"`
	Requires2FA bool                `json:"requires_2fa,omitempty"`
}

// Authenticator is an interface for authentication providers
type Authenticator interface {
	// Login authenticates a user and returns a JWT token
	Login(req LoginRequest, ipAddress string) (*LoginResponse, error)

	// Middleware returns a Gin middleware for authentication
	Middleware() gin.HandlerFunc

	// GetUserFromContext extracts the authenticated user from the Gin context
	GetUserFromContext(c *gin.Context) (*models.User, error)
}
