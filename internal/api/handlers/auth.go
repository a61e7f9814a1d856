package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/auth"
	"github.com/mesfabric/routecraft/internal/queue"
	"github.com/mesfabric/routecraft/internal/service"
)

// AuthHandler serves login, registration, profile and 2FA endpoints.
type AuthHandler struct {
	db            *gorm.DB
	authenticator auth.Authenticator
	users         *service.AdminService
	emitter       *audit.Emitter
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, authenticator auth.Authenticator, users *service.AdminService, emitter *audit.Emitter) *AuthHandler {
	return &AuthHandler{db: db, authenticator: authenticator, users: users, emitter: emitter}
}

// Register godoc
// @Summary Register a new account
// @Description Self-service signup. New accounts start with the default
// @Description worker role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "Account details"
// @Success 201 {object} models.UserProfile
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username, email and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.Profile())
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token. Accounts with 2FA
// @Description enabled get requires_2fa back until a TOTP code is supplied.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.authenticator.Login(req, c.ClientIP())
	if err != nil {
		h.emitter.Emit(c.Request.Context(), queue.Event{
			Username:    req.Username,
			EventType:   audit.EventLoginFailed,
			Description: "Login failed",
			IPAddress:   c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
			Success:     false,
		})
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, auth.ErrInvalidTOTP):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid two-factor code"})
		case errors.Is(err, auth.ErrAccountLocked):
			c.JSON(http.StatusLocked, ErrorResponse{Error: "account is locked, try again later"})
		case errors.Is(err, auth.ErrAccountInactive):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "account is deactivated"})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	if resp.Requires2FA {
		c.JSON(http.StatusOK, resp)
		return
	}

	userID := resp.User.ID
	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &userID,
		Username:    resp.User.Username,
		EventType:   audit.EventLogin,
		Description: "User logged in",
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Success:     true,
	})
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// Logout godoc
// @Summary Log out
// @Description Tokens are stateless; logout records the event for auditing.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventLogout,
		Description: "User logged out",
		IPAddress:   c.ClientIP(),
		Success:     true,
	})
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword godoc
// @Summary Change own password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Password change"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "new password must be at least 8 characters"})
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "current password is incorrect"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.db.Model(user).Update("password_hash", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventPasswordChanged,
		Description: "Password changed",
		IPAddress:   c.ClientIP(),
		Success:     true,
	})
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

type totpSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Setup2FA godoc
// @Summary Begin 2FA enrollment
// @Description Generates a TOTP secret. 2FA stays disabled until the first
// @Description code is confirmed via the enable endpoint.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} totpSetupResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/2fa/setup [post]
func (h *AuthHandler) Setup2FA(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	if user.Is2FAEnabled {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "2FA is already enabled"})
		return
	}

	secret, err := auth.GenerateTOTPSecret()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if err := h.db.Model(user).Update("totp_secret", secret).Error; err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, totpSetupResponse{
		Secret:          secret,
		ProvisioningURI: auth.TOTPProvisioningURI(secret, user.Username),
	})
}

type totpEnableRequest struct {
	Code string `json:"code" binding:"required"`
}

type totpEnableResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// Enable2FA godoc
// @Summary Confirm 2FA enrollment
// @Description Verifies the first TOTP code and returns single-use backup
// @Description codes. They are shown exactly once.
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body totpEnableRequest true "First TOTP code"
// @Success 200 {object} totpEnableResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/2fa/enable [post]
func (h *AuthHandler) Enable2FA(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	if user.TOTPSecret == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "2FA setup has not been started"})
		return
	}

	var req totpEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !auth.VerifyTOTPNow(user.TOTPSecret, req.Code) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid two-factor code"})
		return
	}

	codes, err := auth.GenerateBackupCodes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	encoded, err := json.Marshal(codes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	err = h.db.Model(user).Updates(map[string]interface{}{
		"is_2fa_enabled": true,
		"backup_codes":   string(encoded),
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventTwoFactorEnabled,
		Description: "Two-factor authentication enabled",
		Success:     true,
	})
	c.JSON(http.StatusOK, totpEnableResponse{BackupCodes: codes})
}

type totpDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

// Disable2FA godoc
// @Summary Disable 2FA
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body totpDisableRequest true "Account password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /auth/2fa/disable [post]
func (h *AuthHandler) Disable2FA(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	var req totpDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "password is incorrect"})
		return
	}

	err := h.db.Model(user).Updates(map[string]interface{}{
		"is_2fa_enabled": false,
		"totp_secret":    "",
		"backup_codes":   "",
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventTwoFactorDisabled,
		Description: "Two-factor authentication disabled",
		Success:     true,
	})
	c.JSON(http.StatusOK, gin.H{"message": "2FA disabled"})
}

// OIDCHandler serves the OIDC login and callback endpoints.
type OIDCHandler struct {
	authenticator *auth.OIDCAuthenticator
}

// NewOIDCHandler creates a new OIDCHandler.
func NewOIDCHandler(authenticator *auth.OIDCAuthenticator) *OIDCHandler {
	return &OIDCHandler{authenticator: authenticator}
}

// LoginRedirect godoc
// @Summary Start OIDC login
// @Tags auth
// @Success 302
// @Router /auth/oidc/login [get]
func (h *OIDCHandler) LoginRedirect(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		state = "routecraft"
	}
	c.Redirect(http.StatusFound, h.authenticator.GetAuthURL(state))
}

// Callback godoc
// @Summary OIDC callback
// @Tags auth
// @Produce json
// @Success 200 {object} auth.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/oidc/callback [get]
func (h *OIDCHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing code"})
		return
	}

	resp, err := h.authenticator.HandleCallback(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: fmt.Sprintf("OIDC login failed: %v", err)})
		return
	}
	c.JSON(http.StatusOK, resp)
}
