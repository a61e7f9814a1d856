package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

const (
	// UserContextKey is the key used to store user in Gin context
	UserContextKey = "user"
	// TokenDuration is the validity period for JWT tokens
	TokenDuration = 24 * time.Hour
)

// BasicAuthenticator implements username/password authentication with
// account lockout and optional TOTP 2FA.
type BasicAuthenticator struct {
	db               *gorm.DB
	jwtSecret        []byte
	maxLoginAttempts int
	lockoutDuration  time.Duration
}

// NewBasicAuthenticator creates a new basic authenticator
func NewBasicAuthenticator(db *gorm.DB, cfg config.AuthConfig) *BasicAuthenticator {
	maxAttempts := cfg.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	lockout := time.Duration(cfg.LockoutMinutes) * time.Minute
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &BasicAuthenticator{
		db:               db,
		jwtSecret:        []byte(cfg.JWTSecret),
		maxLoginAttempts: maxAttempts,
		lockoutDuration:  lockout,
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches the hash
func VerifyPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Claims represents JWT claims
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Login authenticates a user and returns a JWT token. Failed attempts are
// counted; reaching the limit locks the account for the lockout duration.
func (a *BasicAuthenticator) Login(req LoginRequest, ipAddress string) (*LoginResponse, error) {
	var user models.User
	result := a.db.Preload("Roles.Permissions").Where("username = ?", req.Username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Warn("Login attempt with non-existent username", "username", req.Username, "ip", ipAddress)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	if user.IsLocked() {
		slog.Warn("Login attempt on locked account", "username", user.Username, "ip", ipAddress)
		return nil, ErrAccountLocked
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if !VerifyPassword(user.PasswordHash, req.Password) {
		a.recordFailedAttempt(&user)
		slog.Warn("Login attempt with incorrect password", "username", user.Username, "ip", ipAddress)
		return nil, ErrInvalidCredentials
	}

	if user.Is2FAEnabled {
		if req.TOTPCode == "" {
			return &LoginResponse{Requires2FA: true}, nil
		}
		if !VerifyTOTP(user.TOTPSecret, req.TOTPCode, time.Now()) {
			if !consumeBackupCode(a.db, &user, req.TOTPCode) {
				a.recordFailedAttempt(&user)
				return nil, ErrInvalidTOTP
			}
		}
	}

	now := time.Now().UTC()
	a.db.Model(&user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login":            now,
	})
	user.LastLogin = &now

	token, err := a.generateToken(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	profile := user.Profile()
	slog.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{Token: token, User: &profile}, nil
}

// recordFailedAttempt increments the failure counter and locks the account
// when the limit is reached.
func (a *BasicAuthenticator) recordFailedAttempt(user *models.User) {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}
	if attempts >= a.maxLoginAttempts {
		lockedUntil := time.Now().UTC().Add(a.lockoutDuration)
		updates["locked_until"] = lockedUntil
		slog.Warn("Account locked after repeated failures",
			"username", user.Username, "attempts", attempts, "locked_until", lockedUntil)
	}
	a.db.Model(user).Updates(updates)
}

// generateToken creates a JWT token for a user
func (a *BasicAuthenticator) generateToken(user *models.User) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "routecraft",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// validateToken validates a JWT token and returns claims
func (a *BasicAuthenticator) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// Middleware returns a Gin middleware for authentication. Tokens are read
// from the Authorization header or, as a fallback, the token query param.
func (a *BasicAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			c.Abort()
			return
		}

		user, err := a.validateAndLoadUser(tokenString)
		if err != nil {
			slog.Warn("Invalid token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account is deactivated"})
			c.Abort()
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}

// validateAndLoadUser validates a JWT and loads the user with roles and
// permissions from the database.
func (a *BasicAuthenticator) validateAndLoadUser(tokenString string) (*models.User, error) {
	claims, err := a.validateToken(tokenString)
	if err != nil {
		return nil, err
	}

	var user models.User
	if result := a.db.Preload("Roles.Permissions").First(&user, claims.UserID); result.Error != nil {
		return nil, fmt.Errorf("user not found: %w", result.Error)
	}
	return &user, nil
}

// GetUserFromContext extracts the authenticated user from the Gin context
func (a *BasicAuthenticator) GetUserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, ErrUnauthorized
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("invalid user in context")
	}
	return user, nil
}
