package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

// OIDCAuthenticator provides generic OIDC authentication. Successful
// callbacks mint the same JWT tokens that password logins use.
type OIDCAuthenticator struct {
	provider  *oidc.Provider
	config    *oauth2.Config
	verifier  *oidc.IDTokenVerifier
	db        *gorm.DB
	basicAuth *BasicAuthenticator
}

// NewOIDCAuthenticator creates a new OIDC authenticator
func NewOIDCAuthenticator(ctx context.Context, cfg config.AuthConfig, db *gorm.DB) (*OIDCAuthenticator, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.OIDCRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.OIDCClientID,
	})

	return &OIDCAuthenticator{
		provider:  provider,
		config:    oauth2Config,
		verifier:  verifier,
		db:        db,
		basicAuth: NewBasicAuthenticator(db, cfg),
	}, nil
}

// GetAuthURL returns the URL to redirect users to for authentication
func (a *OIDCAuthenticator) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// HandleCallback exchanges the OAuth2 code, verifies the ID token and
// returns a login response for the matched or newly provisioned user.
func (a *OIDCAuthenticator) HandleCallback(ctx context.Context, code string) (*LoginResponse, error) {
	oauth2Token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Sub               string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}
	if username == "" {
		username = claims.Sub
	}

	user, err := a.findOrCreateUser(username, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	token, err := a.basicAuth.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	profile := user.Profile()
	slog.Info("User logged in via OIDC", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{Token: token, User: &profile}, nil
}

// findOrCreateUser looks up an existing account by username or email and
// provisions a passwordless one when absent. New OIDC users start with the
// worker role so they can at least read routes.
func (a *OIDCAuthenticator) findOrCreateUser(username, email string) (*models.User, error) {
	var user models.User

	result := a.db.Preload("Roles.Permissions").Where("username = ? OR email = ?", username, email).First(&user)
	if result.Error == nil {
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	user = models.User{
		Username: username,
		Email:    email,
		// OIDC users have no local password
		PasswordHash: "",
		IsActive:     true,
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	var worker models.Role
	if err := a.db.Where("name = ?", "worker").First(&worker).Error; err == nil {
		if err := a.db.Model(&user).Association("Roles").Append(&worker); err != nil {
			slog.Warn("Failed to assign default role to OIDC user", "user_id", user.ID, "error", err)
		}
	}

	slog.Info("Created new user from OIDC", "user_id", user.ID, "username", user.Username, "email", email)
	return &user, nil
}
