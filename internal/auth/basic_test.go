package auth

import (
	"encoding/base32"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

func setupBasicAuth(t *testing.T, cfg config.AuthConfig) (*BasicAuthenticator, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Role{}, &models.Permission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "test-secret"
	}
	return NewBasicAuthenticator(db, cfg), db
}

func createLoginUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("correct password should verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("wrong password should not verify")
	}
}

func TestLogin_Success(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "petrov", "s3cret-pass")

	// A prior failure should be wiped on success.
	db.Model(user).Update("failed_login_attempts", 2)

	resp, err := auth.Login(LoginRequest{Username: "petrov", Password: "s3cret-pass"}, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.Requires2FA {
		t.Error("2FA should not be requested")
	}
	if resp.User == nil || resp.User.Username != "petrov" {
		t.Fatalf("unexpected profile: %+v", resp.User)
	}

	claims, err := auth.validateToken(resp.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "petrov" {
		t.Errorf("claims = %d/%s, want %d/petrov", claims.UserID, claims.Username, user.ID)
	}
	if claims.Issuer != "routecraft" {
		t.Errorf("issuer = %q", claims.Issuer)
	}

	var reloaded models.User
	db.First(&reloaded, user.ID)
	if reloaded.FailedLoginAttempts != 0 {
		t.Errorf("failed attempts = %d after success, want 0", reloaded.FailedLoginAttempts)
	}
	if reloaded.LastLogin == nil {
		t.Error("last login should be recorded")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	auth, _ := setupBasicAuth(t, config.AuthConfig{})
	_, err := auth.Login(LoginRequest{Username: "ghost", Password: "x"}, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_WrongPasswordLocksAccount(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{MaxLoginAttempts: 3, LockoutMinutes: 15})
	user := createLoginUser(t, db, "sidorov", "right-pass")

	for i := 0; i < 3; i++ {
		_, err := auth.Login(LoginRequest{Username: "sidorov", Password: "wrong"}, "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	var locked models.User
	db.First(&locked, user.ID)
	if locked.FailedLoginAttempts != 3 {
		t.Errorf("failed attempts = %d, want 3", locked.FailedLoginAttempts)
	}
	if !locked.IsLocked() {
		t.Fatal("account should be locked after the third failure")
	}

	// Even the right password is rejected while the lock holds.
	_, err := auth.Login(LoginRequest{Username: "sidorov", Password: "right-pass"}, "")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
}

func TestLogin_ExpiredLockIsIgnored(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "volkov", "pass-word")

	past := time.Now().UTC().Add(-time.Minute)
	db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 5,
		"locked_until":          past,
	})

	resp, err := auth.Login(LoginRequest{Username: "volkov", Password: "pass-word"}, "")
	if err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token once the lock expired")
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "dormant", "pass-word")
	db.Model(user).Update("is_active", false)

	_, err := auth.Login(LoginRequest{Username: "dormant", Password: "pass-word"}, "")
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
}

func TestLogin_Requires2FA(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "ivanova", "pass-word")
	db.Model(user).Updates(&models.User{Is2FAEnabled: true, TOTPSecret: rfcSecret})

	resp, err := auth.Login(LoginRequest{Username: "ivanova", Password: "pass-word"}, "")
	if err != nil {
		t.Fatalf("login without code: %v", err)
	}
	if !resp.Requires2FA {
		t.Fatal("expected requires_2fa with an empty code")
	}
	if resp.Token != "" {
		t.Error("no token may be issued before the 2FA code is checked")
	}
}

func TestLogin_WithTOTPCode(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "ivanova", "pass-word")
	db.Model(user).Updates(&models.User{Is2FAEnabled: true, TOTPSecret: rfcSecret})

	key, _ := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(rfcSecret)
	code := hotp(key, uint64(time.Now().Unix()/30))

	resp, err := auth.Login(LoginRequest{Username: "ivanova", Password: "pass-word", TOTPCode: code}, "")
	if err != nil {
		t.Fatalf("login with totp: %v", err)
	}
	if resp.Token == "" || resp.Requires2FA {
		t.Fatalf("unexpected response: token=%q requires2fa=%v", resp.Token, resp.Requires2FA)
	}

	_, err = auth.Login(LoginRequest{Username: "ivanova", Password: "pass-word", TOTPCode: "000000"}, "")
	if !errors.Is(err, ErrInvalidTOTP) {
		t.Fatalf("err = %v, want ErrInvalidTOTP", err)
	}
}

func TestLogin_BackupCodeFallback(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{})
	user := createLoginUser(t, db, "ivanova", "pass-word")

	codes, err := GenerateBackupCodes()
	if err != nil {
		t.Fatalf("generate backup codes: %v", err)
	}
	raw, _ := json.Marshal(codes)
	db.Model(user).Updates(&models.User{
		Is2FAEnabled: true,
		TOTPSecret:   rfcSecret,
		BackupCodes:  string(raw),
	})

	resp, err := auth.Login(LoginRequest{Username: "ivanova", Password: "pass-word", TOTPCode: codes[0]}, "")
	if err != nil {
		t.Fatalf("login with backup code: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token from the backup code path")
	}

	// The same backup code is rejected on reuse.
	_, err = auth.Login(LoginRequest{Username: "ivanova", Password: "pass-word", TOTPCode: codes[0]}, "")
	if !errors.Is(err, ErrInvalidTOTP) {
		t.Fatalf("err = %v, want ErrInvalidTOTP on reuse", err)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	auth, db := setupBasicAuth(t, config.AuthConfig{JWTSecret: "secret-one"})
	user := createLoginUser(t, db, "petrov", "pass-word")

	token, err := auth.generateToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other, _ := setupBasicAuth(t, config.AuthConfig{JWTSecret: "secret-two"})
	if _, err := other.validateToken(token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
	if _, err := auth.validateToken("not-a-jwt"); err == nil {
		t.Error("garbage token must be rejected")
	}
	if _, err := auth.validateToken(token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}
