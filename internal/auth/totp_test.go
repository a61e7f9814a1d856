package auth

import (
	"encoding/base32"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesfabric/routecraft/internal/models"
)

// rfcSecret is the RFC 6238 test secret "12345678901234567890".
var rfcSecret = base32.StdEncoding.WithPadding(base32.NoPadding).
	EncodeToString([]byte("12345678901234567890"))

func TestVerifyTOTP_RFCVectors(t *testing.T) {
	// Last six digits of the RFC 6238 appendix B SHA-1 reference values.
	tests := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tt := range tests {
		at := time.Unix(tt.unix, 0).UTC()
		if !VerifyTOTP(rfcSecret, tt.code, at) {
			t.Errorf("code %s at %d should verify", tt.code, tt.unix)
		}
	}
}

func TestVerifyTOTP_AcceptsAdjacentStep(t *testing.T) {
	// 287082 is valid for the step containing t=59; one step later it still
	// passes via skew, two steps later it does not.
	if !VerifyTOTP(rfcSecret, "287082", time.Unix(59+30, 0)) {
		t.Error("previous step code should verify within skew")
	}
	if VerifyTOTP(rfcSecret, "287082", time.Unix(59+90, 0)) {
		t.Error("code two steps old should not verify")
	}
}

func TestVerifyTOTP_Rejects(t *testing.T) {
	now := time.Now()
	if VerifyTOTP("", "123456", now) {
		t.Error("empty secret must not verify")
	}
	if VerifyTOTP(rfcSecret, "12345", now) {
		t.Error("wrong-length code must not verify")
	}
	if VerifyTOTP("not!base32", "123456", now) {
		t.Error("undecodable secret must not verify")
	}
}

func TestGenerateTOTPSecret_RoundTrip(t *testing.T) {
	secret, err := GenerateTOTPSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret); err != nil {
		t.Fatalf("secret is not valid base32: %v", err)
	}

	uri := TOTPProvisioningURI(secret, "ivanova")
	if !strings.HasPrefix(uri, "otpauth://totp/routecraft:ivanova") {
		t.Errorf("unexpected provisioning URI: %s", uri)
	}
	if !strings.Contains(uri, "secret="+secret) {
		t.Error("provisioning URI must carry the secret")
	}
}

func TestConsumeBackupCode_SingleUse(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	codes, err := GenerateBackupCodes()
	if err != nil {
		t.Fatalf("generate backup codes: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("got %d codes, want 10", len(codes))
	}

	raw, _ := json.Marshal(codes)
	user := &models.User{
		Username:     "ivanova",
		Email:        "ivanova@example.com",
		PasswordHash: "x",
		BackupCodes:  string(raw),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	if !consumeBackupCode(db, user, codes[3]) {
		t.Fatal("valid backup code should be accepted")
	}

	// Reload and try the same code again.
	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if consumeBackupCode(db, &reloaded, codes[3]) {
		t.Error("a backup code must work exactly once")
	}

	var remaining []string
	if err := json.Unmarshal([]byte(reloaded.BackupCodes), &remaining); err != nil {
		t.Fatalf("decode remaining codes: %v", err)
	}
	if len(remaining) != 9 {
		t.Errorf("got %d remaining codes, want 9", len(remaining))
	}

	if consumeBackupCode(db, &reloaded, "NOTACODE") {
		t.Error("unknown code must be rejected")
	}
}
