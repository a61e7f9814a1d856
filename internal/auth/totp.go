package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/models"
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6
	// totpSkew is the number of adjacent time steps accepted either side
	// of the current one to absorb clock drift.
	totpSkew = 1

	backupCodeCount  = 10
	backupCodeLength = 8
)

// GenerateTOTPSecret returns a new base32-encoded shared secret.
func GenerateTOTPSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// TOTPProvisioningURI builds an otpauth:// URI for authenticator apps.
func TOTPProvisioningURI(secret, username string) string {
	return fmt.Sprintf("otpauth://totp/routecraft:%s?secret=%s&issuer=routecraft",
		url.PathEscape(username), secret)
}

// VerifyTOTP checks a 6-digit code against the secret, accepting one time
// step of drift in either direction.
func VerifyTOTP(secret, code string, at time.Time) bool {
	if secret == "" || len(code) != totpDigits {
		return false
	}
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return false
	}
	counter := uint64(at.Unix()) / uint64(totpPeriod.Seconds())
	for delta := -totpSkew; delta <= totpSkew; delta++ {
		if hotp(key, counter+uint64(int64(delta))) == code {
			return true
		}
	}
	return false
}

// VerifyTOTPNow checks a code against the current time.
func VerifyTOTPNow(secret, code string) bool {
	return VerifyTOTP(secret, code, time.Now())
}

// hotp computes an RFC 4226 HMAC-based one-time password.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000)
}

// GenerateBackupCodes returns a fresh set of single-use recovery codes.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		code, err := randomString(backupCodeLength, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// consumeBackupCode checks the code against the user's stored backup codes
// and removes it on a match. Each code works exactly once.
func consumeBackupCode(db *gorm.DB, user *models.User, code string) bool {
	if user.BackupCodes == "" {
		return false
	}
	var codes []string
	if err := json.Unmarshal([]byte(user.BackupCodes), &codes); err != nil {
		return false
	}
	for i, c := range codes {
		if c == code {
			remaining := append(codes[:i:i], codes[i+1:]...)
			data, err := json.Marshal(remaining)
			if err != nil {
				return false
			}
			db.Model(user).Update("backup_codes", string(data))
			return true
		}
	}
	return false
}

// GeneratePassword returns a random password of the given length drawn from
// a mixed alphabet.
func GeneratePassword(length int) (string, error) {
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")
}

func randomString(length int, alphabet string) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
