package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a system user with 2FA and lockout support
type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	PhoneNumber  string `json:"phone_number,omitempty"`

	// 2FA
	TOTPSecret   string `json:"-"`
	BackupCodes  string `gorm:"type:text" json:"-"` // JSON array of unused backup codes
	Is2FAEnabled bool   `gorm:"column:is_2fa_enabled;not null;default:false" json:"is_2fa_enabled"`

	// Account security
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login"`

	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Roles []Role `gorm:"many2many:user_roles" json:"-"`
}

// IsLocked reports whether the account is currently locked out.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// RoleNames returns the names of all roles held by the user.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionNames returns the deduplicated permission names granted
// through the user's roles. Always a non-nil slice so API payloads
// serialize as arrays.
func (u *User) PermissionNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}
	return names
}

// UserProfile is the API payload for a user, with roles and permissions
// flattened to string arrays.
type UserProfile struct {
	ID           uint     `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Is2FAEnabled bool     `json:"is_2fa_enabled"`
	IsActive     bool     `json:"is_active"`
	IsLocked     bool     `json:"is_locked"`
	LastLogin    *string  `json:"last_login"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
}

// Profile builds the API payload for the user.
func (u *User) Profile() UserProfile {
	var lastLogin *string
	if u.LastLogin != nil {
		s := u.LastLogin.UTC().Format(time.RFC3339)
		lastLogin = &s
	}
	return UserProfile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		Is2FAEnabled: u.Is2FAEnabled,
		IsActive:     u.IsActive,
		IsLocked:     u.IsLocked(),
		LastLogin:    lastLogin,
		Roles:        u.RoleNames(),
		Permissions:  u.PermissionNames(),
	}
}
