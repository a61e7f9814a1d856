package db

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/auth"
	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

// CreateDefaultAdmin creates the initial admin account on first start. The
// password comes from config; when unset a random one is generated and
// logged once so fresh installs are never left passwordless.
func CreateDefaultAdmin(db *gorm.DB, cfg config.AuthConfig) error {
	if cfg.DisableDefaultAdmin {
		return nil
	}

	var existing models.User
	if err := db.Where("username = ?", cfg.DefaultAdminUser).First(&existing).Error; err == nil {
		return nil
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	password := cfg.DefaultAdminPass
	generated := false
	if password == "" {
		var err error
		password, err = auth.GeneratePassword(16)
		if err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		generated = true
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := models.User{
		Username:     cfg.DefaultAdminUser,
		Email:        cfg.DefaultAdminEmail,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	var adminRole models.Role
	if err := db.Where("name = ?", "admin").First(&adminRole).Error; err != nil {
		return fmt.Errorf("admin role not seeded: %w", err)
	}
	if err := db.Model(&user).Association("Roles").Append(&adminRole); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}

	if generated {
		slog.Info("Created default admin user with generated password",
			"username", user.Username, "password", password)
	} else {
		slog.Info("Created default admin user", "username", user.Username)
	}
	return nil
}
