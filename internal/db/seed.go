package db

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/models"
)

// seedPermission describes one entry of the default permission catalog.
type seedPermission struct {
	name, description, resource, action string
}

var defaultPermissions = []seedPermission{
	{"routes:create", "Create new routes", "routes", "create"},
	{"routes:read", "View routes", "routes", "read"},
	{"routes:update", "Update routes", "routes", "update"},
	{"routes:delete", "Delete routes", "routes", "delete"},
	{"routes:export", "Export routes", "routes", "export"},

	{"operations:create", "Create new operations", "operations", "create"},
	{"operations:read", "View operations", "operations", "read"},
	{"operations:update", "Update operations", "operations", "update"},
	{"operations:delete", "Delete operations", "operations", "delete"},

	{"users:create", "Create new users", "users", "create"},
	{"users:read", "View users", "users", "read"},
	{"users:update", "Update users", "users", "update"},
	{"users:delete", "Delete users", "users", "delete"},

	{"roles:create", "Create new roles", "roles", "create"},
	{"roles:read", "View roles", "roles", "read"},
	{"roles:update", "Update roles", "roles", "update"},
	{"roles:delete", "Delete roles", "roles", "delete"},

	{"system:admin", "System administration", "system", "admin"},
	{"audit_logs:read", "View audit logs", "audit_logs", "read"},
}

// seedRole describes one built-in system role and its permission set.
type seedRole struct {
	name, description string
	permissions       []string
}

var systemRoles = []seedRole{
	{"worker", "Basic worker role with read access to routes", []string{
		"routes:read", "operations:read",
	}},
	{"engineer", "Engineer role with full route and operation access", []string{
		"routes:create", "routes:read", "routes:update", "routes:delete", "routes:export",
		"operations:create", "operations:read", "operations:update", "operations:delete",
	}},
	{"manager", "Manager role with route and user oversight", []string{
		"routes:create", "routes:read", "routes:update", "routes:delete", "routes:export",
		"operations:read",
		"users:read", "audit_logs:read",
	}},
	{"admin", "Administrator role with full access", []string{"*:*"}},
}

// SeedDefaults creates the permission catalog and system roles when absent.
// Existing rows are left untouched so operator edits survive restarts.
func SeedDefaults(db *gorm.DB) error {
	for _, p := range defaultPermissions {
		var existing models.Permission
		err := db.Where("name = ?", p.name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			perm := models.Permission{
				Name:        p.name,
				Description: p.description,
				Resource:    p.resource,
				Action:      p.action,
			}
			if err := db.Create(&perm).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", p.name, err)
			}
		} else if err != nil {
			return err
		}
	}

	// admin's wildcard permission is part of the catalog too
	var wildcard models.Permission
	if err := db.Where("name = ?", "*:*").First(&wildcard).Error; err == gorm.ErrRecordNotFound {
		wildcard = models.Permission{
			Name:        "*:*",
			Description: "All permissions",
			Resource:    "*",
			Action:      "*",
		}
		if err := db.Create(&wildcard).Error; err != nil {
			return fmt.Errorf("seed wildcard permission: %w", err)
		}
	}

	for _, r := range systemRoles {
		var role models.Role
		err := db.Where("name = ?", r.name).First(&role).Error
		if err == gorm.ErrRecordNotFound {
			role = models.Role{
				Name:         r.name,
				Description:  r.description,
				IsSystemRole: true,
			}
			if err := db.Create(&role).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", r.name, err)
			}

			var perms []models.Permission
			if err := db.Where("name IN ?", r.permissions).Find(&perms).Error; err != nil {
				return err
			}
			if err := db.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return fmt.Errorf("seed role permissions for %s: %w", r.name, err)
			}
			slog.Info("Created system role", "role", r.name, "permissions", len(perms))
		} else if err != nil {
			return err
		}
	}

	return nil
}
