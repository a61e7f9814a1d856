// Package rbac enforces role-based access control with Casbin. Permissions
// follow the resource:action convention; "*" on either side of a policy
// matches everything, so the admin role's "*:*" permission subsumes all
// concrete grants.
package rbac

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/models"
)

//go:embed model.conf
var modelConf string

var enforcer *casbin.Enforcer

// userSubject formats a user ID as a Casbin subject. Role names are used
// as-is; the prefix keeps the two namespaces from colliding.
func userSubject(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// InitEnforcer initializes the Casbin enforcer and rebuilds its policy
// store from the role and permission tables, which stay the source of truth.
func InitEnforcer(db *gorm.DB, logger *slog.Logger) error {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	enforcer = e
	if err := Rebuild(db); err != nil {
		return fmt.Errorf("failed to rebuild policies: %w", err)
	}
	logger.Info("RBAC enforcer initialized")
	return nil
}

// GetEnforcer returns the global enforcer instance
func GetEnforcer() *casbin.Enforcer {
	return enforcer
}

// Rebuild clears the enforcer and reloads every role-permission policy and
// user-role grouping from the database.
func Rebuild(db *gorm.DB) error {
	enforcer.ClearPolicy()

	var roles []models.Role
	if err := db.Preload("Permissions").Preload("Users").Find(&roles).Error; err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	for _, role := range roles {
		for _, perm := range role.Permissions {
			if _, err := enforcer.AddPolicy(role.Name, perm.Resource, perm.Action); err != nil {
				return err
			}
		}
		for _, user := range role.Users {
			if _, err := enforcer.AddGroupingPolicy(userSubject(user.ID), role.Name); err != nil {
				return err
			}
		}
	}

	return enforcer.SavePolicy()
}

// HasPermission checks whether a user may perform an action on a resource.
func HasPermission(userID uint, resource, action string) (bool, error) {
	return enforcer.Enforce(userSubject(userID), resource, action)
}

// HasRole checks whether a user holds a role, directly or transitively.
func HasRole(userID uint, roleName string) (bool, error) {
	return enforcer.HasGroupingPolicy(userSubject(userID), roleName)
}

// GrantPermission attaches a resource:action policy to a role.
func GrantPermission(roleName, resource, action string) error {
	if _, err := enforcer.AddPolicy(roleName, resource, action); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// RevokePermission removes a resource:action policy from a role.
func RevokePermission(roleName, resource, action string) error {
	if _, err := enforcer.RemovePolicy(roleName, resource, action); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// AssignRole adds a user to a role.
func AssignRole(userID uint, roleName string) error {
	if _, err := enforcer.AddGroupingPolicy(userSubject(userID), roleName); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// RevokeRole removes a user from a role.
func RevokeRole(userID uint, roleName string) error {
	if _, err := enforcer.RemoveGroupingPolicy(userSubject(userID), roleName); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}

// DeleteRole drops every policy and grouping that mentions the role.
func DeleteRole(roleName string) error {
	if _, err := enforcer.RemoveFilteredPolicy(0, roleName); err != nil {
		return err
	}
	if _, err := enforcer.RemoveFilteredGroupingPolicy(1, roleName); err != nil {
		return err
	}
	return enforcer.SavePolicy()
}
