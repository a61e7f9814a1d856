package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/auth"
	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
	"github.com/mesfabric/routecraft/internal/rbac"
)

var (
	roleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{2,64}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// defaultRegisterRole is granted to every self-registered account.
const defaultRegisterRole = "worker"

// AdminService contains the business logic for user, role and permission
// administration. Every mutation keeps the Casbin policy store in sync with
// the relational tables.
type AdminService struct {
	db      *gorm.DB
	emitter *audit.Emitter
}

// NewAdminService creates a new AdminService.
func NewAdminService(db *gorm.DB, emitter *audit.Emitter) *AdminService {
	return &AdminService{db: db, emitter: emitter}
}

// ListUsers returns all users with roles and permissions preloaded.
func (s *AdminService) ListUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.Preload("Roles.Permissions").Order("username").Find(&users).Error
	return users, err
}

// GetUser returns a single user by ID.
func (s *AdminService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Roles.Permissions").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Register provisions a self-service account. New accounts start out with
// the default worker role when it exists.
func (s *AdminService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if len(req.Username) < 3 || len(req.Username) > 80 {
		return nil, &ValidationError{Message: "username must be between 3 and 80 characters"}
	}
	if !usernamePattern.MatchString(req.Username) {
		return nil, &ValidationError{Message: "username may only contain letters, numbers, underscores and hyphens"}
	}
	if len(req.Password) < 8 {
		return nil, &ValidationError{Message: "password must be at least 8 characters"}
	}
	if !strings.Contains(req.Email, "@") {
		return nil, &ValidationError{Message: "invalid email address"}
	}

	var existing models.User
	if err := s.db.Unscoped().Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: "username or email already in use"}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if role, err := s.getRoleByName(defaultRegisterRole); err == nil {
		if err := s.grantRole(&user, role); err != nil {
			return nil, err
		}
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventUserRegistered,
		Description: fmt.Sprintf("User %s registered", user.Username),
		Success:     true,
	})
	return s.GetUser(user.ID)
}

// CreateUser provisions an account with the given roles.
func (s *AdminService) CreateUser(ctx context.Context, req CreateUserRequest, actor *models.User) (*models.User, error) {
	if len(req.Password) < 8 {
		return nil, &ValidationError{Message: "password must be at least 8 characters"}
	}
	if !strings.Contains(req.Email, "@") {
		return nil, &ValidationError{Message: "invalid email address"}
	}

	var existing models.User
	if err := s.db.Unscoped().Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: "username or email already in use"}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	for _, roleName := range req.Roles {
		role, err := s.getRoleByName(roleName)
		if err != nil {
			return nil, err
		}
		if err := s.grantRole(&user, role); err != nil {
			return nil, err
		}
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventUserCreated,
		Description: fmt.Sprintf("Created user %s", user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID, "roles": req.Roles},
	})
	return s.GetUser(user.ID)
}

// UpdateUser applies profile or activation changes to an account.
func (s *AdminService) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest, actor *models.User) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	eventType := audit.EventUserUpdated
	if req.Email != nil {
		if !strings.Contains(*req.Email, "@") {
			return nil, &ValidationError{Message: "invalid email address"}
		}
		user.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.IsActive != nil {
		if !*req.IsActive && user.ID == actor.ID {
			return nil, &ValidationError{Message: "cannot deactivate your own account"}
		}
		user.IsActive = *req.IsActive
		if *req.IsActive {
			eventType = audit.EventUserActivated
		} else {
			eventType = audit.EventUserDeactivated
		}
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   eventType,
		Description: fmt.Sprintf("Updated user %s", user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID},
	})
	return user, nil
}

// UnlockUser clears the failure counter and lockout on an account.
func (s *AdminService) UnlockUser(ctx context.Context, id uint, actor *models.User) error {
	user, err := s.GetUser(id)
	if err != nil {
		return err
	}

	err = s.db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventUserUnlocked,
		Description: fmt.Sprintf("Unlocked user %s", user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID},
	})
	return nil
}

// DeleteUser soft-deletes an account and drops its role grants.
func (s *AdminService) DeleteUser(ctx context.Context, id uint, actor *models.User) error {
	user, err := s.GetUser(id)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return &ValidationError{Message: "cannot delete your own account"}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Association("Roles").Clear(); err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}

	for _, roleName := range user.RoleNames() {
		if err := rbac.RevokeRole(user.ID, roleName); err != nil {
			return err
		}
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventUserDeleted,
		Description: fmt.Sprintf("Deleted user %s", user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID},
	})
	return nil
}

// grantRole attaches a role to a user and mirrors the grouping into the
// policy store.
func (s *AdminService) grantRole(user *models.User, role *models.Role) error {
	if err := s.db.Model(user).Association("Roles").Append(role); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return rbac.AssignRole(user.ID, role.Name)
}

// AssignRole adds a user to a role. Built-in roles are granted only when
// the account is provisioned; this endpoint refuses them so the seeded
// role set cannot be handed out piecemeal after the fact.
func (s *AdminService) AssignRole(ctx context.Context, userID uint, roleName string, actor *models.User) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	role, err := s.getRoleByName(roleName)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return &ValidationError{Message: fmt.Sprintf("role %q is a system role and cannot be assigned directly", role.Name)}
	}

	if err := s.grantRole(user, role); err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventRoleAssigned,
		Description: fmt.Sprintf("Assigned role %s to user %s", role.Name, user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID, "role": role.Name},
	})
	return nil
}

// RevokeRole removes a user from a role.
func (s *AdminService) RevokeRole(ctx context.Context, userID uint, roleName string, actor *models.User) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	role, err := s.getRoleByName(roleName)
	if err != nil {
		return err
	}

	if err := s.db.Model(user).Association("Roles").Delete(role); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	if err := rbac.RevokeRole(user.ID, role.Name); err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventRoleRevoked,
		Description: fmt.Sprintf("Revoked role %s from user %s", role.Name, user.Username),
		Success:     true,
		Metadata:    map[string]interface{}{"target_user_id": user.ID, "role": role.Name},
	})
	return nil
}

// ListRoles returns all roles with permissions and members preloaded.
func (s *AdminService) ListRoles() ([]models.Role, error) {
	var roles []models.Role
	err := s.db.Preload("Permissions").Preload("Users").Order("name").Find(&roles).Error
	return roles, err
}

// GetRole returns a single role by ID.
func (s *AdminService) GetRole(id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.Preload("Permissions").Preload("Users").First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (s *AdminService) getRoleByName(name string) (*models.Role, error) {
	var role models.Role
	if err := s.db.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Message: fmt.Sprintf("role %q does not exist", name)}
		}
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a custom role with the given permissions.
func (s *AdminService) CreateRole(ctx context.Context, req CreateRoleRequest, actor *models.User) (*models.Role, error) {
	if !roleNamePattern.MatchString(req.Name) {
		return nil, &ValidationError{Message: "role name must contain 2-64 letters, digits, hyphens or underscores"}
	}

	var existing models.Role
	if err := s.db.Unscoped().Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("role %q already exists", req.Name)}
	}

	role := models.Role{Name: req.Name, Description: req.Description}
	if err := s.db.Create(&role).Error; err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	for _, permName := range req.Permissions {
		if err := s.GrantPermission(ctx, role.ID, permName, actor); err != nil {
			return nil, err
		}
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventRoleCreated,
		Description: fmt.Sprintf("Created role %s", role.Name),
		Success:     true,
		Metadata:    map[string]interface{}{"role_id": role.ID, "permissions": req.Permissions},
	})
	return s.GetRole(role.ID)
}

// UpdateRole edits a role's description and, when a permissions list is
// given, replaces its grants wholesale. System roles keep their names but
// their permission sets stay editable.
func (s *AdminService) UpdateRole(ctx context.Context, id uint, req UpdateRoleRequest, actor *models.User) (*models.Role, error) {
	role, err := s.GetRole(id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		role.Description = *req.Description
		if err := s.db.Save(role).Error; err != nil {
			return nil, fmt.Errorf("save role: %w", err)
		}
	}

	if req.Permissions != nil {
		current := map[string]bool{}
		for _, p := range role.Permissions {
			current[p.Name] = true
		}
		wanted := map[string]bool{}
		for _, name := range req.Permissions {
			wanted[name] = true
			if !current[name] {
				if err := s.GrantPermission(ctx, role.ID, name, actor); err != nil {
					return nil, err
				}
			}
		}
		for _, p := range role.Permissions {
			if !wanted[p.Name] {
				if err := s.RevokePermission(ctx, role.ID, p.Name, actor); err != nil {
					return nil, err
				}
			}
		}
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventRoleUpdated,
		Description: fmt.Sprintf("Updated role %s", role.Name),
		Success:     true,
		Metadata:    map[string]interface{}{"role_id": role.ID},
	})
	return s.GetRole(role.ID)
}

// DeleteRole removes a custom role. System roles and roles with members
// cannot be deleted.
func (s *AdminService) DeleteRole(ctx context.Context, id uint, actor *models.User) error {
	role, err := s.GetRole(id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return &ValidationError{Message: fmt.Sprintf("system role %q cannot be deleted", role.Name)}
	}
	if len(role.Users) > 0 {
		return &ConflictError{Message: fmt.Sprintf("role %q still has %d assigned users", role.Name, len(role.Users))}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	if err != nil {
		return err
	}
	if err := rbac.DeleteRole(role.Name); err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventRoleDeleted,
		Description: fmt.Sprintf("Deleted role %s", role.Name),
		Success:     true,
		Metadata:    map[string]interface{}{"role_id": role.ID},
	})
	return nil
}

// ListPermissions returns the permission catalog.
func (s *AdminService) ListPermissions() ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.Order("resource, action").Find(&perms).Error
	return perms, err
}

// CreatePermission adds a permission to the catalog.
func (s *AdminService) CreatePermission(ctx context.Context, req CreatePermissionRequest, actor *models.User) (*models.Permission, error) {
	if req.Name != req.Resource+":"+req.Action {
		return nil, &ValidationError{Message: "permission name must be resource:action"}
	}

	var existing models.Permission
	if err := s.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("permission %q already exists", req.Name)}
	}

	perm := models.Permission{
		Name:        req.Name,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
	}
	if err := s.db.Create(&perm).Error; err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	return &perm, nil
}

// GrantPermission attaches a permission to a role.
func (s *AdminService) GrantPermission(ctx context.Context, roleID uint, permName string, actor *models.User) error {
	role, err := s.GetRole(roleID)
	if err != nil {
		return err
	}

	var perm models.Permission
	if err := s.db.Where("name = ?", permName).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Message: fmt.Sprintf("permission %q does not exist", permName)}
		}
		return err
	}

	if err := s.db.Model(role).Association("Permissions").Append(&perm); err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	if err := rbac.GrantPermission(role.Name, perm.Resource, perm.Action); err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventPermissionGranted,
		Description: fmt.Sprintf("Granted %s to role %s", perm.Name, role.Name),
		Success:     true,
		Metadata:    map[string]interface{}{"role_id": role.ID, "permission": perm.Name},
	})
	return nil
}

// RevokePermission detaches a permission from a role.
func (s *AdminService) RevokePermission(ctx context.Context, roleID uint, permName string, actor *models.User) error {
	role, err := s.GetRole(roleID)
	if err != nil {
		return err
	}

	var perm models.Permission
	if err := s.db.Where("name = ?", permName).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Message: fmt.Sprintf("permission %q does not exist", permName)}
		}
		return err
	}

	if err := s.db.Model(role).Association("Permissions").Delete(&perm); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	if err := rbac.RevokePermission(role.Name, perm.Resource, perm.Action); err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &actor.ID,
		Username:    actor.Username,
		EventType:   audit.EventPermissionRevoked,
		Description: fmt.Sprintf("Revoked %s from role %s", perm.Name, role.Name),
		Success:     true,
		Metadata:    map[string]interface{}{"role_id": role.ID, "permission": perm.Name},
	})
	return nil
}

// ListAuditLogs returns one page of audit log entries, newest first.
func (s *AdminService) ListAuditLogs(opts AuditLogOptions) ([]models.AuditLog, Pagination, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 {
		opts.PerPage = 50
	}
	if opts.PerPage > 200 {
		opts.PerPage = 200
	}

	query := s.db.Model(&models.AuditLog{})
	if opts.EventType != "" {
		query = query.Where("event_type = ?", opts.EventType)
	}
	if opts.Username != "" {
		query = query.Where("username = ?", opts.Username)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var logs []models.AuditLog
	err := query.Order("timestamp DESC").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&logs).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := int((total + int64(opts.PerPage) - 1) / int64(opts.PerPage))
	return logs, Pagination{Page: opts.Page, PerPage: opts.PerPage, Total: total, TotalPages: pages}, nil
}
