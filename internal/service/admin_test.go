package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/db"
	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/rbac"
)

func setupAdminTest(t *testing.T) (*gorm.DB, *AdminService, *models.User) {
	t.Helper()
	database := setupTestDB(t)
	if err := db.SeedDefaults(database); err != nil {
		t.Fatalf("failed to seed defaults: %v", err)
	}
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("failed to init enforcer: %v", err)
	}
	svc := NewAdminService(database, testEmitter(t))
	admin := testUser(t, database, "admin1")
	return database, svc, admin
}

func TestAdminService_CreateUserWithRoles(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "ivanova",
		Email:    "ivanova@example.com",
		Password: "correct-horse",
		Roles:    []string{"engineer"},
	}, admin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	names := user.RoleNames()
	if len(names) != 1 || names[0] != "engineer" {
		t.Errorf("got roles %v, want [engineer]", names)
	}
	if ok, err := rbac.HasRole(user.ID, "engineer"); err != nil || !ok {
		t.Errorf("role assignment must reach the policy store (ok=%t, err=%v)", ok, err)
	}
}

func TestAdminService_CreateUserValidation(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"short password", CreateUserRequest{Username: "u", Email: "u@example.com", Password: "short"}},
		{"bad email", CreateUserRequest{Username: "u", Email: "not-an-email", Password: "correct-horse"}},
		{"unknown role", CreateUserRequest{Username: "u", Email: "u@example.com", Password: "correct-horse", Roles: []string{"ghost"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tt.req, admin)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAdminService_CannotDeactivateSelf(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	inactive := false
	_, err := svc.UpdateUser(context.Background(), admin.ID, UpdateUserRequest{
		IsActive: &inactive,
	}, admin)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAdminService_CannotDeleteSelf(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	err := svc.DeleteUser(context.Background(), admin.ID, admin)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAdminService_RegisterGrantsDefaultRole(t *testing.T) {
	_, svc, _ := setupAdminTest(t)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "newcomer",
		Email:    "newcomer@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	names := user.RoleNames()
	if len(names) != 1 || names[0] != "worker" {
		t.Errorf("got roles %v, want [worker]", names)
	}
	if ok, err := rbac.HasRole(user.ID, "worker"); err != nil || !ok {
		t.Errorf("default role must reach the policy store (ok=%t, err=%v)", ok, err)
	}

	var conflict *ConflictError
	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "newcomer",
		Email:    "other@example.com",
		Password: "correct-horse",
	}); !errors.As(err, &conflict) {
		t.Errorf("duplicate username: expected ConflictError, got %v", err)
	}

	var verr *ValidationError
	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username: "bad name!",
		Email:    "bad@example.com",
		Password: "correct-horse",
	}); !errors.As(err, &verr) {
		t.Errorf("invalid username: expected ValidationError, got %v", err)
	}
}

func TestAdminService_RevokeRoleSyncsPolicy(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "petrov",
		Email:    "petrov@example.com",
		Password: "correct-horse",
		Roles:    []string{"worker"},
	}, admin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.RevokeRole(context.Background(), user.ID, "worker", admin); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	if ok, _ := rbac.HasRole(user.ID, "worker"); ok {
		t.Error("revoked role must be gone from the policy store")
	}
}

func TestAdminService_AssignRoleRejectsSystemRole(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "orlova",
		Email:    "orlova@example.com",
		Password: "correct-horse",
	}, admin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	var verr *ValidationError
	if err := svc.AssignRole(context.Background(), user.ID, "engineer", admin); !errors.As(err, &verr) {
		t.Errorf("assigning a system role: expected ValidationError, got %v", err)
	}
	if ok, _ := rbac.HasRole(user.ID, "engineer"); ok {
		t.Error("refused assignment must not reach the policy store")
	}

	// Custom roles stay assignable after account creation.
	if _, err := svc.CreateRole(context.Background(), CreateRoleRequest{Name: "auditor"}, admin); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := svc.AssignRole(context.Background(), user.ID, "auditor", admin); err != nil {
		t.Fatalf("assign custom role: %v", err)
	}
	if ok, err := rbac.HasRole(user.ID, "auditor"); err != nil || !ok {
		t.Errorf("custom role must reach the policy store (ok=%t, err=%v)", ok, err)
	}
}

func TestAdminService_DeleteRoleRules(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	// System roles are protected.
	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	var systemRole *models.Role
	for i := range roles {
		if roles[i].IsSystemRole {
			systemRole = &roles[i]
			break
		}
	}
	if systemRole == nil {
		t.Fatal("seeded defaults should include a system role")
	}
	var verr *ValidationError
	if err := svc.DeleteRole(context.Background(), systemRole.ID, admin); !errors.As(err, &verr) {
		t.Errorf("deleting a system role: expected ValidationError, got %v", err)
	}

	// A custom role with members is blocked until the members are gone.
	role, err := svc.CreateRole(context.Background(), CreateRoleRequest{Name: "qa-lead"}, admin)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "sidorov",
		Email:    "sidorov@example.com",
		Password: "correct-horse",
		Roles:    []string{"qa-lead"},
	}, admin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	var conflict *ConflictError
	if err := svc.DeleteRole(context.Background(), role.ID, admin); !errors.As(err, &conflict) {
		t.Errorf("deleting a role with members: expected ConflictError, got %v", err)
	}

	if err := svc.RevokeRole(context.Background(), user.ID, "qa-lead", admin); err != nil {
		t.Fatalf("revoke role: %v", err)
	}
	if err := svc.DeleteRole(context.Background(), role.ID, admin); err != nil {
		t.Fatalf("delete role after members removed: %v", err)
	}
}

func TestAdminService_RoleNameValidation(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	for _, name := range []string{"", "a", "has spaces", "bad/slash"} {
		_, err := svc.CreateRole(context.Background(), CreateRoleRequest{Name: name}, admin)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("role name %q: expected ValidationError, got %v", name, err)
		}
	}
}

func TestAdminService_PermissionLifecycle(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	// Name must be the resource:action pair.
	_, err := svc.CreatePermission(context.Background(), CreatePermissionRequest{
		Name: "mismatch", Resource: "reports", Action: "read",
	}, admin)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	perm, err := svc.CreatePermission(context.Background(), CreatePermissionRequest{
		Name: "reports:read", Resource: "reports", Action: "read",
	}, admin)
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}

	role, err := svc.CreateRole(context.Background(), CreateRoleRequest{
		Name:        "analyst",
		Permissions: []string{perm.Name},
	}, admin)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "correct-horse",
		Roles:    []string{"analyst"},
	}, admin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if ok, err := rbac.HasPermission(user.ID, "reports", "read"); err != nil || !ok {
		t.Errorf("granted permission must be enforceable (ok=%t, err=%v)", ok, err)
	}

	if err := svc.RevokePermission(context.Background(), role.ID, perm.Name, admin); err != nil {
		t.Fatalf("revoke permission: %v", err)
	}
	if ok, _ := rbac.HasPermission(user.ID, "reports", "read"); ok {
		t.Error("revoked permission must stop being enforceable")
	}
}

func TestAdminService_UpdateRoleReconcilesPermissions(t *testing.T) {
	_, svc, admin := setupAdminTest(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleRequest{
		Name:        "planner",
		Permissions: []string{"routes:read", "routes:update"},
	}, admin)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	updated, err := svc.UpdateRole(context.Background(), role.ID, UpdateRoleRequest{
		Permissions: []string{"routes:read", "routes:export"},
	}, admin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}

	got := map[string]bool{}
	for _, p := range updated.Permissions {
		got[p.Name] = true
	}
	if !got["routes:read"] || !got["routes:export"] || got["routes:update"] {
		t.Errorf("got permissions %v, want routes:read and routes:export only", got)
	}
}
