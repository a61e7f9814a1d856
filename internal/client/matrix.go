package client

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// matrixKey identifies one cell of the role/permission grid.
type matrixKey struct {
	RoleID       uint
	PermissionID uint
}

// MatrixChange is one staged toggle awaiting save.
type MatrixChange struct {
	RoleID       uint
	RoleName     string
	PermissionID uint
	Permission   string // "resource:action"
	Grant        bool   // true to grant, false to revoke
}

// PermissionMatrix is the staged editing model for the role/permission grid.
// Toggles accumulate locally; Save applies them all against the server and
// reports which ones failed. There is no rollback: applied changes stay
// applied even when later ones fail.
type PermissionMatrix struct {
	client *Client

	mu      sync.Mutex
	roles   []Role
	perms   []Permission
	granted map[matrixKey]bool
	staged  map[matrixKey]bool // desired value where it differs from granted
}

// NewPermissionMatrix creates an empty matrix. Call Load before editing.
func NewPermissionMatrix(c *Client) *PermissionMatrix {
	return &PermissionMatrix{
		client:  c,
		granted: make(map[matrixKey]bool),
		staged:  make(map[matrixKey]bool),
	}
}

// Load fetches all roles and permissions and rebuilds the grid, dropping any
// staged changes.
func (m *PermissionMatrix) Load(ctx context.Context) error {
	var roles []Role
	if _, err := m.client.Get(ctx, "/admin/roles", &roles); err != nil {
		return err
	}
	var perms []Permission
	if _, err := m.client.Get(ctx, "/admin/permissions", &perms); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles = roles
	m.perms = perms
	m.granted = make(map[matrixKey]bool)
	m.staged = make(map[matrixKey]bool)
	permByName := make(map[string]uint, len(m.perms))
	for _, perm := range m.perms {
		permByName[perm.Name] = perm.ID
	}
	for _, role := range m.roles {
		for _, name := range role.Permissions {
			if id, ok := permByName[name]; ok {
				m.granted[matrixKey{role.ID, id}] = true
			}
		}
	}
	return nil
}

// Roles returns the loaded roles.
func (m *PermissionMatrix) Roles() []Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles
}

// Permissions returns the loaded permissions.
func (m *PermissionMatrix) Permissions() []Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perms
}

// IsGranted reports the effective cell value including staged toggles.
func (m *PermissionMatrix) IsGranted(roleID, permissionID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := matrixKey{roleID, permissionID}
	if v, ok := m.staged[key]; ok {
		return v
	}
	return m.granted[key]
}

// Toggle flips a cell. Toggling back to the server value unstages it.
func (m *PermissionMatrix) Toggle(roleID, permissionID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := matrixKey{roleID, permissionID}
	current := m.granted[key]
	if v, ok := m.staged[key]; ok {
		current = v
	}
	next := !current
	if next == m.granted[key] {
		delete(m.staged, key)
	} else {
		m.staged[key] = next
	}
}

// PendingCount returns the number of staged changes.
func (m *PermissionMatrix) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// Pending returns the staged changes with role and permission names filled
// in, for confirmation dialogue display.
func (m *PermissionMatrix) Pending() []MatrixChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked()
}

func (m *PermissionMatrix) pendingLocked() []MatrixChange {
	changes := make([]MatrixChange, 0, len(m.staged))
	for key, grant := range m.staged {
		change := MatrixChange{RoleID: key.RoleID, PermissionID: key.PermissionID, Grant: grant}
		for _, role := range m.roles {
			if role.ID == key.RoleID {
				change.RoleName = role.Name
				break
			}
		}
		for _, perm := range m.perms {
			if perm.ID == key.PermissionID {
				change.Permission = perm.Resource + ":" + perm.Action
				break
			}
		}
		changes = append(changes, change)
	}
	return changes
}

// MatrixSaveError collects the per-change failures from a Save.
type MatrixSaveError struct {
	Failed []MatrixChange
	Errs   []error
}

func (e *MatrixSaveError) Error() string {
	return fmt.Sprintf("%d permission changes failed", len(e.Failed))
}

// Save applies all staged changes concurrently. Successful changes are
// merged into the grid; failed ones stay staged so the user can retry.
func (m *PermissionMatrix) Save(ctx context.Context) error {
	m.mu.Lock()
	changes := m.pendingLocked()
	m.mu.Unlock()
	if len(changes) == 0 {
		return nil
	}

	var failMu sync.Mutex
	saveErr := &MatrixSaveError{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, change := range changes {
		change := change
		g.Go(func() error {
			var err error
			if change.Grant {
				body := map[string]string{"permission": change.Permission}
				_, err = m.client.Post(ctx, fmt.Sprintf("/admin/roles/%d/permissions", change.RoleID), body, nil)
			} else {
				_, err = m.client.Delete(ctx, fmt.Sprintf("/admin/roles/%d/permissions/%s", change.RoleID, change.Permission))
			}

			key := matrixKey{change.RoleID, change.PermissionID}
			if err != nil {
				failMu.Lock()
				saveErr.Failed = append(saveErr.Failed, change)
				saveErr.Errs = append(saveErr.Errs, err)
				failMu.Unlock()
				return nil
			}
			m.mu.Lock()
			m.granted[key] = change.Grant
			delete(m.staged, key)
			m.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(saveErr.Failed) > 0 {
		return saveErr
	}
	return nil
}
