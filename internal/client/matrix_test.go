package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func matrixFixtureHandler(t *testing.T, failRevoke bool) (http.Handler, *matrixCalls) {
	t.Helper()
	calls := &matrixCalls{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/roles", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Role{
			{ID: 1, Name: "worker", IsSystemRole: true, Permissions: []string{"routes:read"}},
			{ID: 2, Name: "engineer", IsSystemRole: true, Permissions: []string{"routes:read", "routes:update"}},
		})
	})
	mux.HandleFunc("/api/admin/permissions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Permission{
			{ID: 10, Name: "routes:read", Resource: "routes", Action: "read"},
			{ID: 11, Name: "routes:update", Resource: "routes", Action: "update"},
			{ID: 12, Name: "routes:delete", Resource: "routes", Action: "delete"},
		})
	})
	mux.HandleFunc("/api/admin/roles/", func(w http.ResponseWriter, r *http.Request) {
		calls.mu.Lock()
		defer calls.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			calls.grants++
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			calls.revokes++
			if failRevoke {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "cannot modify system role"})
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux, calls
}

type matrixCalls struct {
	mu      sync.Mutex
	grants  int
	revokes int
}

func loadTestMatrix(t *testing.T, failRevoke bool) (*PermissionMatrix, *matrixCalls) {
	t.Helper()
	handler, calls := matrixFixtureHandler(t, failRevoke)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := NewPermissionMatrix(New(srv.URL, "tok"))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m, calls
}

func TestPermissionMatrix_LoadBuildsGrid(t *testing.T) {
	m, _ := loadTestMatrix(t, false)

	if len(m.Roles()) != 2 || len(m.Permissions()) != 3 {
		t.Fatalf("grid = %d roles x %d perms, want 2x3", len(m.Roles()), len(m.Permissions()))
	}
	if !m.IsGranted(1, 10) {
		t.Error("worker should hold routes:read")
	}
	if m.IsGranted(1, 11) {
		t.Error("worker should not hold routes:update")
	}
	if !m.IsGranted(2, 11) {
		t.Error("engineer should hold routes:update")
	}
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d after load, want 0", m.PendingCount())
	}
}

func TestPermissionMatrix_ToggleAndUnstage(t *testing.T) {
	m, _ := loadTestMatrix(t, false)

	m.Toggle(1, 11)
	if !m.IsGranted(1, 11) {
		t.Error("staged grant should show in the grid")
	}
	if m.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", m.PendingCount())
	}

	// Toggling back to the server value removes the staged change.
	m.Toggle(1, 11)
	if m.IsGranted(1, 11) || m.PendingCount() != 0 {
		t.Error("toggle back should unstage, not stack")
	}
}

func TestPermissionMatrix_PendingNamesChanges(t *testing.T) {
	m, _ := loadTestMatrix(t, false)

	m.Toggle(1, 12) // grant routes:delete to worker
	m.Toggle(2, 11) // revoke routes:update from engineer

	pending := m.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d changes, want 2", len(pending))
	}
	byPerm := make(map[string]MatrixChange, len(pending))
	for _, change := range pending {
		byPerm[change.Permission] = change
	}
	grant, ok := byPerm["routes:delete"]
	if !ok || !grant.Grant || grant.RoleName != "worker" {
		t.Errorf("grant change = %+v", grant)
	}
	revoke, ok := byPerm["routes:update"]
	if !ok || revoke.Grant || revoke.RoleName != "engineer" {
		t.Errorf("revoke change = %+v", revoke)
	}
}

func TestPermissionMatrix_SaveAppliesAll(t *testing.T) {
	m, calls := loadTestMatrix(t, false)

	m.Toggle(1, 11) // grant
	m.Toggle(2, 11) // revoke

	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d after save, want 0", m.PendingCount())
	}
	if !m.IsGranted(1, 11) || m.IsGranted(2, 11) {
		t.Error("grid should reflect the applied changes")
	}
	calls.mu.Lock()
	defer calls.mu.Unlock()
	if calls.grants != 1 || calls.revokes != 1 {
		t.Errorf("server saw %d grants, %d revokes, want 1 and 1", calls.grants, calls.revokes)
	}
}

func TestPermissionMatrix_SavePartialFailure(t *testing.T) {
	m, _ := loadTestMatrix(t, true)

	m.Toggle(1, 11) // grant, will succeed
	m.Toggle(2, 11) // revoke, will be rejected

	err := m.Save(context.Background())
	if err == nil {
		t.Fatal("expected a save error")
	}
	saveErr, ok := err.(*MatrixSaveError)
	if !ok {
		t.Fatalf("err is %T, want *MatrixSaveError", err)
	}
	if len(saveErr.Failed) != 1 || saveErr.Failed[0].Permission != "routes:update" {
		t.Fatalf("failed = %+v", saveErr.Failed)
	}
	if !strings.Contains(saveErr.Error(), "1 permission") {
		t.Errorf("message = %q", saveErr.Error())
	}

	// The applied change sticks; the failed one stays staged for retry.
	if !m.IsGranted(1, 11) {
		t.Error("successful grant should be merged into the grid")
	}
	if m.PendingCount() != 1 {
		t.Errorf("pending = %d, want the failed change still staged", m.PendingCount())
	}
	if m.Pending()[0].Permission != "routes:update" {
		t.Errorf("staged = %+v, want the failed revoke", m.Pending()[0])
	}
}

func TestPermissionMatrix_SaveNothingPending(t *testing.T) {
	m, calls := loadTestMatrix(t, false)
	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("save with nothing staged: %v", err)
	}
	calls.mu.Lock()
	defer calls.mu.Unlock()
	if calls.grants+calls.revokes != 0 {
		t.Error("no requests expected when nothing is staged")
	}
}
