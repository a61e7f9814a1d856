package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mesfabric/routecraft/internal/graph"
	"github.com/mesfabric/routecraft/internal/models"
)

func createTestOperation(t *testing.T, svc *OperationService, user *models.User, code string) *models.Operation {
	t.Helper()
	op, err := svc.Create(context.Background(), CreateOperationRequest{
		Name:          "Rough turning",
		OperationCode: code,
		OperationType: "machining",
		SetupTime:     15,
		OperationTime: 45,
	}, user)
	if err != nil {
		t.Fatalf("failed to create operation: %v", err)
	}
	return op
}

func TestOperationService_CreateValidation(t *testing.T) {
	database := setupTestDB(t)
	svc := NewOperationService(database, testEmitter(t))
	user := testUser(t, database, "techno")

	tests := []struct {
		name string
		req  CreateOperationRequest
	}{
		{"unknown type", CreateOperationRequest{Name: "x", OperationCode: "OP-X", OperationType: "sorcery"}},
		{"negative setup time", CreateOperationRequest{Name: "x", OperationCode: "OP-X", OperationType: "machining", SetupTime: -1}},
		{"negative operation time", CreateOperationRequest{Name: "x", OperationCode: "OP-X", OperationType: "machining", OperationTime: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req, user)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestOperationService_CreateRejectsDuplicateCode(t *testing.T) {
	database := setupTestDB(t)
	svc := NewOperationService(database, testEmitter(t))
	user := testUser(t, database, "techno")
	createTestOperation(t, svc, user, "OP-010")

	_, err := svc.Create(context.Background(), CreateOperationRequest{
		Name:          "Another",
		OperationCode: "OP-010",
		OperationType: "machining",
	}, user)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestOperationService_DeleteBlockedWhileReferenced(t *testing.T) {
	database := setupTestDB(t)
	opSvc := NewOperationService(database, testEmitter(t))
	routeSvc := NewRouteService(database, testEmitter(t))
	user := testUser(t, database, "techno")

	op := createTestOperation(t, opSvc, user, "OP-010")

	// A route whose graph references the catalog operation.
	doc := &graph.Document{
		Nodes: []graph.Node{
			{ID: "n1", Type: graph.NodeOperation, Data: graph.NodeData{
				Label: op.Name,
				Operation: &graph.OperationData{
					ID: op.ID, Name: op.Name, OperationType: "machining",
				},
			}},
		},
	}
	route, err := routeSvc.Create(context.Background(), CreateRouteRequest{
		Name:      "Uses OP-010",
		RouteCode: "RT-REF",
		RouteData: doc,
	}, user)
	if err != nil {
		t.Fatalf("create route: %v", err)
	}

	err = opSvc.Delete(context.Background(), op.ID, user)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError while referenced, got %v", err)
	}

	// Once the route is gone, the delete goes through and archives.
	if err := routeSvc.Delete(context.Background(), route.ID, user); err != nil {
		t.Fatalf("delete route: %v", err)
	}
	if err := opSvc.Delete(context.Background(), op.ID, user); err != nil {
		t.Fatalf("delete operation: %v", err)
	}

	var archive models.Archive
	err = database.Where("entity_type = ? AND entity_id = ?", "operation", op.ID).First(&archive).Error
	if err != nil {
		t.Fatalf("expected archive record: %v", err)
	}
}

func TestOperationService_UpdatePartialFields(t *testing.T) {
	database := setupTestDB(t)
	svc := NewOperationService(database, testEmitter(t))
	user := testUser(t, database, "techno")
	op := createTestOperation(t, svc, user, "OP-010")

	setup := 20.0
	updated, err := svc.Update(context.Background(), op.ID, UpdateOperationRequest{
		SetupTime: &setup,
	}, user)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SetupTime != 20 {
		t.Errorf("got setup time %v, want 20", updated.SetupTime)
	}
	if updated.Name != op.Name {
		t.Errorf("untouched field changed: got name %q, want %q", updated.Name, op.Name)
	}
}
