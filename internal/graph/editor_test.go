package graph

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		name    string
		state   SaveState
		event   SaveEvent
		want    SaveState
		wantErr bool
	}{
		{"edit from clean", StateClean, EventEdit, StateDirty, false},
		{"edit from dirty", StateDirty, EventEdit, StateDirty, false},
		{"edit during conflict stays in conflict", StateConflict, EventEdit, StateConflict, false},
		{"edit while saving rejected", StateSaving, EventEdit, StateSaving, true},
		{"save from dirty", StateDirty, EventSaveStarted, StateSaving, false},
		{"force save from conflict", StateConflict, EventSaveStarted, StateSaving, false},
		{"save from clean rejected", StateClean, EventSaveStarted, StateClean, true},
		{"save succeeded", StateSaving, EventSaveSucceeded, StateClean, false},
		{"save succeeded outside saving rejected", StateDirty, EventSaveSucceeded, StateDirty, true},
		{"save conflicted", StateSaving, EventSaveConflicted, StateConflict, false},
		{"save failed returns to dirty", StateSaving, EventSaveFailed, StateDirty, false},
		{"refresh from conflict", StateConflict, EventRefreshed, StateClean, false},
		{"refresh from dirty", StateDirty, EventRefreshed, StateClean, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.event)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got state %s", got)
				}
				if got != tt.state {
					t.Errorf("failed transition must not move state: got %s, want %s", got, tt.state)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConflict_JSONKeys(t *testing.T) {
	c := Conflict{
		HasConflict:    true,
		CurrentVersion: 3,
		ServerVersion:  5,
		Details: &ConflictDetails{
			LastModifiedBy: "petrov",
			Changes:        []string{"route_data"},
		},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, key := range []string{`"hasConflict":true`, `"currentVersion":3`, `"serverVersion":5`, `"conflictDetails"`, `"last_modified_by":"petrov"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("payload missing %s: %s", key, data)
		}
	}
}

func TestOperationData_Recompute(t *testing.T) {
	op := OperationData{SetupTime: 15, OperationTime: 45, TotalTime: 999}
	op.Recompute()
	if op.TotalTime != 60 {
		t.Errorf("got total time %v, want 60", op.TotalTime)
	}
}

func TestParse_EmptyString(t *testing.T) {
	doc, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Empty() {
		t.Error("expected empty document")
	}
}
