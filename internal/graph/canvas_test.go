package graph

import "testing"

func TestCanvas_AddAndConnect(t *testing.T) {
	c := NewCanvas(nil, false)

	id1, err := c.AddOperation("Turning")
	if err != nil {
		t.Fatalf("add operation: %v", err)
	}
	id2, err := c.AddOperation("Milling")
	if err != nil {
		t.Fatalf("add operation: %v", err)
	}
	if _, err := c.Connect(id1, id2); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if !c.IsDirty() {
		t.Error("canvas should be dirty after edits")
	}
	if got := len(c.ListNodes()); got != 2 {
		t.Errorf("got %d nodes, want 2", got)
	}
	if got := len(c.ListEdges()); got != 1 {
		t.Errorf("got %d edges, want 1", got)
	}

	c.MarkSaved()
	if c.IsDirty() {
		t.Error("canvas should be clean after MarkSaved")
	}
}

func TestCanvas_DeleteSelectedRemovesExactlySelection(t *testing.T) {
	c := NewCanvas(nil, false)
	id1, _ := c.AddOperation("Turning")
	id2, _ := c.AddOperation("Milling")
	id3, _ := c.AddOperation("Drilling")
	edge12, _ := c.Connect(id1, id2)
	edge23, _ := c.Connect(id2, id3)

	c.SelectNodes(id2)
	c.SelectEdges(edge12)

	removedNodes, removedEdges, err := c.DeleteSelected()
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removedNodes != 1 || removedEdges != 1 {
		t.Errorf("removed %d nodes and %d edges, want 1 and 1", removedNodes, removedEdges)
	}

	for _, n := range c.ListNodes() {
		if n.ID == id2 {
			t.Error("selected node still present after delete")
		}
	}
	// The unselected edge survives even though its source node is gone.
	edges := c.ListEdges()
	if len(edges) != 1 || edges[0].ID != edge23 {
		t.Errorf("expected only edge %s to remain, got %v", edge23, edges)
	}

	nodes, selEdges := c.Selection()
	if len(nodes) != 0 || len(selEdges) != 0 {
		t.Error("selection should be cleared after delete")
	}
}

func TestCanvas_DeleteWithEmptySelectionIsNoop(t *testing.T) {
	c := NewCanvas(nil, false)
	c.AddOperation("Turning")
	c.MarkSaved()

	removedNodes, removedEdges, err := c.DeleteSelected()
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removedNodes != 0 || removedEdges != 0 {
		t.Errorf("removed %d nodes and %d edges, want 0 and 0", removedNodes, removedEdges)
	}
	if c.IsDirty() {
		t.Error("empty delete must not dirty the canvas")
	}
}

func TestCanvas_ReadOnlyRejectsMutation(t *testing.T) {
	doc := &Document{Nodes: []Node{{ID: "n1", Type: NodeStart}}}
	c := NewCanvas(doc, true)

	if _, err := c.AddOperation("Turning"); err != ErrReadOnly {
		t.Errorf("AddOperation: got %v, want ErrReadOnly", err)
	}
	if _, err := c.Connect("a", "b"); err != ErrReadOnly {
		t.Errorf("Connect: got %v, want ErrReadOnly", err)
	}
	if err := c.MoveNode("n1", Position{X: 1, Y: 2}); err != ErrReadOnly {
		t.Errorf("MoveNode: got %v, want ErrReadOnly", err)
	}
	if _, _, err := c.DeleteSelected(); err != ErrReadOnly {
		t.Errorf("DeleteSelected: got %v, want ErrReadOnly", err)
	}

	// Viewport updates are allowed in read-only mode and never dirty.
	c.SetViewport(Viewport{X: 10, Y: 20, Zoom: 1.5})
	if c.Viewport().Zoom != 1.5 {
		t.Error("viewport update lost")
	}
	if c.IsDirty() {
		t.Error("viewport update must not dirty the canvas")
	}
}

func TestCanvas_UpdateOperationRecomputesTotal(t *testing.T) {
	c := NewCanvas(nil, false)
	id, _ := c.AddOperation("Turning")
	c.MarkSaved()

	err := c.UpdateOperation(id, OperationData{
		Name:          "Rough turning",
		SetupTime:     10,
		OperationTime: 30,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	nodes := c.ListNodes()
	op := nodes[0].Data.Operation
	if op.TotalTime != 40 {
		t.Errorf("got total time %v, want 40", op.TotalTime)
	}
	if nodes[0].Data.Label != "Rough turning" {
		t.Errorf("label should follow operation name, got %q", nodes[0].Data.Label)
	}
	if !c.IsDirty() {
		t.Error("update should dirty the canvas")
	}
}

func TestCanvas_DocumentIsDeepCopy(t *testing.T) {
	c := NewCanvas(nil, false)
	id, _ := c.AddOperation("Turning")

	doc := c.Document()
	doc.Nodes[0].Data.Label = "mutated"

	for _, n := range c.ListNodes() {
		if n.ID == id && n.Data.Label == "mutated" {
			t.Error("Document must return a copy, canvas state was mutated")
		}
	}
}
