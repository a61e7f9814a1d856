package graph

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// ErrReadOnly is returned by every mutating canvas call in read-only mode.
var ErrReadOnly = errors.New("canvas is read-only")

// Canvas is the editable in-memory state of a route graph: ordered node and
// edge collections, selection, viewport, and a dirty flag set by every
// mutation. Duplicate edges and self-loops are not policed here; the server
// is the source of truth for validity.
type Canvas struct {
	doc      Document
	readOnly bool
	dirty    bool

	selectedNodes map[string]bool
	selectedEdges map[string]bool
}

// NewCanvas creates a canvas over the given document. A nil document starts
// an empty graph.
func NewCanvas(doc *Document, readOnly bool) *Canvas {
	c := &Canvas{
		readOnly:      readOnly,
		selectedNodes: make(map[string]bool),
		selectedEdges: make(map[string]bool),
	}
	if doc != nil {
		c.doc = *doc.Clone()
	}
	return c
}

// Document returns a deep copy of the current graph state.
func (c *Canvas) Document() *Document {
	return c.doc.Clone()
}

// ListNodes returns the nodes in insertion order.
func (c *Canvas) ListNodes() []Node {
	out := make([]Node, len(c.doc.Nodes))
	copy(out, c.doc.Nodes)
	return out
}

// ListEdges returns the edges in insertion order.
func (c *Canvas) ListEdges() []Edge {
	out := make([]Edge, len(c.doc.Edges))
	copy(out, c.doc.Edges)
	return out
}

// IsDirty reports whether the canvas has unsaved mutations.
func (c *Canvas) IsDirty() bool { return c.dirty }

// MarkSaved clears the dirty flag after a successful persist.
func (c *Canvas) MarkSaved() { c.dirty = false }

// ReadOnly reports whether mutation affordances are disabled.
func (c *Canvas) ReadOnly() bool { return c.readOnly }

// AddOperation appends an operation node at a pseudo-random position with an
// empty operation record and returns its id.
func (c *Canvas) AddOperation(label string) (string, error) {
	if c.readOnly {
		return "", ErrReadOnly
	}
	id := uuid.NewString()
	op := &OperationData{
		Name:                label,
		RequiredEquipment:   []string{},
		RequiredSkills:      []string{},
		QualityRequirements: map[string]interface{}{},
	}
	node := Node{
		ID:   id,
		Type: NodeOperation,
		Position: Position{
			X: 100 + rand.Float64()*400,
			Y: 100 + rand.Float64()*300,
		},
		Data: NodeData{Label: label, Operation: op},
	}
	c.doc.Nodes = append(c.doc.Nodes, node)
	c.dirty = true
	return id, nil
}

// AddNode appends an arbitrary node (start/end/decision markers).
func (c *Canvas) AddNode(n Node) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	c.doc.Nodes = append(c.doc.Nodes, n)
	c.dirty = true
	return nil
}

// Connect appends a directed edge from source to target and returns its id.
func (c *Canvas) Connect(source, target string) (string, error) {
	if c.readOnly {
		return "", ErrReadOnly
	}
	id := fmt.Sprintf("e-%s-%s-%s", source, target, uuid.NewString()[:8])
	c.doc.Edges = append(c.doc.Edges, Edge{
		ID:     id,
		Source: source,
		Target: target,
		Type:   EdgeSmoothstep,
	})
	c.dirty = true
	return id, nil
}

// UpdateOperation replaces the operation data of a node, recomputing the
// derived total time. The node's label follows the operation name.
func (c *Canvas) UpdateOperation(nodeID string, op OperationData) error {
	if c.readOnly {
		return ErrReadOnly
	}
	for i := range c.doc.Nodes {
		if c.doc.Nodes[i].ID != nodeID {
			continue
		}
		op.Recompute()
		c.doc.Nodes[i].Data.Operation = &op
		if op.Name != "" {
			c.doc.Nodes[i].Data.Label = op.Name
		}
		c.dirty = true
		return nil
	}
	return fmt.Errorf("node %s not found", nodeID)
}

// MoveNode updates a node's position.
func (c *Canvas) MoveNode(nodeID string, pos Position) error {
	if c.readOnly {
		return ErrReadOnly
	}
	for i := range c.doc.Nodes {
		if c.doc.Nodes[i].ID == nodeID {
			c.doc.Nodes[i].Position = pos
			c.dirty = true
			return nil
		}
	}
	return fmt.Errorf("node %s not found", nodeID)
}

// SelectNodes replaces the node selection.
func (c *Canvas) SelectNodes(ids ...string) {
	c.selectedNodes = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.selectedNodes[id] = true
	}
}

// SelectEdges replaces the edge selection.
func (c *Canvas) SelectEdges(ids ...string) {
	c.selectedEdges = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.selectedEdges[id] = true
	}
}

// Selection returns the selected node and edge ids.
func (c *Canvas) Selection() (nodes, edges []string) {
	for id := range c.selectedNodes {
		nodes = append(nodes, id)
	}
	for id := range c.selectedEdges {
		edges = append(edges, id)
	}
	return nodes, edges
}

// DeleteSelected removes exactly the selected node and edge ids from local
// state and clears the selection. Edges referencing deleted nodes are left
// in place; the server validates dangling references on save.
func (c *Canvas) DeleteSelected() (removedNodes, removedEdges int, err error) {
	if c.readOnly {
		return 0, 0, ErrReadOnly
	}
	if len(c.selectedNodes) == 0 && len(c.selectedEdges) == 0 {
		return 0, 0, nil
	}

	nodes := c.doc.Nodes[:0]
	for _, n := range c.doc.Nodes {
		if c.selectedNodes[n.ID] {
			removedNodes++
			continue
		}
		nodes = append(nodes, n)
	}
	c.doc.Nodes = nodes

	edges := c.doc.Edges[:0]
	for _, e := range c.doc.Edges {
		if c.selectedEdges[e.ID] {
			removedEdges++
			continue
		}
		edges = append(edges, e)
	}
	c.doc.Edges = edges

	c.selectedNodes = make(map[string]bool)
	c.selectedEdges = make(map[string]bool)
	if removedNodes > 0 || removedEdges > 0 {
		c.dirty = true
	}
	return removedNodes, removedEdges, nil
}

// RemoveByIDs removes the given node and edge ids regardless of selection.
func (c *Canvas) RemoveByIDs(nodeIDs, edgeIDs []string) error {
	if c.readOnly {
		return ErrReadOnly
	}
	c.SelectNodes(nodeIDs...)
	c.SelectEdges(edgeIDs...)
	_, _, err := c.DeleteSelected()
	return err
}

// Viewport returns the current pan/zoom, defaulting to origin at zoom 1.
func (c *Canvas) Viewport() Viewport {
	if c.doc.Viewport == nil {
		return Viewport{Zoom: 1}
	}
	return *c.doc.Viewport
}

// SetViewport records pan/zoom. Allowed in read-only mode and does not mark
// the canvas dirty: inspection is not an edit.
func (c *Canvas) SetViewport(v Viewport) {
	c.doc.Viewport = &v
}
