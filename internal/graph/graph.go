// Package graph holds the route graph payload and the editing state that
// operates on it. The types here are renderer-independent: the canvas and
// save state machine can be exercised without any drawing engine.
package graph

import "encoding/json"

// NodeType enumerates the kinds of nodes a route graph may contain.
type NodeType string

const (
	NodeOperation NodeType = "operation"
	NodeStart     NodeType = "start"
	NodeEnd       NodeType = "end"
	NodeDecision  NodeType = "decision"
)

// EdgeType enumerates edge rendering styles. The server treats them as
// opaque; they round-trip with saved data.
type EdgeType string

const (
	EdgeDefault    EdgeType = "default"
	EdgeStraight   EdgeType = "straight"
	EdgeStep       EdgeType = "step"
	EdgeSmoothstep EdgeType = "smoothstep"
)

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport captures pan position and zoom so a saved graph reopens where
// the user left it.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// NodeData carries the label and optional operation payload of a node.
type NodeData struct {
	Label      string                 `json:"label"`
	Operation  *OperationData         `json:"operation,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// OperationData is the operation record embedded in a graph node. TotalTime
// is derived, never stored independently.
type OperationData struct {
	ID                  uint                   `json:"id,omitempty"`
	Name                string                 `json:"name"`
	OperationCode       string                 `json:"operation_code"`
	OperationType       string                 `json:"operation_type"`
	SetupTime           float64                `json:"setup_time"`
	OperationTime       float64                `json:"operation_time"`
	TotalTime           float64                `json:"total_time"`
	RequiredEquipment   []string               `json:"required_equipment"`
	RequiredSkills      []string               `json:"required_skills"`
	QualityRequirements map[string]interface{} `json:"quality_requirements"`
}

// Recompute derives TotalTime from setup and operation time.
func (o *OperationData) Recompute() {
	o.TotalTime = o.SetupTime + o.OperationTime
}

// Node is a single element of the route graph.
type Node struct {
	ID       string                 `json:"id"`
	Type     NodeType               `json:"type"`
	Position Position               `json:"position"`
	Data     NodeData               `json:"data"`
	Style    map[string]interface{} `json:"style,omitempty"`
}

// EdgeData carries optional routing conditions on an edge.
type EdgeData struct {
	Condition  string                 `json:"condition,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Type     EdgeType               `json:"type,omitempty"`
	Style    map[string]interface{} `json:"style,omitempty"`
	Label    string                 `json:"label,omitempty"`
	Animated bool                   `json:"animated,omitempty"`
	Data     *EdgeData              `json:"data,omitempty"`
}

// Document is the full graph payload persisted as a route's route_data.
type Document struct {
	Nodes    []Node    `json:"nodes"`
	Edges    []Edge    `json:"edges"`
	Viewport *Viewport `json:"viewport,omitempty"`
}

// Empty reports whether the document has no nodes and no edges.
func (d *Document) Empty() bool {
	return len(d.Nodes) == 0 && len(d.Edges) == 0
}

// Clone returns a deep copy via JSON round-trip. Graph documents are small;
// the copy cost is irrelevant next to a network save.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return &Document{}
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return &Document{}
	}
	return &out
}

// OperationNodes returns the nodes that carry operation data.
func (d *Document) OperationNodes() []Node {
	out := make([]Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Type == NodeOperation {
			out = append(out, n)
		}
	}
	return out
}

// Parse decodes a stored route_data JSON string. An empty string yields an
// empty document.
func Parse(raw string) (*Document, error) {
	if raw == "" {
		return &Document{}, nil
	}
	var d Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
