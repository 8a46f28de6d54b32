package diagram

import (
	"fmt"
	"math"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
)

// NodeKind is the renderer kind assigned to every mapped node.
const NodeKind = "archNode"

// Diagram is a positioned node-link view of an architecture.
type Diagram struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Position is a point in diagram space. Y grows downwards.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Node is a positioned diagram node.
type Node struct {
	ID       string   `json:"id" bson:"id"`
	Kind     string   `json:"type" bson:"type"`
	Position Position `json:"position" bson:"position"`
	Data     NodeData `json:"data" bson:"data"`
	Dragging bool     `json:"dragging,omitempty" bson:"dragging,omitempty"`
}

// NodeData is the payload a renderer shows on a node card.
type NodeData struct {
	Label    string        `json:"label" bson:"label"`
	NodeType arch.NodeType `json:"nodeType" bson:"nodeType"`
	Service  string        `json:"service" bson:"service"`
	Provider string        `json:"provider" bson:"provider"`
}

// Edge is a styled connection. It has no position of its own.
type Edge struct {
	ID       string    `json:"id" bson:"id"`
	Source   string    `json:"source" bson:"source"`
	Target   string    `json:"target" bson:"target"`
	Animated bool      `json:"animated" bson:"animated"`
	Style    EdgeStyle `json:"style" bson:"style"`
}

// EdgeStyle holds the stroke of an edge.
type EdgeStyle struct {
	Stroke      string  `json:"stroke" bson:"stroke"`
	StrokeWidth float64 `json:"strokeWidth" bson:"strokeWidth"`
}

// Map converts an architecture into a seeded diagram. The output is a pure
// function of the input.
func Map(a *arch.Architecture) Diagram {
	if a == nil {
		return Diagram{Nodes: []Node{}, Edges: []Edge{}}
	}

	// Later duplicates win the type, as they would in a lookup table.
	typeOf := make(map[string]arch.NodeType, len(a.Nodes))
	for _, n := range a.Nodes {
		typeOf[n.ID] = n.EffectiveType()
	}

	byType := make(map[arch.NodeType][]string)
	var order []arch.NodeType
	for _, n := range a.Nodes {
		t := typeOf[n.ID]
		if _, ok := byType[t]; !ok {
			order = append(order, t)
		}
		byType[t] = append(byType[t], n.ID)
	}

	seeds := make(map[string]Position, len(a.Nodes))
	for _, t := range order {
		ids := byType[t]
		y := LayerOf(t)
		startX := -float64(len(ids)-1) * Spacing / 2
		for i, id := range ids {
			if _, ok := seeds[id]; !ok {
				seeds[id] = Position{X: startX + float64(i)*Spacing, Y: y}
			}
		}
	}

	d := Diagram{
		Nodes: make([]Node, len(a.Nodes)),
		Edges: make([]Edge, len(a.Edges)),
	}
	for i, n := range a.Nodes {
		d.Nodes[i] = Node{
			ID:       n.ID,
			Kind:     NodeKind,
			Position: seeds[n.ID],
			Data: NodeData{
				Label:    n.Label,
				NodeType: typeOf[n.ID],
				Service:  n.Service,
				Provider: n.Provider,
			},
		}
	}
	for i, e := range a.Edges {
		stroke := DefaultEdgeColor
		if t, ok := typeOf[e.Source]; ok {
			stroke = EdgeColor(t)
		}
		d.Edges[i] = Edge{
			ID:       fmt.Sprintf("e-%d", i),
			Source:   e.Source,
			Target:   e.Target,
			Animated: true,
			Style:    EdgeStyle{Stroke: stroke, StrokeWidth: EdgeStrokeWidth},
		}
	}
	return d
}

// Entities projects the diagram's nodes onto layout entities.
func Entities(d Diagram) []repulsion.Entity {
	out := make([]repulsion.Entity, len(d.Nodes))
	for i, n := range d.Nodes {
		out[i] = repulsion.Entity{
			ID:       n.ID,
			X:        n.Position.X,
			Y:        n.Position.Y,
			Type:     string(n.Data.NodeType),
			Dragging: n.Dragging,
		}
	}
	return out
}

// WithPositions returns a copy of d with node positions and drag flags taken
// from entities, matched by ID. Nodes without a matching entity keep their
// position. Edges are shared with d.
func (d Diagram) WithPositions(entities []repulsion.Entity) Diagram {
	byID := make(map[string]repulsion.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	nodes := make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		if e, ok := byID[n.ID]; ok {
			n.Position = Position{X: e.X, Y: e.Y}
			n.Dragging = e.Dragging
		}
		nodes[i] = n
	}
	return Diagram{Nodes: nodes, Edges: d.Edges}
}

// Node looks up a node by ID.
func (d Diagram) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns MaxX - MinX.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns MaxY - MinY.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Bounds returns the box spanned by node positions. An empty diagram has a
// zero box.
func (d Diagram) Bounds() Rect {
	if len(d.Nodes) == 0 {
		return Rect{}
	}
	r := Rect{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, n := range d.Nodes {
		r.MinX = math.Min(r.MinX, n.Position.X)
		r.MinY = math.Min(r.MinY, n.Position.Y)
		r.MaxX = math.Max(r.MaxX, n.Position.X)
		r.MaxY = math.Max(r.MaxY, n.Position.Y)
	}
	return r
}
