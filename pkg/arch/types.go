package arch

import (
	"fmt"

	"github.com/matzehuels/archflow/pkg/errors"
)

// =============================================================================
// Node Types
// =============================================================================

// NodeType is the semantic category of a node.
type NodeType string

// Node types.
const (
	TypeFrontend NodeType = "frontend"
	TypeCloud    NodeType = "cloud"
	TypeBackend  NodeType = "backend"
	TypeDatabase NodeType = "database"
	TypeCache    NodeType = "cache"
	TypeQueue    NodeType = "queue"
	TypeStorage  NodeType = "storage"
	TypeExternal NodeType = "external"
)

// DefaultType is used for nodes that carry no type.
const DefaultType = TypeBackend

// Types lists every known node type in layer order.
var Types = []NodeType{
	TypeFrontend,
	TypeCloud,
	TypeBackend,
	TypeDatabase,
	TypeCache,
	TypeQueue,
	TypeStorage,
	TypeExternal,
}

// Known reports whether t is one of the fixed node types.
func (t NodeType) Known() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// =============================================================================
// Architecture
// =============================================================================

// Architecture is a generated system design.
type Architecture struct {
	ProjectName     string    `json:"projectName" bson:"projectName" yaml:"projectName,omitempty"`
	Nodes           []Node    `json:"nodes" bson:"nodes" yaml:"nodes,omitempty"`
	Edges           []Edge    `json:"edges" bson:"edges" yaml:"edges,omitempty"`
	CloudEstimation CloudCost `json:"cloudEstimation" bson:"cloudEstimation" yaml:"cloudEstimation,omitempty"`
}

// Node is one component of the architecture.
type Node struct {
	ID       string   `json:"id" bson:"id" yaml:"id,omitempty"`
	Label    string   `json:"label" bson:"label" yaml:"label,omitempty"`
	Type     NodeType `json:"type" bson:"type" yaml:"type,omitempty"`
	Service  string   `json:"service" bson:"service" yaml:"service,omitempty"`
	Provider string   `json:"provider" bson:"provider" yaml:"provider,omitempty"`
}

// EffectiveType returns the node's type, or DefaultType when unset.
func (n Node) EffectiveType() NodeType {
	if n.Type == "" {
		return DefaultType
	}
	return n.Type
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed connection between two nodes.
type Edge struct {
	Source string `json:"source" bson:"source" yaml:"source,omitempty"`
	Target string `json:"target" bson:"target" yaml:"target,omitempty"`
}

// CloudCost is a monthly cost breakdown. Values are display strings such as
// "$180" and are never parsed.
type CloudCost struct {
	Compute              string `json:"Compute" bson:"Compute" yaml:"Compute,omitempty"`
	Database             string `json:"Database" bson:"Database" yaml:"Database,omitempty"`
	Storage              string `json:"Storage" bson:"Storage" yaml:"Storage,omitempty"`
	OtherServices        string `json:"OtherServices" bson:"OtherServices" yaml:"OtherServices,omitempty"`
	EstimatedMonthlyCost string `json:"EstimatedMonthlyCost" bson:"EstimatedMonthlyCost" yaml:"EstimatedMonthlyCost,omitempty"`
}

// IsZero reports whether no cost category is set.
func (c CloudCost) IsZero() bool {
	return c == CloudCost{}
}

// NodeCount returns the number of nodes; nil architectures have none.
func (a *Architecture) NodeCount() int {
	if a == nil {
		return 0
	}
	return len(a.Nodes)
}

// EdgeCount returns the number of edges; nil architectures have none.
func (a *Architecture) EdgeCount() int {
	if a == nil {
		return 0
	}
	return len(a.Edges)
}

// Node looks up a node by ID.
func (a *Architecture) Node(id string) (Node, bool) {
	if a == nil {
		return Node{}, false
	}
	for _, n := range a.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Validate checks identifier uniqueness and edge referential integrity.
// A nil architecture is valid (it is the empty diagram).
func (a *Architecture) Validate() error {
	if a == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(a.Nodes))
	for i, n := range a.Nodes {
		if err := errors.ValidateNodeID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArchitecture, err, "node %d", i)
		}
		if _, dup := seen[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidArchitecture, "duplicate node id: %s", n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	for i, e := range a.Edges {
		if _, ok := seen[e.Source]; !ok {
			return errors.New(errors.ErrCodeInvalidArchitecture, "edge %d: unknown source %q", i, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return errors.New(errors.ErrCodeInvalidArchitecture, "edge %d: unknown target %q", i, e.Target)
		}
	}

	return nil
}

// String returns a short summary for logs.
func (a *Architecture) String() string {
	if a == nil {
		return "architecture(empty)"
	}
	return fmt.Sprintf("architecture(%q, %d nodes, %d edges)", a.ProjectName, len(a.Nodes), len(a.Edges))
}

// =============================================================================
// Generation Service Envelope
// =============================================================================

// IdeaRequest is the body sent to POST /idea.
type IdeaRequest struct {
	Idea string `json:"idea"`
}

// IdeaResponse is the nested shape returned by the generation service before
// normalization.
type IdeaResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ProjectName  string `json:"projectName"`
		Architecture struct {
			Nodes []Node `json:"nodes"`
			Edges []Edge `json:"edges"`
		} `json:"architecture"`
		CloudEstimation CloudCost `json:"cloudEstimation"`
	} `json:"data"`
	Message string `json:"message,omitempty"`
}

// Normalize flattens the envelope into an Architecture.
// Returns an INVALID_RESPONSE error if the service reported failure.
func (r *IdeaResponse) Normalize() (*Architecture, error) {
	if !r.Success {
		msg := r.Message
		if msg == "" {
			msg = "generation service reported failure"
		}
		return nil, errors.New(errors.ErrCodeInvalidResponse, "%s", msg)
	}
	return &Architecture{
		ProjectName:     r.Data.ProjectName,
		Nodes:           r.Data.Architecture.Nodes,
		Edges:           r.Data.Architecture.Edges,
		CloudEstimation: r.Data.CloudEstimation,
	}, nil
}
