package diagram

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
)

// =============================================================================
// Layout - Relaxed Diagram Serialization
// =============================================================================

// Layout is a relaxed diagram together with the data needed to render it on
// its own: the project name, the cost estimate and how the simulation ended.
// It is the unit written to layout.json, cached, and served by the API.
type Layout struct {
	ProjectName string `json:"projectName" bson:"projectName"`

	Diagram `bson:",inline"`

	Cost       arch.CloudCost `json:"cloudEstimation" bson:"cloudEstimation"`
	Simulation Simulation     `json:"simulation" bson:"simulation"`
}

// Simulation records the parameters and outcome of the relaxation run.
type Simulation struct {
	Config    repulsion.Config `json:"config" bson:"config"`
	Steps     int              `json:"steps" bson:"steps"`
	Converged bool             `json:"converged" bson:"converged"`
}

// Relax maps a, runs the repulsion simulation to completion on the seeded
// positions and returns the resulting layout.
func Relax(a *arch.Architecture, cfg repulsion.Config) Layout {
	cfg = cfg.WithDefaults()
	d := Map(a)
	res := repulsion.Run(Entities(d), cfg)

	l := Layout{
		Diagram: d.WithPositions(res.Entities),
		Simulation: Simulation{
			Config:    cfg,
			Steps:     res.Steps,
			Converged: res.Converged,
		},
	}
	if a != nil {
		l.ProjectName = a.ProjectName
		l.Cost = a.CloudEstimation
	}
	return l
}

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "unmarshal layout")
	}
	if l.Nodes == nil {
		l.Nodes = []Node{}
	}
	if l.Edges == nil {
		l.Edges = []Edge{}
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Layout{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "layout file %s", path)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
