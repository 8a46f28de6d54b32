package repulsion

import "math"

// Entity is a positioned diagram node as seen by the simulation.
type Entity struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Type     string  `json:"type,omitempty"`
	Dragging bool    `json:"dragging,omitempty"`
}

// Vector is a 2D displacement.
type Vector struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Displacements computes the push every entity receives at the given
// iteration. The second result reports whether any pair overlapped; when it
// is false every vector is zero.
//
// For each unordered pair (i, j) with neither entity dragging, the push on i
// points away from j and j receives exactly the negation. Coincident entities
// separate along the x axis: i toward +x, j toward -x.
func Displacements(entities []Entity, step int, cfg Config) ([]Vector, bool) {
	cfg = cfg.WithDefaults()
	deltas := make([]Vector, len(entities))
	damping := cfg.Damping(step)
	k := cfg.Amplification
	overlapped := false

	for i := 0; i < len(entities); i++ {
		a := entities[i]
		if a.Dragging {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if b.Dragging {
				continue
			}

			dx := a.X - b.X
			dy := a.Y - b.Y
			if dx == 0 && dy == 0 {
				dx = cfg.Epsilon
			}
			distance := max(math.Hypot(dx, dy), cfg.Epsilon)
			if distance >= cfg.Radius {
				continue
			}

			overlapped = true
			overlap := cfg.Radius - distance
			force := (overlap / cfg.Radius) * cfg.Strength * damping
			nx := dx / distance * force
			ny := dy / distance * force

			deltas[i].DX += nx * k
			deltas[i].DY += ny * k
			deltas[j].DX -= nx * k
			deltas[j].DY -= ny * k
		}
	}

	if !overlapped {
		return make([]Vector, len(entities)), false
	}
	return deltas, true
}

// Step runs one iteration. It returns the displaced entities and true when
// any pair overlapped, or the input slice unchanged and false once the
// arrangement has converged. The input is never mutated.
func Step(entities []Entity, step int, cfg Config) ([]Entity, bool) {
	deltas, overlapped := Displacements(entities, step, cfg)
	if !overlapped {
		return entities, false
	}
	return applyDeltas(entities, deltas), true
}

// Overlaps counts the pairs closer than cfg.Radius, ignoring the dragging
// flag. It is a diagnostic for callers reporting on a finished run.
func Overlaps(entities []Entity, cfg Config) int {
	cfg = cfg.WithDefaults()
	n := 0
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			d := math.Hypot(entities[i].X-entities[j].X, entities[i].Y-entities[j].Y)
			if d < cfg.Radius {
				n++
			}
		}
	}
	return n
}

func applyDeltas(entities []Entity, deltas []Vector) []Entity {
	out := make([]Entity, len(entities))
	copy(out, entities)
	for i := range out {
		if out[i].Dragging {
			continue
		}
		out[i].X += deltas[i].DX
		out[i].Y += deltas[i].DY
	}
	return out
}
