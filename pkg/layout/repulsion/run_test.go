package repulsion

import (
	"fmt"
	"math"
	"testing"
)

// separationTolerance absorbs the residual gap left when damping reaches
// zero before the pair is fully separated.
const separationTolerance = 0.5

func distance(a, b Entity) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestRunTrivial(t *testing.T) {
	tests := []struct {
		name     string
		entities []Entity
	}{
		{"nil", nil},
		{"empty", []Entity{}},
		{"single", []Entity{{ID: "a", X: 3, Y: 4}}},
		{"separated", []Entity{{ID: "a"}, {ID: "b", X: 400}, {ID: "c", Y: 400}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(tt.entities, DefaultConfig())
			if !res.Converged {
				t.Error("trivial input should converge")
			}
			if res.Steps != 0 {
				t.Errorf("Steps = %d, want 0", res.Steps)
			}
			for i := range tt.entities {
				if res.Entities[i] != tt.entities[i] {
					t.Errorf("entity %d moved: %+v -> %+v", i, tt.entities[i], res.Entities[i])
				}
			}
		})
	}
}

func TestRunCoincidentPair(t *testing.T) {
	entities := []Entity{{ID: "a"}, {ID: "b"}}

	res := Run(entities, Config{Radius: 180, Strength: 1})

	if res.Steps > DefaultMaxSteps {
		t.Errorf("Steps = %d exceeds budget", res.Steps)
	}
	d := distance(res.Entities[0], res.Entities[1])
	if d < 180-separationTolerance {
		t.Errorf("final separation = %v, want >= %v", d, 180-separationTolerance)
	}
	if res.Entities[0].Y != 0 || res.Entities[1].Y != 0 {
		t.Error("coincident pair should separate along the x axis")
	}
	if res.Entities[0].X <= res.Entities[1].X {
		t.Error("first entity should move toward +x")
	}
}

func TestRunThreeEntities(t *testing.T) {
	entities := []Entity{
		{ID: "a", X: 0, Y: 0},
		{ID: "b", X: 50, Y: 0},
		{ID: "c", X: 500, Y: 0},
	}

	res := Run(entities, Config{Radius: 180})

	if got := res.Entities[2]; got.X != 500 || got.Y != 0 {
		t.Errorf("far entity moved to (%v, %v)", got.X, got.Y)
	}
	if d := distance(res.Entities[0], res.Entities[1]); d < 180-separationTolerance {
		t.Errorf("a-b separation = %v, want >= %v", d, 180-separationTolerance)
	}
}

func TestRunTerminates(t *testing.T) {
	// A dense cluster cannot fully separate in a tiny budget.
	var entities []Entity
	for i := range 25 {
		entities = append(entities, Entity{ID: fmt.Sprintf("n%d", i), X: float64(i % 5), Y: float64(i / 5)})
	}

	for _, budget := range []int{1, 5, 50} {
		res := Run(entities, Config{MaxSteps: budget})
		if res.Steps > budget {
			t.Errorf("budget %d: Steps = %d", budget, res.Steps)
		}
		if res.Converged && Overlaps(res.Entities, DefaultConfig()) > 0 {
			t.Errorf("budget %d: reported convergence with overlaps remaining", budget)
		}
	}
}

func TestRunDragExclusion(t *testing.T) {
	entities := []Entity{
		{ID: "held", X: 10, Y: 10, Dragging: true},
		{ID: "b", X: 10, Y: 10},
		{ID: "c", X: 20, Y: 10},
	}

	res := Run(entities, DefaultConfig())

	if got := res.Entities[0]; got.X != 10 || got.Y != 10 {
		t.Errorf("dragging entity moved to (%v, %v)", got.X, got.Y)
	}
}

func TestRunDeterministic(t *testing.T) {
	entities := []Entity{{ID: "a"}, {ID: "b", X: 20, Y: 5}, {ID: "c", X: -3, Y: 40}}

	r1 := Run(entities, DefaultConfig())
	r2 := Run(entities, DefaultConfig())

	if r1.Steps != r2.Steps {
		t.Errorf("Steps differ: %d vs %d", r1.Steps, r2.Steps)
	}
	for i := range r1.Entities {
		if r1.Entities[i] != r2.Entities[i] {
			t.Errorf("entity %d differs: %+v vs %+v", i, r1.Entities[i], r2.Entities[i])
		}
	}
}
