package repulsion

// Result describes a finished simulation run.
type Result struct {
	// Entities holds the final positions.
	Entities []Entity `json:"entities"`

	// Steps is the number of iterations that moved entities.
	Steps int `json:"steps"`

	// Converged is true when the run stopped because no pair overlapped,
	// false when the iteration budget was exhausted first.
	Converged bool `json:"converged"`
}

// Run drives [Step] from iteration 0 until convergence or until the
// iteration budget is spent. The input slice is not mutated.
func Run(entities []Entity, cfg Config) Result {
	cfg = cfg.WithDefaults()
	current := make([]Entity, len(entities))
	copy(current, entities)

	for step := 0; step < cfg.MaxSteps; step++ {
		next, moved := Step(current, step, cfg)
		if !moved {
			return Result{Entities: current, Steps: step, Converged: true}
		}
		current = next
	}
	return Result{Entities: current, Steps: cfg.MaxSteps}
}
