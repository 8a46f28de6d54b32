package repulsion

// Default simulation parameters.
const (
	// DefaultRadius is the minimum desired center-to-center distance.
	DefaultRadius = 180.0

	// DefaultStrength is the force multiplier.
	DefaultStrength = 1.0

	// DefaultMaxSteps is the iteration budget per run.
	DefaultMaxSteps = 300

	// DefaultAmplification scales each pair's push into a per-frame
	// displacement. It only controls visual speed.
	DefaultAmplification = 5.0

	// DefaultEpsilon floors pair distance so coincident entities never
	// divide by zero.
	DefaultEpsilon = 0.001
)

// Config holds the simulation parameters. Zero or negative fields are
// replaced by their defaults in [Config.WithDefaults], so a zero value means
// "unset" for every field. There is no zero-strength setting; a layout that
// must not move is one that is never stepped.
type Config struct {
	Radius        float64 `json:"radius,omitempty" toml:"radius" bson:"radius,omitempty"`
	// Strength scales every push. Zero selects DefaultStrength.
	Strength      float64 `json:"strength,omitempty" toml:"strength" bson:"strength,omitempty"`
	MaxSteps      int     `json:"max_steps,omitempty" toml:"max_steps" bson:"max_steps,omitempty"`
	Amplification float64 `json:"amplification,omitempty" toml:"amplification" bson:"amplification,omitempty"`
	Epsilon       float64 `json:"epsilon,omitempty" toml:"epsilon" bson:"epsilon,omitempty"`
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		Radius:        DefaultRadius,
		Strength:      DefaultStrength,
		MaxSteps:      DefaultMaxSteps,
		Amplification: DefaultAmplification,
		Epsilon:       DefaultEpsilon,
	}
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Radius <= 0 {
		c.Radius = DefaultRadius
	}
	if c.Strength <= 0 {
		c.Strength = DefaultStrength
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Amplification <= 0 {
		c.Amplification = DefaultAmplification
	}
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultEpsilon
	}
	return c
}

// Damping returns the force multiplier for the given iteration, falling
// linearly from 1 at step 0 to 0 at MaxSteps. It is clamped to [0, 1].
func (c Config) Damping(step int) float64 {
	c = c.WithDefaults()
	d := 1 - float64(step)/float64(c.MaxSteps)
	return min(max(d, 0), 1)
}
