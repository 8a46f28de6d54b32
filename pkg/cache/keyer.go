package cache

import "strings"

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// IdeaKey addresses the architecture generated for an idea.
	IdeaKey(idea string) string

	// LayoutKey addresses the layout of an architecture (by content hash)
	// under the given simulation parameters.
	LayoutKey(archHash string, opts LayoutKeyOpts) string

	// ArtifactKey addresses a rendered artifact of a layout (by content hash).
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the parameters that change a relaxed layout.
type LayoutKeyOpts struct {
	Radius        float64 `json:"radius"`
	Strength      float64 `json:"strength"`
	MaxSteps      int     `json:"max_steps"`
	Amplification float64 `json:"amplification"`
}

// ArtifactKeyOpts holds the parameters that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// IdeaKey hashes the idea text with surrounding whitespace removed, so
// "chat app" and " chat app\n" share an entry.
func (DefaultKeyer) IdeaKey(idea string) string {
	return hashKey(KeyTypeIdea, strings.TrimSpace(idea))
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(archHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, archHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
