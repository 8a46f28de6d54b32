// Package pipeline provides the generate → layout → render pipeline for
// archflow.
//
// The same runner backs the CLI and the HTTP API so both entry points share
// defaults, validation and caching.
//
// # Stages
//
//  1. Generate: turn idea text into an [arch.Architecture] via the
//     generation service (skipped when a record is supplied)
//  2. Layout: map the record to a diagram and relax it with the repulsion
//     engine
//  3. Render: produce artifacts (JSON, DOT, SVG, PDF, PNG)
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, client, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Idea:    "a realtime chat app",
//	    Formats: []string{"json", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
)

// =============================================================================
// Formats
// =============================================================================

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

// DefaultFormat is rendered when no format is requested.
const DefaultFormat = FormatJSON

// formatOrder lists the supported formats from cheapest to most expensive.
var formatOrder = []string{FormatJSON, FormatDOT, FormatSVG, FormatPDF, FormatPNG}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPDF:  true,
	FormatPNG:  true,
}

// FormatNames returns the supported formats in a stable order.
func FormatNames() []string {
	return slices.Clone(formatOrder)
}

// PNGScale is the zoom factor used for PNG export.
const PNGScale = 2.0

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: %s)", format, strings.Join(formatOrder, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, trimming blanks and
// dropping duplicates.
func ParseFormats(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// =============================================================================
// Options
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Generate options
	Idea         string             `json:"idea,omitempty"`
	Architecture *arch.Architecture `json:"architecture,omitempty"`
	Refresh      bool               `json:"refresh,omitempty"`
	Validate     bool               `json:"validate,omitempty"`

	// Layout options
	Radius        float64 `json:"radius,omitempty"`
	Strength      float64 `json:"strength,omitempty"`
	MaxSteps      int     `json:"max_steps,omitempty"`
	Amplification float64 `json:"amplification,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Architecture == nil {
		if err := errors.ValidateIdea(o.Idea); err != nil {
			return err
		}
	}
	if err := o.validateLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

func (o *Options) validateLayout() error {
	if o.Radius < 0 || o.Strength < 0 || o.MaxSteps < 0 || o.Amplification < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout parameters must not be negative")
	}
	cfg := o.Config()
	o.Radius, o.Strength = cfg.Radius, cfg.Strength
	o.MaxSteps, o.Amplification = cfg.MaxSteps, cfg.Amplification
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return ValidateFormats(o.Formats)
}

// Config returns the simulation parameters, with defaults for unset fields.
func (o *Options) Config() repulsion.Config {
	return repulsion.Config{
		Radius:        o.Radius,
		Strength:      o.Strength,
		MaxSteps:      o.MaxSteps,
		Amplification: o.Amplification,
	}.WithDefaults()
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	cfg := o.Config()
	return cache.LayoutKeyOpts{
		Radius:        cfg.Radius,
		Strength:      cfg.Strength,
		MaxSteps:      cfg.MaxSteps,
		Amplification: cfg.Amplification,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}

// =============================================================================
// Results
// =============================================================================

// Generator produces architecture records from idea text.
// *ideas.Client implements it.
type Generator interface {
	Generate(ctx context.Context, idea string, refresh bool) (*arch.Architecture, error)
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Architecture is the generated or supplied record.
	Architecture *arch.Architecture

	// ArchHash is the content hash of the record.
	ArchHash string

	// Layout is the relaxed diagram.
	Layout diagram.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	Steps        int
	Converged    bool
	GenerateTime time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

func stageError(stage string, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}
