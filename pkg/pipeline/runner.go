package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner holds no per-run state, so multiple goroutines can safely use
// the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Client Generator
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// client may be nil when every run supplies its own architecture.
func NewRunner(c cache.Cache, keyer cache.Keyer, client Generator, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Client: client,
		Logger: logger,
	}
}

// Execute runs the complete generate → layout → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Generate
	genStart := time.Now()
	a := opts.Architecture
	if a == nil {
		var err error
		if a, err = r.Generate(ctx, opts); err != nil {
			return nil, stageError("generate", err)
		}
		r.Logger.Info("generated architecture",
			"project", a.ProjectName,
			"nodes", a.NodeCount(),
			"edges", a.EdgeCount(),
			"duration", time.Since(genStart))
	}
	if opts.Validate {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	result.Architecture = a
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.NodeCount = a.NodeCount()
	result.Stats.EdgeCount = a.EdgeCount()

	// Stage 2: Layout
	layoutStart := time.Now()
	l, hash, layoutHit, err := r.layout(ctx, a, opts)
	if err != nil {
		return nil, stageError("layout", err)
	}
	result.ArchHash = hash
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Steps = l.Simulation.Steps
	result.Stats.Converged = l.Simulation.Converged
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"nodes", len(l.Nodes),
		"steps", l.Simulation.Steps,
		"converged", l.Simulation.Converged,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, stageError("render", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Generate asks the generation service for an architecture. The client
// caches responses itself; opts.Refresh bypasses that cache.
func (r *Runner) Generate(ctx context.Context, opts Options) (*arch.Architecture, error) {
	if r.Client == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no generation service configured")
	}
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnGenerateStart(ctx, len(opts.Idea))

	a, err := r.Client.Generate(ctx, opts.Idea, opts.Refresh)
	if err != nil {
		hooks.OnGenerateComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnGenerateComplete(ctx, a.NodeCount(), a.EdgeCount(), time.Since(start), nil)
	return a, nil
}

// LayoutWithCacheInfo maps and relaxes a, caching the result by the record's
// content hash and the simulation parameters. It reports whether the layout
// came from cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, a *arch.Architecture, opts Options) (diagram.Layout, bool, error) {
	l, _, hit, err := r.layout(ctx, a, opts)
	return l, hit, err
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Layout(ctx context.Context, a *arch.Architecture, opts Options) (diagram.Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, a, opts)
	return l, err
}

func (r *Runner) layout(ctx context.Context, a *arch.Architecture, opts Options) (diagram.Layout, string, bool, error) {
	if err := opts.validateLayout(); err != nil {
		return diagram.Layout{}, "", false, err
	}
	if a == nil {
		a = &arch.Architecture{}
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnLayoutStart(ctx, a.NodeCount())

	hash, err := cache.HashJSON(a)
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, false, time.Since(start), err)
		return diagram.Layout{}, "", false, errors.Wrap(errors.ErrCodeInternal, err, "hash architecture")
	}
	key := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	var l diagram.Layout
	if !opts.Refresh && cache.GetJSON(ctx, r.Cache, cache.KeyTypeLayout, key, &l) {
		hooks.OnLayoutComplete(ctx, l.Simulation.Steps, l.Simulation.Converged, time.Since(start), nil)
		return l, hash, true, nil
	}

	l = diagram.Relax(a, opts.Config())
	if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypeLayout, key, l, cache.TTLLayout); err != nil {
		opts.Logger.Warn("cache layout", "error", err)
	}
	hooks.OnLayoutComplete(ctx, l.Simulation.Steps, l.Simulation.Converged, time.Since(start), nil)
	return l, hash, false, nil
}

// RenderWithCacheInfo generates artifacts with caching and reports whether
// every artifact came from cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	layoutHash, err := cache.HashJSON(l)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash layout")
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, ok := cache.GetBytes(ctx, r.Cache, cache.KeyTypeArtifact, key)
			if !ok {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)

	rendered, err := RenderFromLayout(ctx, l, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := cache.SetBytes(ctx, r.Cache, cache.KeyTypeArtifact, key, data, cache.TTLArtifact); err != nil {
			opts.Logger.Warn("cache artifact", "format", format, "error", err)
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Render(ctx context.Context, l diagram.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
