package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

// layoutCommand creates the layout command for relaxing an architecture into
// a diagram layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "layout [arch.json]",
		Short: "Compute a relaxed diagram layout from an architecture record",
		Long: `Compute a relaxed diagram layout from an architecture record.

The layout command maps an arch.json file (produced by 'generate' or 'sample')
onto a layered diagram and runs the repulsion simulation until no two nodes
are closer than --radius or --max-steps is reached. The output is a
layout.json file that can be rendered with the 'render' command.

Results are cached by the record's content and the simulation parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], c.mergeLayoutFlags(cmd, opts), output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &opts)

	return cmd
}

// addLayoutFlags registers the simulation and validation flags. Unset flags
// fall back to the [layout] section of the config.
func addLayoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().Float64Var(&opts.Radius, "radius", 0, "minimum center distance between nodes")
	cmd.Flags().Float64Var(&opts.Strength, "strength", 0, "base push per iteration")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "iteration budget")
	cmd.Flags().Float64Var(&opts.Amplification, "amplification", 0, "push amplification factor")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "reject records with duplicate IDs or dangling edges")
}

// mergeLayoutFlags overlays explicitly set flags on the configured layout.
func (c *CLI) mergeLayoutFlags(cmd *cobra.Command, flags pipeline.Options) pipeline.Options {
	opts := c.layoutOptions()
	if cmd.Flags().Changed("radius") {
		opts.Radius = flags.Radius
	}
	if cmd.Flags().Changed("strength") {
		opts.Strength = flags.Strength
	}
	if cmd.Flags().Changed("max-steps") {
		opts.MaxSteps = flags.MaxSteps
	}
	if cmd.Flags().Changed("amplification") {
		opts.Amplification = flags.Amplification
	}
	opts.Validate = flags.Validate
	return opts
}

// runLayout loads the record, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	a, err := arch.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load architecture %s: %w", input, err)
	}
	if opts.Validate {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Relaxing %d nodes...", a.NodeCount()))
	spinner.Start()

	l, cacheHit, err := runner.LayoutWithCacheInfo(ctx, a, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	dst := outputPath(output, input, ".layout.json")
	if err := diagram.WriteLayoutFile(l, dst); err != nil {
		return fmt.Errorf("write output %s: %w", dst, err)
	}

	printSuccess("Layout complete")
	printFile(dst)
	printStats(a.NodeCount(), a.EdgeCount(), cacheHit)
	printSimulation(l.Simulation)
	printNewline()
	printNextStep("Render", appName+" render "+dst)

	return nil
}
