package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

const defaultRunBase = "archflow"

// runCommand creates the run command, which chains generate, layout and
// render.
func (c *CLI) runCommand() *cobra.Command {
	var (
		base       string
		formatsStr string
		noCache    bool
	)
	var flags pipeline.Options

	cmd := &cobra.Command{
		Use:   "run <idea>",
		Short: "Generate, lay out and render an idea in one step",
		Long: `Generate, lay out and render an idea in one step.

Writes <base>.arch.json, <base>.layout.json and one <base>.<format> file per
requested format.`,
		Example: `  archflow run "A video streaming platform" -f svg,dot -o streaming`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.mergeLayoutFlags(cmd, flags)
			opts.Idea = args[0]
			opts.Refresh = flags.Refresh
			opts.Detailed = flags.Detailed
			opts.Formats = pipeline.ParseFormats(formatsStr)
			return c.runPipeline(cmd.Context(), opts, base, noCache)
		},
	}

	cmd.Flags().StringVarP(&base, "output", "o", defaultRunBase, "base path for all output files")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", pipeline.FormatSVG, "output format(s): json, dot, svg, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&flags.Detailed, "detailed", false, "show service and provider on each node")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	cmd.Flags().BoolVar(&flags.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &flags)

	return cmd
}

func (c *CLI) runPipeline(ctx context.Context, opts pipeline.Options, base string, noCache bool) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))

	a, err := c.generate(ctx, runner, opts)
	if err != nil {
		return err
	}
	opts.Architecture = a

	spinner := newSpinner(ctx, fmt.Sprintf("Relaxing and rendering %d nodes...", a.NodeCount()))
	spinner.Start()
	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Pipeline failed")
		return err
	}
	spinner.Stop()

	archPath := base + ".arch.json"
	if err := arch.WriteFile(res.Architecture, archPath); err != nil {
		return fmt.Errorf("write output %s: %w", archPath, err)
	}
	layoutPath := base + ".layout.json"
	if err := diagram.WriteLayoutFile(res.Layout, layoutPath); err != nil {
		return fmt.Errorf("write output %s: %w", layoutPath, err)
	}
	paths, err := writeArtifacts(res.Artifacts, opts.Formats, "", layoutPath)
	if err != nil {
		return err
	}
	prog.done("pipeline finished", "nodes", res.Stats.NodeCount, "steps", res.Layout.Simulation.Steps)

	printSuccess("Built %s", StyleTitle.Render(projectTitle(a.ProjectName)))
	printFile(archPath)
	printFile(layoutPath)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.LayoutHit)
	printSimulation(res.Layout.Simulation)
	printCost(a.CloudEstimation)
	printNewline()
	printNextStep("Watch", appName+" watch "+archPath)
	return nil
}
