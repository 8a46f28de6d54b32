package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

const defaultArchFile = "arch.json"

// generateCommand creates the generate command, which turns idea text into an
// architecture record.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		output  string
		refresh bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "generate <idea>",
		Short: "Generate an architecture record from a product idea",
		Long: `Generate an architecture record from a product idea.

The idea is sent to the generation service configured under [service] (or
ARCHFLOW_API_URL). Responses are cached per idea; --refresh asks the service
again.`,
		Example: `  archflow generate "A realtime chat app with file sharing"
  archflow generate "An e-commerce store" -o shop.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args[0], output, refresh, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", defaultArchFile, "output file")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached responses for this idea")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, idea, output string, refresh, noCache bool) error {
	if err := errors.ValidateIdea(idea); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	a, err := c.generate(ctx, runner, pipeline.Options{Idea: idea, Refresh: refresh})
	if err != nil {
		return err
	}

	if err := arch.WriteFile(a, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Generated %s", StyleTitle.Render(projectTitle(a.ProjectName)))
	printFile(output)
	printStats(a.NodeCount(), a.EdgeCount(), false)
	printCost(a.CloudEstimation)
	printNewline()
	printNextStep("Lay out", appName+" layout "+output)
	printNextStep("Watch", appName+" watch "+output)
	return nil
}

// generate calls the service behind a spinner.
func (c *CLI) generate(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*arch.Architecture, error) {
	spinner := newSpinner(ctx, "Generating architecture...")
	spinner.Start()

	a, err := runner.Generate(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return nil, fmt.Errorf("generate: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if a.NodeCount() == 0 {
		printWarning("The service returned no nodes")
	}
	return a, nil
}

func projectTitle(name string) string {
	if name == "" {
		return "untitled project"
	}
	return name
}
