package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/arch"
)

// sampleCommand creates the sample command, which writes the built-in
// architecture so the other commands can be tried without a service.
func (c *CLI) sampleCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the built-in sample architecture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSample(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "sample.json", `output file, .yaml for YAML ("-" for stdout)`)

	return cmd
}

func (c *CLI) runSample(output string) error {
	a := arch.Sample()
	if output == "-" {
		data, err := arch.Marshal(a)
		if err != nil {
			return err
		}
		return writeOutput(output, data)
	}
	if err := arch.WriteFile(a, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Wrote %s", StyleTitle.Render(a.ProjectName))
	printFile(output)
	printStats(a.NodeCount(), a.EdgeCount(), false)
	printNewline()
	printNextStep("Watch", appName+" watch "+output)
	return nil
}
