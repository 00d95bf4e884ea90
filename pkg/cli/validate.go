package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/convoflow/convoflow/pkg/flow"
)

// newValidateCommand creates the validate subcommand.
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow-file>...",
		Short: "Validate flow documents",
		Long: `Validate one or more flow documents: schema shape, node definitions,
and that every transition points at a node that exists.

Examples:
  convoflow validate flows/onboarding.yaml
  convoflow validate flows/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				f, err := flow.ParseFile(path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "✗ %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: flow %q, %d nodes\n", path, f.Name, len(f.Nodes))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d flow documents failed validation", failed, len(args))
			}
			return nil
		},
	}
}
