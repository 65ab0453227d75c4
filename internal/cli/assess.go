package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/companion"
)

func newAssessCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "assess <text>",
		Short:   "Print the risk and emotion assessment of a message",
		Example: `  companion assess "I feel so alone today"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			assessment, err := companion.Assess(cfg, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), assessment)
		},
	}
}
