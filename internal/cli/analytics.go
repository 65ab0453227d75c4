package cli

import (
	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/companion"
)

func newAnalyticsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Print emotion insights from the conversation memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			app, err := companion.Build(cmd.Context(), cfg, nil, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			return printJSON(cmd.OutOrStdout(), app.Engine.Analytics())
		},
	}
}
