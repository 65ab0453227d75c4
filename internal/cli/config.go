package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			// flag overrides are not covered by Load
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			log := newLogger(cmd, cfg)
			cfg.LogConfig(log)
			log.Info("Configuration validation passed", logger.StringField("config_file", opts.configFile))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
			return err
		},
	})
	return cmd
}
