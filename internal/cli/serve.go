package cli

import (
	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/companion"
	"github.com/lewisedginton/wellbeing_companion/internal/server"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/lewisedginton/wellbeing_companion/pkg/metrics"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the companion HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			cfg.LogConfig(log)

			m := metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableTurnMetrics, log)
			app, err := companion.Build(cmd.Context(), cfg, m, log)
			if err != nil {
				log.Error("Failed to build companion", logger.ErrorField(err))
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Error("Failed to close companion", logger.ErrorField(err))
				}
			}()

			return server.New(cfg, app, m, log).Run(cmd.Context())
		},
	}
}
