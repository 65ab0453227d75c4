package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/companion"
	"github.com/lewisedginton/wellbeing_companion/internal/speech"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/lewisedginton/wellbeing_companion/pkg/metrics"
)

const chatPrompt = "You: "

func newChatCommand(opts *rootOptions) *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation on the console",
		Long: `Start an interactive conversation. Type a message and press enter.
Type "analytics" to see your emotion insights and "exit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			ctx := cmd.Context()

			m := metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableTurnMetrics, log)
			if cfg.Metrics.ExposeMetrics {
				_ = m.Listen(cfg.Metrics.Port)
				defer func() { _ = m.Shutdown(context.WithoutCancel(ctx)) }()
			}

			app, err := companion.Build(ctx, cfg, m, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Error("Failed to close companion", logger.ErrorField(err))
				}
			}()

			listener := speech.NewConsoleListener(cmd.InOrStdin(), cmd.OutOrStdout(), chatPrompt)
			defer listener.Close()

			loop, err := companion.NewLoop(companion.LoopConfig{
				Engine:   app.Engine,
				Listener: listener,
				Display:  companion.NewWriterDisplay(cmd.OutOrStdout()),
				Speaker:  speech.NewLogSpeaker(log),
				Logger:   log,
			})
			if err != nil {
				return err
			}

			runErr := loop.Run(ctx)
			if !noBackup {
				if err := app.Backup(context.WithoutCancel(ctx), ""); err != nil {
					log.Warn("Failed to back up conversation memory", logger.ErrorField(err))
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip writing a memory backup when the conversation ends")
	return cmd
}
