// Package cli implements the companion command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lewisedginton/wellbeing_companion/internal/config"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	logLevel   string
	logFormat  string
	configFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "companion",
		Short: "Wellbeing companion",
		Long: `A supportive conversation companion that screens every message for crisis
risk, reads its emotional tone and answers with a matching reply.

Crisis replies always carry helpline numbers. Conversations are remembered
in the configured memory backend.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (json, text); overrides LOG_FORMAT")
	root.PersistentFlags().StringVar(&opts.configFile, "config-file", os.Getenv("CONFIG_FILE"), "Path to YAML configuration file")

	root.AddCommand(
		newChatCommand(opts),
		newServeCommand(opts),
		newAnalyticsCommand(opts),
		newAssessCommand(opts),
		newConfigCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// Execute runs the command line until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// load reads the configuration and applies the flag overrides.
func (o *rootOptions) load() (*config.AppConfig, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	return cfg, nil
}

// newLogger writes to the command's error stream so it never mixes with the
// conversation on stdout.
func newLogger(cmd *cobra.Command, cfg *config.AppConfig) logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
		Output:  cmd.ErrOrStderr(),
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
