package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/config"
)

// setupLogging configures the global logger from the resolved config and
// attaches the CLI logger to the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	config.SetGlobalConfig(cfg)

	toFile := cfg.Logging.File != ""
	if err := config.InitLogger(cfg.Logging.Level, toFile); err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not open log file, logging to stderr only: %v\n", err)
		if err = config.InitLogger(cfg.Logging.Level, false); err != nil {
			return err
		}
	}

	logger = config.ComponentLogger("cli")
	ctx := logger.WithContext(commandContext(cmd))
	cmd.SetContext(ctx)

	logger.Debug().Ctx(ctx).Str("command", cmd.CommandPath()).Msg("command started")
	return nil
}

// cleanupLogging closes the log file handle, if any.
func cleanupLogging(cmd *cobra.Command) error {
	logger.Debug().Ctx(commandContext(cmd)).Str("command", cmd.CommandPath()).Msg("command finished")
	config.CloseLogFile()
	return nil
}
