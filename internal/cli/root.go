package cli

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the fluxi CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithArgs(ver, os.Args[1:], os.LookupEnv)
}

// NewRootCmdWithArgs creates the root command with explicit args and env
// lookup for testability. lookupEnv decides whether output may be styled
// (NO_COLOR disables it).
func NewRootCmdWithArgs(
	ver string,
	args []string,
	lookupEnv func(string) (string, bool),
) *cobra.Command {
	var (
		flags rootFlags
		app   appState
	)

	_, noColor := lookupEnv("NO_COLOR")
	out := &outputOptions{noColor: noColor}

	cmd := &cobra.Command{
		Use:           "fluxi",
		Short:         "Personal finance ledger with a TTL read cache",
		Long:          "fluxi: track income, expenses and savings goals; dashboard reads are cached with group invalidation",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if err = setupLogging(cmd, cfg); err != nil {
				return err
			}
			return app.init(commandContext(cmd), cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			var metricsErr error
			if flags.metrics {
				metricsErr = writeMetrics(cmd.ErrOrStderr(), app.registry)
			}
			return errors.Join(metricsErr, app.close(), cleanupLogging(cmd))
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.fluxi/config.yaml)")
	pf.StringVar(&flags.cacheBackend, "cache-backend", "",
		"cache backend: memory, file, ristretto, redis or none (overrides config file and env var)")
	pf.StringVar(&flags.cacheTTL, "cache-ttl", "",
		"default cache TTL, milliseconds or duration such as 90s (overrides config file and env var)")
	pf.StringVar(&flags.dataFile, "data-file", "", "ledger file (default ~/.fluxi/ledger.json)")
	pf.BoolVar(&flags.metrics, "metrics", false, "print cache counters to stderr after the command")

	cmd.AddCommand(
		newCacheCmd(&app),
		newTxCmd(&app, out),
		newGoalCmd(&app, out),
		newProfileCmd(&app, out),
		newSummaryCmd(&app, out),
		newDashboardCmd(&app, out),
	)

	if args != nil {
		cmd.SetArgs(args)
	}
	return cmd
}

const rootCmdExample = `  # Record income and an expense
  fluxi tx add --type income --amount 3200 --description "Salary"
  fluxi tx add --type expense --amount 42.90 --description "Groceries" --category <id>

  # Show the cached balance overview and the dashboard
  fluxi summary
  fluxi dashboard --metrics

  # Save towards a goal
  fluxi goal add --name "Trip" --target 2500
  fluxi goal deposit <goal-id> 300

  # Inspect and manage the cache
  fluxi cache groups
  fluxi cache get financial_summary
  fluxi cache invalidate goal
  fluxi cache clear-all

  # Use an in-process cache backend with a short TTL
  fluxi --cache-backend ristretto --cache-ttl 30s dashboard`
