package commands

import (
	"fmt"

	"github.com/jiffoo/mall/internal/infrastructure/config"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Options customize how commands obtain their configuration
type Options struct {
	// LoadConfig defaults to config.Load
	LoadConfig func() (*config.Config, error)
}

// app carries the state shared by every subcommand once the root command
// has loaded configuration
type app struct {
	opts     Options
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
}

// NewRootCommand builds the mallctl command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "mallctl",
		Short: "Operations tool for the Jiffoo Mall backend",
		Long: `mallctl manages a Jiffoo Mall deployment.

It reads the same configuration as the API server (config.yaml and
MALL_* environment variables). Tokens and keys are written to stdout,
logs to stderr.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = logger.Sync(a.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCommand(a),
		newSeedCommand(a),
		newServiceTokenCommand(a),
		newLicenseCommand(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	cfg, err := a.opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      a.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}
