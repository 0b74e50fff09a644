// Command tallyctl answers tally queries and administers the message store
// from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/config"
	"github.com/okian/tallybot/pkg/logger"
)

type rootOptions struct {
	cfgFile  string
	snapshot string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "tallyctl",
		Short: "Participation credit tallies from the command line",
		Long: `tallyctl runs the tally service in-process or against a running bot.

Commands:
  tally    Answer one tally query for a requester and stream
  labels   List the labels a stream's scheme accepts
  import   Load a YAML snapshot into Postgres
  replay   Drive a running bot with one request per user and stream

Configuration is read the same way as the bot: defaults, then the YAML file
named by --config or TALLY_CONFIG, then TALLY_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfgFile != "" {
				if err := os.Setenv(config.EnvConfigPath, opts.cfgFile); err != nil {
					return err
				}
			}
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config file (default: $TALLY_CONFIG)")
	root.PersistentFlags().StringVar(&opts.snapshot, "snapshot", "", "Serve messages from this YAML snapshot instead of the configured backend")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newTallyCmd(opts),
		newLabelsCmd(opts),
		newImportCmd(opts),
		newReplayCmd(opts),
	)
	return root
}

// loadConfig loads the configuration and applies the --snapshot override.
func (o *rootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if o.snapshot != "" {
		cfg.MessageBackend = "snapshot"
		cfg.SnapshotPath = o.snapshot
	}
	return cfg, nil
}

// openService builds an unstarted service over the configured backends.
// The returned close func releases the backends.
func (o *rootOptions) openService(ctx context.Context) (*app.Service, func(), error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	b, err := app.OpenBackends(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.New(cfg, b.Directory, b.Source,
		app.WithLogger(logger.Get()),
		app.WithHistory(b.History),
	)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return svc, func() { _ = b.Close() }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
