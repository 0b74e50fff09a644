package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/replay"
)

func newReplayCmd(root *rootOptions) *cobra.Command {
	rc := replay.Config{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Drive a running bot with one request per user and stream",
		Long: `Plan one private tally request per directory user and configured stream,
submit them concurrently to the bot's inbox, and wait until every requester's
history holds the bot's answers. Requester histories are reset first.

Example:
  tallyctl replay --url http://localhost:9080 --workers 16 --duplicates 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := root.loadConfig(ctx)
			if err != nil {
				return err
			}
			b, err := app.OpenBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			users, err := b.Directory.Users(ctx)
			if err != nil {
				return err
			}

			rc.Verbose = root.verbose
			stats, err := replay.Run(ctx, &rc, replay.Plan(users, cfg.Streams, rc.BaseID))
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"planned %d, submitted %d: accepted %d, duplicate %d, rejected %d, failed %d\n",
					stats.Planned, stats.Submitted, stats.Accepted, stats.Duplicate, stats.Rejected, stats.Failed)
				fmt.Fprintf(cmd.OutOrStdout(), "answered %d of %d requesters in %s\n",
					stats.Answered, stats.Requesters, stats.Duration)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&rc.BaseURL, "url", "http://localhost:9080", "Base URL of the bot")
	cmd.Flags().IntVar(&rc.Workers, "workers", replay.DefaultWorkers, "Concurrent submitters")
	cmd.Flags().DurationVar(&rc.Timeout, "timeout", replay.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().DurationVar(&rc.Wait, "wait", replay.DefaultWait, "How long to wait for answers")
	cmd.Flags().Int64Var(&rc.BaseID, "base-id", replay.DefaultBaseID, "First inbound message id")
	cmd.Flags().IntVar(&rc.Duplicates, "duplicates", 0, "Requests to submit a second time")
	return cmd
}
