package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/adapters/repository"
	"github.com/okian/tallybot/internal/adapters/source"
	"github.com/okian/tallybot/internal/domain/model"
)

var errNoDSN = errors.New("no Postgres DSN: pass --dsn or set TALLY_POSTGRES_DSN")

func newImportCmd(root *rootOptions) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a YAML snapshot into Postgres",
		Long: `Create the users, messages and reactions tables if missing, then upsert
every user and insert every message of the snapshot in one transaction.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := root.loadConfig(ctx)
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = cfg.PostgresDSN
			}
			if dsn == "" {
				return errNoDSN
			}

			snap, err := source.OpenSnapshot(cfg.SnapshotPath)
			if err != nil {
				return err
			}
			users, msgs, err := snapshotContents(ctx, snap)
			if err != nil {
				return err
			}

			pg, err := repository.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			if err := pg.Import(ctx, users, msgs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users and %d messages\n", len(users), len(msgs))
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN (default: postgres_dsn from config)")
	return cmd
}

// snapshotContents returns every user and every message of snap.
func snapshotContents(ctx context.Context, snap *source.Snapshot) ([]directory.User, []model.Message, error) {
	users, err := snap.Users(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot users: %w", err)
	}
	var msgs []model.Message
	for _, stream := range snap.Streams() {
		batch, err := snap.FetchMessages(ctx, source.Scope{Stream: stream})
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot messages of %q: %w", stream, err)
		}
		msgs = append(msgs, batch...)
	}
	return users, msgs, nil
}
