package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/adapters/repository"
	"github.com/okian/tallybot/internal/adapters/source"
	"github.com/okian/tallybot/internal/config"
)

// Backends are the external stores selected by configuration.
type Backends struct {
	Source    source.Source
	Directory directory.Directory
	History   history.Store

	closers []func() error
}

// Close releases every opened backend.
func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenBackends connects the message source, member directory and history
// store named by cfg. On failure anything already opened is closed.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	const op = "app.OpenBackends"
	b := &Backends{}

	switch cfg.MessageBackend {
	case "postgres":
		pg, err := repository.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		b.Source, b.Directory = pg, pg
		b.closers = append(b.closers, pg.Close)
	case "snapshot":
		snap, err := source.OpenSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		b.Source, b.Directory = snap, snap
	default:
		return nil, fmt.Errorf("%s: unknown message backend %q", op, cfg.MessageBackend)
	}

	switch cfg.HistoryBackend {
	case "redis":
		r, err := history.Connect(ctx, cfg.RedisAddr, history.WithLimit(cfg.HistoryLimit))
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		b.History = r
		b.closers = append(b.closers, r.Close)
	case "memory", "":
		b.History = history.NewMemory(history.WithLimit(cfg.HistoryLimit))
	default:
		_ = b.Close()
		return nil, fmt.Errorf("%s: unknown history backend %q", op, cfg.HistoryBackend)
	}
	return b, nil
}
