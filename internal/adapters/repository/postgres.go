package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/adapters/source"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/pkg/metrics"
)

const backend = "postgres"

// Postgres serves messages and users from PostgreSQL. It implements
// source.Source and directory.Directory.
type Postgres struct {
	bun          *bun.DB
	queryTimeout time.Duration
}

var (
	_ source.Source       = (*Postgres)(nil)
	_ directory.Directory = (*Postgres)(nil)
)

// Connect connects to the database and pings it to ensure the connection
// is working.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(bun.NewDB(sqlDB, pgdialect.New()), opts...), nil
}

// New wraps an open bun database.
func New(db *bun.DB, opts ...Option) *Postgres {
	p := &Postgres{bun: db, queryTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close closes the underlying database.
func (p *Postgres) Close() error {
	return p.bun.Close()
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}

// FetchMessages returns the messages of scope.Stream with senders and
// reactions, ordered by id.
func (p *Postgres) FetchMessages(ctx context.Context, scope source.Scope) ([]model.Message, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	var msgs []message
	err := p.bun.NewSelect().
		Model(&msgs).
		Relation("Sender").
		Relation("Reactions").
		Where("m.stream = ?", scope.Stream).
		Order("m.id ASC").
		Scan(ctx)
	metrics.RecordFetchLatency(backend, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return nil, fmt.Errorf("%w: messages: %w", ErrQuery, err)
	}

	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.DomainMessage()
	}
	return out, nil
}

// Users returns every user ordered by id.
func (p *Postgres) Users(ctx context.Context) ([]directory.User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var rows []user
	if err := p.bun.NewSelect().Model(&rows).Order("u.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: users: %w", ErrQuery, err)
	}
	out := make([]directory.User, len(rows))
	for i, u := range rows {
		out[i] = u.DirectoryUser()
	}
	return out, nil
}

// User returns the user with id.
func (p *Postgres) User(ctx context.Context, id int64) (directory.User, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var row user
	err := p.bun.NewSelect().Model(&row).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, fmt.Errorf("%w: %d", directory.ErrUserNotFound, id)
	}
	if err != nil {
		return directory.User{}, fmt.Errorf("%w: user %d: %w", ErrQuery, id, err)
	}
	return row.DirectoryUser(), nil
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, m := range []any{(*user)(nil), (*message)(nil), (*reaction)(nil)} {
		if _, err := p.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Import upserts users and inserts messages with their reactions in one
// transaction.
func (p *Postgres) Import(ctx context.Context, users []directory.User, msgs []model.Message) error {
	return p.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(users) > 0 {
			rows := make([]user, len(users))
			for i, u := range users {
				rows[i] = fromDirectoryUser(u)
			}
			if _, err := tx.NewInsert().Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("full_name = EXCLUDED.full_name").
				Set("email = EXCLUDED.email").
				Set("delivery_email = EXCLUDED.delivery_email").
				Set("role = EXCLUDED.role").
				Exec(ctx); err != nil {
				return fmt.Errorf("%w: users: %w", ErrInsert, err)
			}
		}
		if len(msgs) == 0 {
			return nil
		}
		rows := make([]message, len(msgs))
		var reactions []reaction
		for i, m := range msgs {
			var rs []reaction
			rows[i], rs = fromDomainMessage(m)
			reactions = append(reactions, rs...)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("%w: messages: %w", ErrInsert, err)
		}
		if len(reactions) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&reactions).Exec(ctx); err != nil {
			return fmt.Errorf("%w: reactions: %w", ErrInsert, err)
		}
		return nil
	})
}
