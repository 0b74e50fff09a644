// Package history keeps the per-requester conversation log of the bot.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStore reports a failure of the backing store.
var ErrStore = errors.New("history store failed")

// Direction tells whether an entry was received or sent by the bot.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Entry is one line of a requester's conversation.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	At        time.Time `json:"at"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// NewEntry stamps text with a fresh id and the current time.
func NewEntry(dir Direction, text string) Entry {
	return Entry{ID: uuid.New(), At: time.Now().UTC(), Direction: dir, Text: text}
}

// Store is safe for concurrent use. List returns entries oldest first.
type Store interface {
	Append(ctx context.Context, requester int64, e Entry) error
	List(ctx context.Context, requester int64) ([]Entry, error)
	Reset(ctx context.Context, requester int64) error
}

// DefaultLimit is the number of entries kept per requester.
const DefaultLimit = 200

// Option configures a Store.
type Option func(*options)

type options struct {
	limit  int
	prefix string
}

func defaultOptions() options {
	return options{limit: DefaultLimit, prefix: "tallybot:history"}
}

// WithLimit bounds the entries kept per requester. Older entries are
// dropped first. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
