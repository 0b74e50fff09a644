// Package source fetches message snapshots for tally runs.
package source

import (
	"context"
	"errors"

	"github.com/okian/tallybot/internal/domain/model"
)

// ErrInvalidSnapshot marks a snapshot file that cannot be used.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Scope selects the messages of one stream.
type Scope struct {
	Stream string
}

// Source returns a stable snapshot: no message twice, none dropped.
type Source interface {
	FetchMessages(ctx context.Context, scope Scope) ([]model.Message, error)
}
