package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/tallybot/pkg/metrics"
)

// Redis keeps each requester's entries in a capped Redis list.
type Redis struct {
	cli    *redis.Client
	limit  int
	prefix string
}

var _ Store = (*Redis)(nil)

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string, opts ...Option) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(cli, opts...), nil
}

// NewRedis wraps an existing client.
func NewRedis(cli *redis.Client, opts ...Option) *Redis {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Redis{cli: cli, limit: o.limit, prefix: o.prefix}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.cli.Close()
}

func (r *Redis) key(requester int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, requester)
}

func (r *Redis) Append(ctx context.Context, requester int64, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %w", ErrStore, err)
	}
	key := r.key(requester)
	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, raw)
		pipe.LTrim(ctx, key, int64(-r.limit), -1)
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("history", "rpush")
		return fmt.Errorf("%w: rpush: %w", ErrStore, err)
	}
	metrics.RecordHistoryAppend(string(e.Direction))
	return nil
}

func (r *Redis) List(ctx context.Context, requester int64) ([]Entry, error) {
	vals, err := r.cli.LRange(ctx, r.key(requester), 0, -1).Result()
	if err != nil {
		metrics.RecordErrorByComponent("history", "lrange")
		return nil, fmt.Errorf("%w: lrange: %w", ErrStore, err)
	}
	return decodeEntries(vals)
}

func (r *Redis) Reset(ctx context.Context, requester int64) error {
	if err := r.cli.Del(ctx, r.key(requester)).Err(); err != nil {
		metrics.RecordErrorByComponent("history", "del")
		return fmt.Errorf("%w: del: %w", ErrStore, err)
	}
	metrics.RecordHistoryReset()
	return nil
}

func decodeEntries(vals []string) ([]Entry, error) {
	out := make([]Entry, len(vals))
	for i, v := range vals {
		if err := json.Unmarshal([]byte(v), &out[i]); err != nil {
			return nil, fmt.Errorf("%w: decode entry %d: %w", ErrStore, i, err)
		}
	}
	return out, nil
}
