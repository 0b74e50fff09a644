package replay

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/pkg/logger"
)

// answered counts outbound entries. A chunked reply stores one entry per
// chunk, so the count can run ahead of the number of answered requests.
func answered(entries []history.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Direction == history.DirectionOut {
			n++
		}
	}
	return n
}

// awaitAnswers polls every requester's history until it holds at least the
// expected number of replies or cfg.Wait elapses.
func awaitAnswers(ctx context.Context, cfg *Config, c *client, expected map[int64]int, stats *Stats) {
	log := logger.Default()
	log.Info(ctx, "waiting for answers", logger.Int("requesters", len(expected)))

	pending := maps.Clone(expected)
	for id, n := range pending {
		if n == 0 {
			delete(pending, id)
		}
	}

	deadline := time.NewTimer(cfg.Wait)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for id, want := range pending {
			entries, err := c.history(ctx, id)
			if err != nil {
				log.Debug(ctx, "history poll failed", logger.Int64("requester", id), logger.Error(err))
				continue
			}
			if answered(entries) >= want {
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			finish(stats, expected, pending)
			return
		case <-deadline.C:
			log.Warn(ctx, "gave up waiting for answers", logger.Int("pending", len(pending)))
			finish(stats, expected, pending)
			return
		case <-ticker.C:
		}
	}
	finish(stats, expected, pending)
}

func finish(stats *Stats, expected, pending map[int64]int) {
	stats.Requesters = len(expected)
	stats.Unanswered = slices.Sorted(maps.Keys(pending))
	stats.Answered = 0
	for id, n := range expected {
		if _, ok := pending[id]; !ok && n > 0 {
			stats.Answered++
		}
	}
}
