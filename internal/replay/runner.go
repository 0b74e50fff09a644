package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/pkg/logger"
)

// ErrUnanswered reports requesters that never received a reply.
var ErrUnanswered = errors.New("requests left unanswered")

// Run replays reqs against the service at cfg.BaseURL:
//
//  1. check service health
//  2. reset the history of every requester
//  3. submit the requests, then cfg.Duplicates of them again
//  4. poll histories until every accepted request is answered
func Run(ctx context.Context, cfg *Config, reqs []model.Inbound) (*Stats, error) {
	cfg = cfg.withDefaults()
	stats := &Stats{StartTime: time.Now(), Planned: len(reqs)}
	log := logger.Default()
	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", len(reqs)),
		logger.Int("workers", cfg.Workers),
		logger.Duration("wait", cfg.Wait))

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	for id := range requesters(reqs) {
		if err := c.resetHistory(ctx, id); err != nil {
			return stats, fmt.Errorf("reset history: %w", err)
		}
	}

	batch := reqs
	if n := min(cfg.Duplicates, len(reqs)); n > 0 {
		batch = append(append(make([]model.Inbound, 0, len(reqs)+n), reqs...), reqs[:n]...)
	}
	expected := submitAll(ctx, cfg, c, batch, stats)
	awaitAnswers(ctx, cfg, c, expected, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "replay finished",
		logger.Int("requesters", stats.Requesters),
		logger.Int("answered", stats.Answered),
		logger.Duration("duration", stats.Duration))

	if len(stats.Unanswered) > 0 {
		return stats, fmt.Errorf("%w: %v", ErrUnanswered, stats.Unanswered)
	}
	return stats, nil
}
