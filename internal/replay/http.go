package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/pkg/logger"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// client wraps http.Client for the service endpoints.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(cfg *Config) *client {
	return &client{http: &http.Client{Timeout: cfg.Timeout}, baseURL: cfg.BaseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) submit(ctx context.Context, in model.Inbound) string {
	resp, err := c.do(ctx, http.MethodPost, "/messages", in)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeFailed
	case http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func (c *client) history(ctx context.Context, requester int64) ([]history.Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, "/history/"+strconv.FormatInt(requester, 10), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history for %d returned status %d", requester, resp.StatusCode)
	}
	var out historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out.Entries, nil
}

func (c *client) resetHistory(ctx context.Context, requester int64) error {
	resp, err := c.do(ctx, http.MethodDelete, "/history/"+strconv.FormatInt(requester, 10), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("reset history for %d returned status %d", requester, resp.StatusCode)
	}
	return nil
}

// submitAll posts reqs with cfg.Workers concurrent submitters and returns
// the number of accepted requests per sender.
func submitAll(ctx context.Context, cfg *Config, c *client, reqs []model.Inbound, stats *Stats) map[int64]int {
	log := logger.Default()
	log.Info(ctx, "submitting requests", logger.Int("requests", len(reqs)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, rejected, failed atomic.Int64
	var mu sync.Mutex
	perSender := make(map[int64]int)

	ch := make(chan model.Inbound, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range ch {
				if ctx.Err() != nil {
					return
				}
				submitted.Add(1)
				switch c.submit(ctx, in) {
				case outcomeAccepted:
					accepted.Add(1)
					mu.Lock()
					perSender[in.SenderID]++
					mu.Unlock()
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "submitted", logger.Int64("id", in.ID), logger.Int64("sender", in.SenderID))
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, in := range reqs {
			select {
			case <-ctx.Done():
				return
			case ch <- in:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed))
	return perSender
}
