// Package replay drives a running tally service over HTTP: it plans one
// tally request per requester and stream, submits them concurrently to the
// inbox, and checks every requester's history for the bot's answers.
package replay

import (
	"time"

	"github.com/okian/tallybot/internal/adapters/history"
)

// Config holds configuration for a replay run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Wait         time.Duration // How long to wait for answers
	PollInterval time.Duration // Delay between history polls
	BaseID       int64         // First inbound message id
	Duplicates   int           // Requests submitted a second time
	Verbose      bool
}

// Defaults for a replay run.
const (
	DefaultWorkers      = 8
	DefaultTimeout      = 10 * time.Second
	DefaultWait         = 30 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
	DefaultBaseID       = 1_000_000
)

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Wait <= 0 {
		out.Wait = DefaultWait
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.BaseID <= 0 {
		out.BaseID = DefaultBaseID
	}
	return &out
}

// AckResponse is the inbox acknowledgement.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type historyResponse struct {
	RequesterID int64           `json:"requester_id"`
	Entries     []history.Entry `json:"entries"`
}

// Stats holds run statistics.
type Stats struct {
	Planned    int
	Submitted  int
	Accepted   int
	Duplicate  int
	Rejected   int // 429 backpressure
	Failed     int
	Requesters int
	Answered   int
	Unanswered []int64
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
