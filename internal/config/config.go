// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loading wraps external errors with this package's sentinel kinds.
package config

import (
	"context"
	"runtime"
)

// Stream configures one discussion stream the bot tallies for.
type Stream struct {
	// StreamName is the chat stream name, e.g. "CS 35L Spring 2023".
	StreamName string `koanf:"stream_name" validate:"required"`

	// StreamSpecifier is the short token members put in private messages, e.g. "sp23".
	StreamSpecifier string `koanf:"stream_specifier"`

	// InvalidEmoji is the reaction a reviewer applies to void a message.
	InvalidEmoji string `koanf:"invalid_emoji" validate:"required"`

	// LabelingScheme selects the scheme variant by name.
	LabelingScheme string `koanf:"labeling_scheme" validate:"required"`

	// LabelerConfig holds scheme-specific parameters, decoded by the scheme.
	LabelerConfig map[string]any `koanf:"labeler_config"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the inbound request queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// WorkerCount sets the number of request workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// DedupeSize sets how many inbound message ids are remembered.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=1"`

	HistoryBackend string `koanf:"history_backend" validate:"oneof=memory redis"`
	HistoryLimit   int    `koanf:"history_limit" validate:"gte=1"`
	RedisAddr      string `koanf:"redis_addr" validate:"required_if=HistoryBackend redis"`

	MessageBackend string `koanf:"message_backend" validate:"oneof=postgres snapshot"`
	PostgresDSN    string `koanf:"postgres_dsn" validate:"required_if=MessageBackend postgres"`
	SnapshotPath   string `koanf:"snapshot_path" validate:"required_if=MessageBackend snapshot"`

	// ReviewerRule is a CEL expression over `user` deciding reviewer status.
	ReviewerRule string `koanf:"reviewer_rule" validate:"required"`

	// ExcludedSenders are display names whose messages never count (bots).
	ExcludedSenders []string `koanf:"excluded_senders"`

	// ResponseMaxLines caps the number of lines per reply chunk.
	ResponseMaxLines int `koanf:"response_max_lines" validate:"gte=1"`

	// ReportNoun is the unit name used in verbose reports.
	ReportNoun string `koanf:"report_noun" validate:"required"`

	Streams []Stream `koanf:"streams" validate:"dive"`
}

// New creates a Config with defaults. Context is accepted first to match the
// project convention; it is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       100_000,
		HistoryBackend:   "memory",
		HistoryLimit:     200,
		RedisAddr:        "localhost:6379",
		MessageBackend:   "snapshot",
		SnapshotPath:     "snapshot.yaml",
		ReviewerRule:     "user.role <= 300",
		ExcludedSenders:  []string{"Notification Bot"},
		ResponseMaxLines: 150,
		ReportNoun:       "RQ",
	}
}

// StreamByName returns the stream configured under name.
func (c *Config) StreamByName(name string) (Stream, bool) {
	for _, s := range c.Streams {
		if s.StreamName == name {
			return s, true
		}
	}
	return Stream{}, false
}
