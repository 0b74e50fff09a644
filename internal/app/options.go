package app

import (
	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/domain/dedupe"
	"github.com/okian/tallybot/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHistory sets the conversation store. The default is an in-memory
// store bounded by the configured history limit.
func WithHistory(h history.Store) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithDeduper replaces the inbound message deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}
