package service

import (
	"github.com/okian/bookpickr/internal/adapters/repository"
	"github.com/okian/bookpickr/internal/domain/selection"
	"github.com/okian/bookpickr/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCatalog sets the catalog the service looks books up in.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithStore sets the key-value store for the active pool. Without it an
// in-memory store is opened on Start and closed on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of prefetch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the prefetch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLeaderboardSize sets how many entries Leaderboard returns by default.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithMaxLeaderboardLimit caps the limit a caller may ask for.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithSubjectPageSize sets the default subject preview size.
func WithSubjectPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subjectPageSize = n
		}
	}
}

// WithAuthorPoolLimit sets the default author preview size.
func WithAuthorPoolLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.authorPoolLimit = n
		}
	}
}

// WithSuggestionLimit sets the default number of author suggestions.
func WithSuggestionLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestionLimit = n
		}
	}
}

// WithEngineOptions passes options through to the selection engine.
func WithEngineOptions(opts ...selection.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
