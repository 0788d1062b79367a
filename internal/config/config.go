// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and BOOKPICKR_* env vars over the defaults.
// - Validation errors are wrapped in ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// CatalogBaseURL is the Open Library API root.
	CatalogBaseURL string `koanf:"catalog_base_url" validate:"required,url"`

	// CoversBaseURL is the Open Library covers root.
	CoversBaseURL string `koanf:"covers_base_url" validate:"required,url"`

	// CatalogUserAgent is sent on every outbound catalog request.
	CatalogUserAgent string `koanf:"catalog_user_agent" validate:"required"`

	// CatalogTimeoutMS bounds a single catalog HTTP round trip.
	CatalogTimeoutMS int `koanf:"catalog_timeout_ms" validate:"min=100"`

	// CatalogRatePerSec and CatalogBurst shape the courtesy limiter.
	CatalogRatePerSec float64 `koanf:"catalog_rate_per_sec" validate:"gt=0"`
	CatalogBurst      int     `koanf:"catalog_burst" validate:"min=1"`

	// BreakerFailureThreshold is the consecutive failure count that opens the breaker.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold" validate:"min=1"`

	// BreakerOpenSeconds is how long the breaker stays open before probing.
	BreakerOpenSeconds int `koanf:"breaker_open_seconds" validate:"min=1"`

	// StoragePath is the Badger directory; empty keeps the pool in memory.
	StoragePath string `koanf:"storage_path"`

	// PrefetchWorkers and PrefetchQueueSize size the cache-warming pipeline.
	PrefetchWorkers   int `koanf:"prefetch_workers" validate:"min=1"`
	PrefetchQueueSize int `koanf:"prefetch_queue_size" validate:"min=1"`

	// LeaderboardSize is the default entry count; MaxLeaderboardLimit caps ?limit.
	LeaderboardSize     int `koanf:"leaderboard_size" validate:"min=1"`
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"min=1,gtefield=LeaderboardSize"`

	SubjectPageSize       int `koanf:"subject_page_size" validate:"min=1,max=1000"`
	AuthorPoolLimit       int `koanf:"author_pool_limit" validate:"min=1,max=200"`
	AuthorSuggestionLimit int `koanf:"author_suggestion_limit" validate:"min=1,max=100"`

	// MatchWeights overrides the best-match scoring weights (title, author, isbn, cover).
	MatchWeights map[string]int `koanf:"match_weights" validate:"dive,keys,oneof=title author isbn cover,endkeys,min=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		CatalogBaseURL:          "https://openlibrary.org",
		CoversBaseURL:           "https://covers.openlibrary.org",
		CatalogUserAgent:        "bookpickr/1.0 (+https://github.com/okian/bookpickr)",
		CatalogTimeoutMS:        8000,
		CatalogRatePerSec:       5,
		CatalogBurst:            10,
		BreakerFailureThreshold: 5,
		BreakerOpenSeconds:      30,
		StoragePath:             "",
		PrefetchWorkers:         runtime.NumCPU(),
		PrefetchQueueSize:       256,
		LeaderboardSize:         5,
		MaxLeaderboardLimit:     50,
		SubjectPageSize:         20,
		AuthorPoolLimit:         20,
		AuthorSuggestionLimit:   8,
		MatchWeights: map[string]int{
			"title":  2,
			"author": 1,
			"isbn":   1,
			"cover":  1,
		},
	}
}

// CatalogTimeout returns CatalogTimeoutMS as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}

// BreakerOpenDuration returns BreakerOpenSeconds as a duration.
func (c *Config) BreakerOpenDuration() time.Duration {
	return time.Duration(c.BreakerOpenSeconds) * time.Second
}
