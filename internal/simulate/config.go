// Package simulate drives a running BookPickr server through a number of
// picking rounds and checks that the server's tally agrees with what was
// sent.
package simulate

import (
	"fmt"
	"time"
)

// Default run settings.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultRounds  = 50
	DefaultTopN    = 5
	DefaultTimeout = 10 * time.Second
)

// Strategy decides which side of a pair wins.
type Strategy string

// Supported strategies.
const (
	PreferChampion   Strategy = "champion"
	PreferChallenger Strategy = "challenger"
	PreferRandom     Strategy = "random"
	PreferTitle      Strategy = "title"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case PreferChampion, PreferChallenger, PreferRandom, PreferTitle:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Config holds the settings for one simulation run.
type Config struct {
	BaseURL string
	Rounds  int
	Prefer  Strategy
	Seed    uint64
	TopN    int
	Timeout time.Duration
	// Reset clears the server tally before the first round.
	Reset   bool
	Verbose bool
}

// Option applies a configuration option to Config.
type Option func(*Config)

// WithBaseURL sets the server root.
func WithBaseURL(u string) Option {
	return func(c *Config) {
		if u != "" {
			c.BaseURL = u
		}
	}
}

// WithRounds sets how many picks are made.
func WithRounds(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Rounds = n
		}
	}
}

// WithStrategy sets the pick strategy.
func WithStrategy(s Strategy) Option {
	return func(c *Config) {
		if s != "" {
			c.Prefer = s
		}
	}
}

// WithSeed seeds the random strategy.
func WithSeed(seed uint64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithTopN sets how many leaderboard rows are fetched for verification.
func WithTopN(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.TopN = n
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithReset controls whether the tally is cleared first.
func WithReset(reset bool) Option {
	return func(c *Config) { c.Reset = reset }
}

// WithVerbose logs every round.
func WithVerbose(v bool) Option {
	return func(c *Config) { c.Verbose = v }
}

// NewConfig returns a Config with defaults applied, then opts.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		BaseURL: DefaultBaseURL,
		Rounds:  DefaultRounds,
		Prefer:  PreferChampion,
		Seed:    1,
		TopN:    DefaultTopN,
		Timeout: DefaultTimeout,
		Reset:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
