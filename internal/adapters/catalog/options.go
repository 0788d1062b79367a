package catalog

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/bookpickr/internal/config"
	"github.com/okian/bookpickr/internal/domain/scoring"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://openlibrary.org.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = trimSlash(u)
		}
	}
}

// WithCoversBaseURL sets the covers root, e.g. https://covers.openlibrary.org.
func WithCoversBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.coversURL = trimSlash(u)
		}
	}
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the courtesy limiter. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, burst)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker sets the consecutive failure threshold and open duration.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = failures
		}
		if openFor > 0 {
			c.breakerOpenFor = openFor
		}
	}
}

// WithScorer sets the best-match scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(c *Client) {
		if s != nil {
			c.scorer = s
		}
	}
}

// FromConfig maps the catalog section of cfg onto client options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithBaseURL(cfg.CatalogBaseURL),
		WithCoversBaseURL(cfg.CoversBaseURL),
		WithUserAgent(cfg.CatalogUserAgent),
		WithTimeout(cfg.CatalogTimeout()),
		WithRateLimit(cfg.CatalogRatePerSec, cfg.CatalogBurst),
		WithBreaker(uint32(cfg.BreakerFailureThreshold), cfg.BreakerOpenDuration()), //nolint:gosec // validated min=1
		WithScorer(scoring.NewScorer(scoring.WithWeightsFromConfig(cfg.MatchWeights))),
	}
}
