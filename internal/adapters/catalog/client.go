// Package catalog talks to the Open Library API: best-match lookups, cover
// and synopsis resolution, subject and author pools, author suggestions and
// work details. Lookup failures resolve to empty results; only FetchWork
// returns errors.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/scoring"
	"github.com/okian/bookpickr/pkg/logger"
	"github.com/okian/bookpickr/pkg/metrics"
)

const (
	defaultBaseURL    = "https://openlibrary.org"
	defaultCoversURL  = "https://covers.openlibrary.org"
	defaultUserAgent  = "bookpickr/1.0"
	defaultTimeout    = 8 * time.Second
	defaultRatePerSec = 5
	defaultBurst      = 10
	defaultFailures   = 5
	defaultOpenFor    = 30 * time.Second
	breakerName       = "catalog"

	maxBodySize      = 8 << 20
	maxErrorBodySize = 1 << 10
)

// Client is an Open Library client with per-instance lookup caches.
type Client struct {
	baseURL   string
	coversURL string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	limiter   *rate.Limiter
	scorer    *scoring.Scorer

	breakerFailures uint32
	breakerOpenFor  time.Duration
	cb              *gobreaker.CircuitBreaker[[]byte]

	log logger.Logger

	searches    *cache[[]model.CatalogSearchResult]
	covers      *cache[string]
	synopses    *cache[lookup]
	suggestions *cache[[]model.AuthorHit]
}

// lookup is a cached value that may be known-absent.
type lookup struct {
	value string
	found bool
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:         defaultBaseURL,
		coversURL:       defaultCoversURL,
		userAgent:       defaultUserAgent,
		timeout:         defaultTimeout,
		limiter:         rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultBurst),
		scorer:          scoring.NewScorer(),
		breakerFailures: defaultFailures,
		breakerOpenFor:  defaultOpenFor,
		log:             logger.Named("catalog"),
		searches:        newCache[[]model.CatalogSearchResult]("search"),
		covers:          newCache[string]("cover"),
		synopses:        newCache[lookup]("synopsis"),
		suggestions:     newCache[[]model.AuthorHit]("author_suggestions"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.cb = c.newBreaker()
	metrics.UpdateCircuitBreakerState(breakerName, stateToFloat(gobreaker.StateClosed))
	return c
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	threshold := c.breakerFailures
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     c.breakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || clientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("from", from.String()), logger.String("to", to.String()))
			metrics.UpdateCircuitBreakerState(name, stateToFloat(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// CoversBaseURL returns the configured covers root.
func (c *Client) CoversBaseURL() string { return c.coversURL }

// Stats reports cache sizes and breaker state.
func (c *Client) Stats() map[string]interface{} {
	return map[string]interface{}{
		"search_cache_size":     c.searches.len(),
		"cover_cache_size":      c.covers.len(),
		"synopsis_cache_size":   c.synopses.len(),
		"suggestion_cache_size": c.suggestions.len(),
		"breaker_state":         c.cb.State().String(),
	}
}

// getJSON fetches base+path?query through the limiter and breaker and
// decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	start := time.Now()
	body, err := c.fetch(ctx, path, query)
	metrics.RecordCatalogLatency(endpoint, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordCatalogRequest(endpoint, outcome(err))
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.RecordCatalogRequest(endpoint, "decode_error")
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	metrics.RecordCatalogRequest(endpoint, "ok")
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	return c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", path, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body := readBodyForError(resp.Body)
			c.log.Debug(ctx, "catalog returned non-200",
				logger.String("path", path), logger.Int("status", resp.StatusCode), logger.String("body", string(body)))
			return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return b, nil
	})
}

// readBodyForError reads at most maxErrorBodySize bytes of an error body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.Code)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport_error"
	}
}

func trimSlash(u string) string {
	return strings.TrimRight(u, "/")
}
