package simulate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/bookpickr/internal/domain/types"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the BookPickr HTTP API. Every request carries a request
// id derived from the run id so server logs can be matched to a run.
type Client struct {
	baseURL string
	runID   string
	http    *http.Client
	seq     int
}

// NewClient creates a client for baseURL.
func NewClient(baseURL, runID string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		runID:   runID,
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.seq++
	req.Header.Set(requestIDHeader, c.runID+"-"+strconv.Itoa(c.seq))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e apiError
		_ = json.Unmarshal(raw, &e)
		if e.Code == "blocked" {
			return fmt.Errorf("%s %s: %w", method, path, ErrBlocked)
		}
		return fmt.Errorf("%w: %s %s: %d %s %s", ErrUnexpectedStatus, method, path, resp.StatusCode, e.Code, e.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// State fetches /state.
func (c *Client) State(ctx context.Context) (types.Session, error) {
	var st types.Session
	err := c.do(ctx, http.MethodGet, "/state", nil, &st)
	return st, err
}

// Pair fetches the enriched pair.
func (c *Client) Pair(ctx context.Context) (types.Pair, error) {
	var p types.Pair
	err := c.do(ctx, http.MethodGet, "/pair", nil, &p)
	return p, err
}

// Pick posts a pick for index.
func (c *Client) Pick(ctx context.Context, index int) (types.Session, error) {
	var st types.Session
	err := c.do(ctx, http.MethodPost, "/pick", map[string]int{"index": index}, &st)
	return st, err
}

// Reset clears the server tally.
func (c *Client) Reset(ctx context.Context) (types.Session, error) {
	var st types.Session
	err := c.do(ctx, http.MethodPost, "/reset", nil, &st)
	return st, err
}

// Leaderboard fetches up to limit rows.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var entries []types.Entry
	err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(limit), nil, &entries)
	return entries, err
}
