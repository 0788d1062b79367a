package catalog

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/pkg/logger"
)

const defaultSuggestionLimit = 8

// SearchAuthorSuggestions returns author autocomplete hits for query. An
// empty query returns nil without calling the catalog. Results are cached
// per lowercased query and limit; failures are not cached.
func (c *Client) SearchAuthorSuggestions(ctx context.Context, query string, limit int) []model.AuthorHit {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	key := strings.ToLower(q) + "|" + strconv.Itoa(limit)

	hits := c.suggestions.load(key, func() ([]model.AuthorHit, bool) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("limit", strconv.Itoa(limit))

		var resp authorSearchResponse
		if err := c.getJSON(ctx, "author_suggest", "/search/authors.json", params, &resp); err != nil {
			c.log.Debug(ctx, "author suggestions failed", logger.String("query", q), logger.Error(err))
			return nil, false
		}
		out := make([]model.AuthorHit, 0, len(resp.Docs))
		for _, d := range resp.Docs {
			out = append(out, model.AuthorHit{
				Key:       d.Key,
				Name:      d.Name,
				TopWork:   d.TopWork,
				WorkCount: d.WorkCount,
				BirthDate: d.BirthDate,
				DeathDate: d.DeathDate,
			})
		}
		return out, true
	})
	out := make([]model.AuthorHit, len(hits))
	copy(out, hits)
	return out
}
