package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/pkg/logger"
)

const (
	searchLimit      = "10"
	searchFields     = "title,author_name,cover_i,isbn,key,work_key,edition_key"
	maxCoverISBNs    = 3
	synopsisMaxRunes = 280
	synopsisCutRunes = 277
	ellipsis         = "…"
)

func cacheKey(title, author string) string {
	return title + "|" + author
}

// Search runs one title/author lookup and returns hits ranked best first.
// Failures yield an empty result and are not cached.
func (c *Client) Search(ctx context.Context, title, author string) []model.CatalogSearchResult {
	res := c.searches.load(cacheKey(title, author), func() ([]model.CatalogSearchResult, bool) {
		hits, err := c.searchDocs(ctx, title, author)
		if err != nil {
			c.log.Debug(ctx, "search failed",
				logger.String("title", title), logger.String("author", author), logger.Error(err))
			return nil, false
		}
		return c.scorer.Rank(hits, title, author), true
	})
	out := make([]model.CatalogSearchResult, len(res))
	copy(out, res)
	return out
}

func (c *Client) searchDocs(ctx context.Context, title, author string) ([]model.CatalogSearchResult, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("author", author)
	q.Set("limit", searchLimit)
	q.Set("language", "eng")
	q.Set("lang", "en")
	q.Set("fields", searchFields)

	var resp searchResponse
	if err := c.getJSON(ctx, "search", "/search.json", q, &resp); err != nil {
		return nil, err
	}

	out := make([]model.CatalogSearchResult, 0, len(resp.Docs))
	for _, d := range resp.Docs {
		r := model.CatalogSearchResult{
			Title:             d.Title,
			CoverImageID:      d.CoverI,
			ISBNs:             d.ISBN,
			CatalogKey:        d.Key,
			WorkKeyCandidates: d.WorkKey,
		}
		if len(d.AuthorName) > 0 {
			r.PrimaryAuthor = d.AuthorName[0]
		}
		out = append(out, r)
	}
	return out, nil
}

// ResolveCover returns a cover image URL for the best match. Only found
// covers are cached, so a miss is retried on the next call.
func (c *Client) ResolveCover(ctx context.Context, title, author string) (string, bool) {
	u := c.covers.load(cacheKey(title, author), func() (string, bool) {
		hits := c.Search(ctx, title, author)
		if len(hits) == 0 {
			return "", false
		}
		cands := c.coverCandidates(hits[0])
		if len(cands) == 0 {
			return "", false
		}
		return cands[0], true
	})
	return u, u != ""
}

// coverCandidates lists cover URLs for r in preference order: the cover id
// in large then medium, then up to three ISBNs likewise.
func (c *Client) coverCandidates(r model.CatalogSearchResult) []string {
	var out []string
	if r.CoverImageID != nil {
		out = append(out,
			fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, *r.CoverImageID),
			fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, *r.CoverImageID))
	}
	isbns := r.ISBNs
	if len(isbns) > maxCoverISBNs {
		isbns = isbns[:maxCoverISBNs]
	}
	for _, isbn := range isbns {
		out = append(out,
			fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, url.PathEscape(isbn)),
			fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, url.PathEscape(isbn)))
	}
	return out
}

// ResolveSynopsis returns a short description of the best match's work.
// Absence is cached too, except when ctx was cancelled mid-lookup.
func (c *Client) ResolveSynopsis(ctx context.Context, title, author string) (string, bool) {
	l := c.synopses.load(cacheKey(title, author), func() (lookup, bool) {
		text, err := c.synopsis(ctx, title, author)
		if err != nil {
			c.log.Debug(ctx, "synopsis lookup failed",
				logger.String("title", title), logger.String("author", author), logger.Error(err))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return lookup{}, false
			}
			return lookup{}, true
		}
		return lookup{value: text, found: text != ""}, true
	})
	return l.value, l.found
}

func (c *Client) synopsis(ctx context.Context, title, author string) (string, error) {
	hits := c.Search(ctx, title, author)
	if len(hits) == 0 {
		return "", ctx.Err()
	}
	key := workKeyOf(hits[0])
	if key == "" {
		return "", nil
	}
	var w workResponse
	if err := c.getJSON(ctx, "work", key+".json", nil, &w); err != nil {
		return "", err
	}
	return truncateSynopsis(strings.TrimSpace(string(w.Description))), nil
}

// workKeyOf picks the first work key candidate, else the catalog key when
// it names a work.
func workKeyOf(r model.CatalogSearchResult) string {
	for _, k := range r.WorkKeyCandidates {
		if k = strings.TrimSpace(k); k != "" {
			if !strings.HasPrefix(k, "/works/") {
				k = "/works/" + k
			}
			return k
		}
	}
	if strings.HasPrefix(r.CatalogKey, "/works/") {
		return r.CatalogKey
	}
	return ""
}

// truncateSynopsis cuts text longer than 280 runes to 277 runes plus an
// ellipsis.
func truncateSynopsis(text string) string {
	if utf8.RuneCountInString(text) <= synopsisMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:synopsisCutRunes]) + ellipsis
}
