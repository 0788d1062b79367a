package catalog

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/bookpickr/internal/domain/dedupe"
	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/pkg/logger"
	"github.com/okian/bookpickr/pkg/metrics"
)

const (
	defaultPoolLimit = 50
	authorWorksLimit = "200"
)

// Works whose subjects match are left out of author pools.
var excludedSubjects = regexp.MustCompile(`(?i)poetry|play|drama|letters|essays`) //nolint:gochecknoglobals // compiled once

// SubjectSlug normalizes a subject name: trimmed, lowercased, spaces
// replaced by underscores.
func SubjectSlug(subject string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(subject)), " ", "_")
}

// SearchSubjectPool returns up to limit deduplicated works filed under
// subject, and the catalog's total for the subject. Failures yield (nil, 0).
func (c *Client) SearchSubjectPool(ctx context.Context, subject string, limit, offset int) ([]model.CandidateItem, int) {
	slug := SubjectSlug(subject)
	if slug == "" {
		return nil, 0
	}
	if limit <= 0 {
		limit = defaultPoolLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp subjectResponse
	if err := c.getJSON(ctx, "subject", "/subjects/"+url.PathEscape(slug)+".json", q, &resp); err != nil {
		c.log.Warn(ctx, "subject lookup failed", logger.String("subject", slug), logger.Error(err))
		return nil, 0
	}

	raw := make([]model.CandidateItem, 0, len(resp.Works))
	for _, w := range resp.Works {
		it := model.CandidateItem{
			Title:            w.Title,
			Author:           model.UnknownAuthor,
			CoverID:          w.CoverID,
			FirstPublishYear: w.FirstPublishYear,
		}
		if len(w.Authors) > 0 && strings.TrimSpace(w.Authors[0].Name) != "" {
			it.Author = w.Authors[0].Name
		}
		if w.Key != "" {
			k := w.Key
			it.WorkKey = &k
		}
		raw = append(raw, it)
	}

	items, dropped := dedupe.CandidateList(raw, limit)
	metrics.RecordCatalogDuplicatesDropped(dropped)

	total := len(resp.Works)
	if resp.WorkCount != nil {
		total = *resp.WorkCount
	}
	return items, total
}

// SearchAuthorPool resolves name to the first matching author and returns
// up to limit of their works, skipping poetry, plays, drama, letters and
// essays. Failures yield nil.
func (c *Client) SearchAuthorPool(ctx context.Context, name string, limit int) []model.CandidateItem {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultPoolLimit
	}

	q := url.Values{}
	q.Set("q", name)
	var found authorSearchResponse
	if err := c.getJSON(ctx, "author_search", "/search/authors.json", q, &found); err != nil {
		c.log.Warn(ctx, "author lookup failed", logger.String("author", name), logger.Error(err))
		return nil
	}
	if len(found.Docs) == 0 || authorID(found.Docs[0].Key) == "" {
		return nil
	}
	author := found.Docs[0]
	display := strings.TrimSpace(author.Name)
	if display == "" {
		display = name
	}

	wq := url.Values{}
	wq.Set("limit", authorWorksLimit)
	var works authorWorksResponse
	path := "/authors/" + url.PathEscape(authorID(author.Key)) + "/works.json"
	if err := c.getJSON(ctx, "author_works", path, wq, &works); err != nil {
		c.log.Warn(ctx, "author works lookup failed", logger.String("author", display), logger.Error(err))
		return nil
	}

	raw := make([]model.CandidateItem, 0, len(works.Entries))
	for _, e := range works.Entries {
		if excluded(e.Subjects) {
			continue
		}
		it := model.CandidateItem{
			Title:            e.Title,
			Author:           display,
			FirstPublishYear: e.FirstPublishDate.Year,
		}
		if e.Key != "" {
			k := e.Key
			it.WorkKey = &k
		}
		for _, cover := range e.Covers {
			if cover > 0 {
				id := cover
				it.CoverID = &id
				break
			}
		}
		raw = append(raw, it)
	}

	items, dropped := dedupe.CandidateList(raw, limit)
	metrics.RecordCatalogDuplicatesDropped(dropped)
	return items
}

func excluded(subjects []string) bool {
	for _, s := range subjects {
		if excludedSubjects.MatchString(s) {
			return true
		}
	}
	return false
}

// authorID strips a leading /authors/ from an author key.
func authorID(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "/authors/")
}
