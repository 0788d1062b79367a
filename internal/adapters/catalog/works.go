package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/okian/bookpickr/internal/domain/model"
)

const maxWorkSubjects = 6

var workIDPattern = regexp.MustCompile(`^OL\d+W$`) //nolint:gochecknoglobals // compiled once

// NormalizeWorkID accepts "OL45804W" or "/works/OL45804W" and returns the
// bare id.
func NormalizeWorkID(id string) (string, error) {
	id = strings.TrimPrefix(strings.TrimSpace(id), "/works/")
	if !workIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWorkID, id)
	}
	return id, nil
}

// FetchWork returns the detail record for one work. Unlike the lookups it
// reports failures: a *StatusError for non-200 answers, or the transport
// error.
func (c *Client) FetchWork(ctx context.Context, workID string) (model.WorkDetail, error) {
	id, err := NormalizeWorkID(workID)
	if err != nil {
		return model.WorkDetail{}, err
	}

	var w workResponse
	if err := c.getJSON(ctx, "work", "/works/"+id+".json", nil, &w); err != nil {
		return model.WorkDetail{}, err
	}

	d := model.WorkDetail{
		Key:         w.Key,
		Title:       w.Title,
		Description: strings.TrimSpace(string(w.Description)),
		Covers:      w.Covers,
	}
	if d.Key == "" {
		d.Key = "/works/" + id
	}
	if len(w.Subjects) > maxWorkSubjects {
		d.Subjects = w.Subjects[:maxWorkSubjects]
	} else {
		d.Subjects = w.Subjects
	}
	for _, cover := range w.Covers {
		if cover > 0 {
			d.CoverURL = fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, cover)
			break
		}
	}
	return d, nil
}
