package catalog

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

type searchResponse struct {
	Docs []searchDoc `json:"docs"`
}

type searchDoc struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	CoverI     *int     `json:"cover_i"`
	ISBN       []string `json:"isbn"`
	Key        string   `json:"key"`
	WorkKey    []string `json:"work_key"`
	EditionKey []string `json:"edition_key"`
}

type workResponse struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Description description `json:"description"`
	Subjects    []string    `json:"subjects"`
	Covers      []int       `json:"covers"`
}

type subjectResponse struct {
	Works     []subjectWork `json:"works"`
	WorkCount *int          `json:"work_count"`
}

type subjectWork struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	CoverID          *int `json:"cover_id"`
	FirstPublishYear *int `json:"first_publish_year"`
}

type authorSearchResponse struct {
	Docs []authorDoc `json:"docs"`
}

type authorDoc struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	TopWork   string `json:"top_work"`
	WorkCount *int   `json:"work_count"`
	BirthDate string `json:"birth_date"`
	DeathDate string `json:"death_date"`
}

type authorWorksResponse struct {
	Entries []authorWorkEntry `json:"entries"`
}

type authorWorkEntry struct {
	Key              string      `json:"key"`
	Title            string      `json:"title"`
	Covers           []int       `json:"covers"`
	FirstPublishDate publishDate `json:"first_publish_date"`
	Subjects         []string    `json:"subjects"`
}

// description is a work description, sent either as a bare string or as
// {"type": "/type/text", "value": "..."}.
type description string

func (d *description) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = description(s)
	case '{':
		var v struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*d = description(v.Value)
	}
	return nil
}

// publishDate keeps the leading four-digit year of first_publish_date,
// which arrives as a string ("1954-07-29") or a number.
type publishDate struct {
	Year *int
}

func (p *publishDate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	if len(s) < 4 {
		return nil
	}
	if y, err := strconv.Atoi(s[:4]); err == nil {
		p.Year = &y
	}
	return nil
}
