// Package model contains domain models passed between layers.
package model

// UnknownAuthor is substituted wherever a record carries no author.
const UnknownAuthor = "Unknown"

// CandidateItem is one entry of a comparison pool. ID is pool-local and
// reassigned (1..n) whenever a pool is loaded.
type CandidateItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Author           string  `json:"author"`
	WorkKey          *string `json:"workKey,omitempty"`
	CoverID          *int    `json:"coverId,omitempty"`
	FirstPublishYear *int    `json:"firstPublishYear,omitempty"`
}

// Pool is the ordered candidate set the engine compares over.
type Pool []CandidateItem

// Clone returns a copy of p that shares no backing array with it.
func (p Pool) Clone() Pool {
	if p == nil {
		return nil
	}
	out := make(Pool, len(p))
	copy(out, p)
	return out
}

// LabelKind says how a pool was built.
type LabelKind string

// Known label kinds.
const (
	LabelSubject LabelKind = "subject"
	LabelAuthor  LabelKind = "author"
)

// Label describes the origin of the active pool, e.g. {subject, fantasy}.
type Label struct {
	Kind  LabelKind `json:"type" validate:"required,oneof=subject author"`
	Value string    `json:"value" validate:"required"`
}

// Valid reports whether the label kind is one of the known kinds.
func (l Label) Valid() bool {
	return l.Kind == LabelSubject || l.Kind == LabelAuthor
}

// CatalogSearchResult is a single ranked hit from a title/author lookup.
type CatalogSearchResult struct {
	Title             string
	PrimaryAuthor     string
	CoverImageID      *int
	ISBNs             []string
	CatalogKey        string
	WorkKeyCandidates []string
}

// AuthorHit is an author autocomplete suggestion.
type AuthorHit struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	TopWork   string `json:"topWork,omitempty"`
	WorkCount *int   `json:"workCount,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	DeathDate string `json:"deathDate,omitempty"`
}

// WorkDetail is the descriptive metadata for one catalog work.
type WorkDetail struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Covers      []int    `json:"covers,omitempty"`
	CoverURL    string   `json:"coverUrl,omitempty"`
}
