// Package scoring ranks catalog lookup hits against the title/author the
// caller asked for.
package scoring

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/okian/bookpickr/internal/domain/model"
)

// Default match weights.
const (
	defaultTitleWeight  = 2
	defaultAuthorWeight = 1
	defaultISBNWeight   = 1
	defaultCoverWeight  = 1
)

// Weights holds the points awarded per matching signal.
type Weights struct {
	Title  int
	Author int
	ISBN   int
	Cover  int
}

// DefaultWeights returns the stock weights (2/1/1/1).
func DefaultWeights() Weights {
	return Weights{
		Title:  defaultTitleWeight,
		Author: defaultAuthorWeight,
		ISBN:   defaultISBNWeight,
		Cover:  defaultCoverWeight,
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces all weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithWeightsFromConfig overrides weights by name ("title", "author",
// "isbn", "cover"). Unknown names and negative values are ignored.
func WithWeightsFromConfig(weights map[string]int) Option {
	return func(s *Scorer) {
		for name, w := range weights {
			if w < 0 {
				continue
			}
			switch name {
			case "title":
				s.weights.Title = w
			case "author":
				s.weights.Author = w
			case "isbn":
				s.weights.ISBN = w
			case "cover":
				s.weights.Cover = w
			}
		}
	}
}

// Scorer computes best-match scores.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with default weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the active weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score rates one hit against the wanted title and author.
func (s *Scorer) Score(r model.CatalogSearchResult, title, author string) int {
	score := 0
	nt, na := Normalize(title), Normalize(author)

	if nt != "" && Normalize(r.Title) == nt {
		score += s.weights.Title
	}
	// An empty side is contained in the other, so it still overlaps.
	if ra := Normalize(r.PrimaryAuthor); strings.Contains(ra, na) || strings.Contains(na, ra) {
		score += s.weights.Author
	}
	if len(r.ISBNs) > 0 {
		score += s.weights.ISBN
	}
	if r.CoverImageID != nil {
		score += s.weights.Cover
	}
	return score
}

// Rank sorts results by descending score in place; equal scores keep
// their upstream order.
func (s *Scorer) Rank(results []model.CatalogSearchResult, title, author string) []model.CatalogSearchResult {
	scores := make([]int, len(results))
	for i, r := range results {
		scores[i] = s.Score(r, title, author)
	}
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]model.CatalogSearchResult, len(results))
	for i, j := range idx {
		out[i] = results[j]
	}
	copy(results, out)
	return results
}

// Normalize folds s for comparison: NFC, lowercase, every run of
// characters that are neither letters nor numbers becomes one space, and
// the result is trimmed.
func Normalize(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	gap := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}
