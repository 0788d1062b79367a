package dedupe

import (
	"context"
	"strings"

	"github.com/okian/bookpickr/internal/domain/model"
)

// Key is the identity of a catalog record: trimmed, lowercased title and
// author joined by a separator that cannot occur in either.
func Key(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
}

// CandidateList drops records with empty titles and later duplicates of the
// same (title, author), fills empty authors with model.UnknownAuthor, keeps
// at most limit items (limit <= 0 keeps all) and assigns fresh IDs 1..n.
// It also returns how many records were dropped as duplicates.
func CandidateList(items []model.CandidateItem, limit int) ([]model.CandidateItem, int) {
	seen := NewInMemoryDeduper()
	out := make([]model.CandidateItem, 0, len(items))
	dropped := 0
	for _, it := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		it.Author = strings.TrimSpace(it.Author)
		if it.Author == "" {
			it.Author = model.UnknownAuthor
		}
		if seen.SeenAndRecord(context.Background(), Key(it.Title, it.Author)) {
			dropped++
			continue
		}
		it.ID = len(out) + 1
		out = append(out, it)
	}
	return out, dropped
}
