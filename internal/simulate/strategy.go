package simulate

import (
	"math/rand/v2"
	"strings"

	"github.com/okian/bookpickr/internal/domain/types"
)

// chooser returns the index that wins a pair.
type chooser func(types.Pair) int

func newChooser(s Strategy, seed uint64) chooser {
	switch s {
	case PreferChallenger:
		return func(p types.Pair) int { return p.Challenger.Index }
	case PreferRandom:
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible runs
		return func(p types.Pair) int {
			if r.IntN(2) == 0 {
				return p.Champion.Index
			}
			return p.Challenger.Index
		}
	case PreferTitle:
		// Alphabetically first title wins; ties keep the champion.
		return func(p types.Pair) int {
			if strings.ToLower(p.Challenger.Title) < strings.ToLower(p.Champion.Title) {
				return p.Challenger.Index
			}
			return p.Champion.Index
		}
	default:
		return func(p types.Pair) int { return p.Champion.Index }
	}
}
