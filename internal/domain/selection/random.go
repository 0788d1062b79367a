package selection

import (
	"math/rand/v2"
	"slices"
	"time"
)

// Source produces uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

func newDefaultSource() Source {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1)) //nolint:gosec // picking order is not security sensitive
}

// randomIndex draws uniformly from [0, max) rejecting excluded values.
// With max < 2 it returns 0. Callers must leave at least one allowed value.
func randomIndex(src Source, max int, exclude ...int) int {
	if max < 2 {
		return 0
	}
	for {
		i := src.IntN(max)
		if !slices.Contains(exclude, i) {
			return i
		}
	}
}
