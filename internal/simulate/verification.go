package simulate

import (
	"fmt"
	"sort"
)

// Verify checks the report against the server's answers. The local win
// total must equal the rounds played and the server's round counter must
// have advanced by the same amount. When the run started from a reset
// tally, each leaderboard row must also carry exactly the wins sent for
// that index, in descending order.
func Verify(r *Report, fromReset bool) error {
	total := 0
	for _, w := range r.Wins {
		total += w
	}
	if total != r.Rounds {
		return fmt.Errorf("%w: local wins sum to %d over %d rounds", ErrMismatch, total, r.Rounds)
	}
	if got := r.EndRounds - r.StartRounds; got != r.Rounds {
		return fmt.Errorf("%w: server advanced %d rounds, sent %d", ErrMismatch, got, r.Rounds)
	}

	for i := 1; i < len(r.Leaderboard); i++ {
		if r.Leaderboard[i].Wins > r.Leaderboard[i-1].Wins {
			return fmt.Errorf("%w: leaderboard not ordered at rank %d", ErrMismatch, r.Leaderboard[i].Rank)
		}
	}
	if !fromReset || r.Rounds == 0 {
		return nil
	}

	for _, e := range r.Leaderboard {
		if want := r.Wins[e.Index]; e.Wins != want {
			return fmt.Errorf("%w: index %d (%s) has %d wins on the server, sent %d",
				ErrMismatch, e.Index, e.Title, e.Wins, want)
		}
	}
	if len(r.Leaderboard) == 0 {
		return fmt.Errorf("%w: empty leaderboard after %d rounds", ErrMismatch, r.Rounds)
	}
	if top := TopWins(r.Wins, 1); len(top) > 0 && r.Leaderboard[0].Wins != top[0].Wins {
		return fmt.Errorf("%w: top server entry has %d wins, local best is %d",
			ErrMismatch, r.Leaderboard[0].Wins, top[0].Wins)
	}
	return nil
}

// Standing is one locally tallied row.
type Standing struct {
	Index int
	Wins  int
}

// TopWins returns the n best local standings, ties by lower index.
func TopWins(wins map[int]int, n int) []Standing {
	out := make([]Standing, 0, len(wins))
	for idx, w := range wins {
		if w > 0 {
			out = append(out, Standing{Index: idx, Wins: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Index < out[j].Index
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
