// Package selection implements the head-to-head comparison engine: a
// champion faces a freshly drawn challenger, the picked side becomes the
// champion, and every pick is tallied for the leaderboard.
//
// Engine is not safe for concurrent use; callers serialize access.
package selection

import (
	"fmt"
	"sort"

	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/share"
)

const defaultTopN = 5

// State is the engine's coarse state.
type State int

const (
	// Blocked means the pool has fewer than two members.
	Blocked State = iota
	// Ready means a pair is on offer.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "blocked"
}

// Standing is one leaderboard row.
type Standing struct {
	Index int
	Wins  int
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	State      State
	Pool       model.Pool
	Champion   int
	Challenger int
	Scores     map[int]int
	Rounds     int
	Generation uint64
}

// Engine holds the comparison state for one pool.
type Engine struct {
	src         Source
	defaultTopN int

	pool       model.Pool
	state      State
	champion   int
	challenger int
	scores     map[int]int
	firstWin   []int // indices in the order they first scored
	rounds     int
	generation uint64
}

// New creates a blocked engine with no pool.
func New(opts ...Option) *Engine {
	e := &Engine{
		defaultTopN: defaultTopN,
		scores:      make(map[int]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = newDefaultSource()
	}
	return e
}

// Initialize replaces the pool and starts a fresh session on it. A pool
// with fewer than two members leaves the engine Blocked.
func (e *Engine) Initialize(pool model.Pool) error {
	e.pool = pool.Clone()
	return e.restart()
}

// Reset starts a fresh session on the current pool.
func (e *Engine) Reset() error {
	return e.restart()
}

func (e *Engine) restart() error {
	e.clearTally()
	e.generation++
	if len(e.pool) < 2 {
		e.state = Blocked
		e.champion, e.challenger = 0, 0
		return ErrBlocked
	}
	e.state = Ready
	e.champion = randomIndex(e.src, len(e.pool))
	e.challenger = randomIndex(e.src, len(e.pool), e.champion)
	return nil
}

func (e *Engine) clearTally() {
	e.scores = make(map[int]int)
	e.firstWin = e.firstWin[:0]
	e.rounds = 0
}

// Pick records a win for index, which must be the champion or the
// challenger. The winner becomes champion and a new challenger is drawn
// excluding the winner and the outgoing challenger.
func (e *Engine) Pick(index int) error {
	if e.state == Blocked {
		return ErrBlocked
	}
	if index != e.champion && index != e.challenger {
		return fmt.Errorf("%w: %d (pair is %d, %d)", ErrNotInPair, index, e.champion, e.challenger)
	}

	e.recordWin(index)
	prev := e.challenger
	e.champion = index
	if len(e.pool) == 2 {
		e.challenger = randomIndex(e.src, len(e.pool), e.champion)
	} else {
		e.challenger = randomIndex(e.src, len(e.pool), e.champion, prev)
	}
	e.rounds++
	e.generation++
	return nil
}

func (e *Engine) recordWin(index int) {
	if e.scores[index] == 0 {
		e.firstWin = append(e.firstWin, index)
	}
	e.scores[index]++
}

// Leaderboard returns up to topN standings ordered by wins, ties going to
// whichever index scored first. topN <= 0 uses the default size.
func (e *Engine) Leaderboard(topN int) []Standing {
	if topN <= 0 {
		topN = e.defaultTopN
	}
	out := make([]Standing, 0, len(e.firstWin))
	for _, idx := range e.firstWin {
		out = append(out, Standing{Index: idx, Wins: e.scores[idx]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// State returns Ready or Blocked.
func (e *Engine) State() State { return e.state }

// Pair returns the champion and challenger; ok is false when blocked.
func (e *Engine) Pair() (champion, challenger int, ok bool) {
	if e.state == Blocked {
		return 0, 0, false
	}
	return e.champion, e.challenger, true
}

// Pool returns a copy of the active pool.
func (e *Engine) Pool() model.Pool { return e.pool.Clone() }

// Rounds returns the number of picks since the last initialize or reset.
func (e *Engine) Rounds() int { return e.rounds }

// Generation increments on every pair change.
func (e *Engine) Generation() uint64 { return e.generation }

// Snapshot returns a copy of the full state.
func (e *Engine) Snapshot() Snapshot {
	scores := make(map[int]int, len(e.scores))
	for k, v := range e.scores {
		scores[k] = v
	}
	return Snapshot{
		State:      e.state,
		Pool:       e.pool.Clone(),
		Champion:   e.champion,
		Challenger: e.challenger,
		Scores:     scores,
		Rounds:     e.rounds,
		Generation: e.generation,
	}
}

// Restore applies a shared session to the current pool. The challenger is
// redrawn. Scores outside the pool, a champion outside the pool, or a win
// total that disagrees with rounds are rejected with ErrInvalidSnapshot and
// leave the engine untouched.
func (e *Engine) Restore(p share.Payload) error {
	if e.state == Blocked {
		return ErrBlocked
	}
	n := len(e.pool)
	if p.ChampionIndex < 0 || p.ChampionIndex >= n {
		return fmt.Errorf("%w: champion %d outside pool of %d", ErrInvalidSnapshot, p.ChampionIndex, n)
	}
	if p.Rounds < 0 {
		return fmt.Errorf("%w: negative rounds", ErrInvalidSnapshot)
	}
	total := 0
	for idx, wins := range p.Scores {
		if idx < 0 || idx >= n || wins < 0 {
			return fmt.Errorf("%w: score %d=%d", ErrInvalidSnapshot, idx, wins)
		}
		total += wins
	}
	if total != p.Rounds {
		return fmt.Errorf("%w: wins sum to %d, rounds is %d", ErrInvalidSnapshot, total, p.Rounds)
	}

	e.clearTally()
	// Map order is random; replay first-win order by index so ties are stable.
	indices := make([]int, 0, len(p.Scores))
	for idx, wins := range p.Scores {
		if wins > 0 {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	for _, idx := range indices {
		e.firstWin = append(e.firstWin, idx)
		e.scores[idx] = p.Scores[idx]
	}
	e.rounds = p.Rounds
	e.champion = p.ChampionIndex
	e.challenger = randomIndex(e.src, n, e.champion)
	e.generation++
	return nil
}

// Payload exports the shareable part of the state.
func (e *Engine) Payload() share.Payload {
	scores := make(map[int]int, len(e.scores))
	for k, v := range e.scores {
		scores[k] = v
	}
	return share.Payload{Rounds: e.rounds, ChampionIndex: e.champion, Scores: scores}
}
