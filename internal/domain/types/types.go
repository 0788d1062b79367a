// Package types contains common types used across the application
package types

import "github.com/okian/bookpickr/internal/domain/model"

// Entry represents a leaderboard entry
type Entry struct {
	Rank   int    `json:"rank"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Wins   int    `json:"wins"`
}

// PairItem is one side of the current comparison with its enrichment.
type PairItem struct {
	Index    int    `json:"index"`
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	WorkKey  string `json:"workKey,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
}

// Pair is the enriched champion/challenger pair.
type Pair struct {
	Generation uint64   `json:"generation"`
	Champion   PairItem `json:"champion"`
	Challenger PairItem `json:"challenger"`
}

// Session summarizes the engine state. Champion and Challenger are nil
// while the pool is too small to compare.
type Session struct {
	State      string       `json:"state"`
	Rounds     int          `json:"rounds"`
	Champion   *int         `json:"championIndex,omitempty"`
	Challenger *int         `json:"challengerIndex,omitempty"`
	PoolSize   int          `json:"poolSize"`
	Label      *model.Label `json:"label,omitempty"`
	Generation uint64       `json:"generation"`
}

// ActivePool is the pool the engine is comparing over and where it came from.
type ActivePool struct {
	Items []model.CandidateItem `json:"items"`
	Label *model.Label          `json:"label,omitempty"`
}
