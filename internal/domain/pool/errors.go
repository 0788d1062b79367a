package pool

import "errors"

// Sentinel error kinds for the pool provider.
var (
	ErrEmptyPool = errors.New("pool has no items")
)
