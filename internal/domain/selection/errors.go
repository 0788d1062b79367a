package selection

import "errors"

// Sentinel error kinds for the selection engine.
var (
	ErrBlocked         = errors.New("pool too small to compare")
	ErrNotInPair       = errors.New("index is not part of the current pair")
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
)
