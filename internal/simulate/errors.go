package simulate

import "errors"

var (
	// ErrUnknownStrategy is returned for an unrecognized strategy name.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrBlocked is returned when the server has no pair to offer.
	ErrBlocked = errors.New("server pool is blocked")
	// ErrUnexpectedStatus wraps a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMismatch is returned when the server tally disagrees with the run.
	ErrMismatch = errors.New("tally mismatch")
)
