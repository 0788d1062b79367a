package catalog

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the catalog client.
var (
	ErrInvalidWorkID = errors.New("invalid work id")
)

// StatusError is a non-200 answer from the catalog.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// clientError reports whether err is a 4xx answer. Those say nothing about
// upstream health and do not count against the breaker.
func clientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}
