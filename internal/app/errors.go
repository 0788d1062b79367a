package service

import "errors"

// Sentinel error kinds returned by Service.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidShareToken = errors.New("invalid share token")
	ErrStaleGeneration   = errors.New("pair changed during enrichment")
)
