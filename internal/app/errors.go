package service

import (
	"errors"
)

// Sentinel error kinds for this package. The HTTP layer translates these
// into status codes; everything else is reported as an internal error.
var (
	// ErrNotStarted is returned when an entry point runs before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrTooFewIDs is returned when a batch call names fewer ids than
	// the operation needs.
	ErrTooFewIDs = errors.New("at least two submission ids required")

	// ErrTooManyIDs is returned when a batch call exceeds the configured
	// id cap.
	ErrTooManyIDs = errors.New("too many submission ids")

	// ErrNotFound is returned when a single-submission call names an
	// unknown id.
	ErrNotFound = errors.New("submission not found")

	// ErrAccessDenied is returned when the caller's scope does not cover
	// a requested submission.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnknownMetric is returned for a metric key outside the
	// canonical set.
	ErrUnknownMetric = errors.New("unknown metric")
)
