package entity

import "errors"

// Error taxonomy for mode and transition handling. Callers match with
// errors.Is; lower layers wrap these with context via fmt.Errorf %w.
var (
	// ErrInvalidConfig marks bad user input, rejected synchronously
	// with no state change.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrLocationUnavailable means no coordinate could be resolved
	// from override, cache, or geolocation.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrAstronomyService means the sun-times lookup failed or
	// returned malformed data.
	ErrAstronomyService = errors.New("astronomy service error")

	// ErrApply means the theme applier reported failure.
	ErrApply = errors.New("theme apply failed")

	// ErrPersistence means state could not be read or written.
	ErrPersistence = errors.New("state persistence error")
)
