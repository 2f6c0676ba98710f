package port

import (
	"context"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// AstronomyProvider answers sunrise/sunset instants for a coordinate
// on a local calendar date (entity.SunDateFormat). Instants come back
// in UTC; callers convert to local time for comparison.
type AstronomyProvider interface {
	// Name returns a short identifier for logs and cache stamping.
	Name() string

	// SunTimes returns the sun times for the coordinate and date.
	// Failures and malformed answers wrap entity.ErrAstronomyService.
	SunTimes(ctx context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error)
}
