package repository

import (
	"context"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// SunTimesRepository caches sun-times answers keyed by coordinate and
// local calendar date, so repeated evaluations on the same day never
// re-query a provider.
type SunTimesRepository interface {
	// Save stores or replaces the entry for the entry's own key.
	Save(ctx context.Context, times entity.SunTimes) error

	// Find returns the cached entry for the coordinate and date.
	// Returns (nil, nil) on a cache miss.
	Find(ctx context.Context, coord entity.Coordinate, date string) (*entity.SunTimes, error)

	// PurgeElapsed deletes entries whose date has fully passed
	// relative to now. Returns the number of rows removed.
	PurgeElapsed(ctx context.Context, now time.Time) (int64, error)
}
