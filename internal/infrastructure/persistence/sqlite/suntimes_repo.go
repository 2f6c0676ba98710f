package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/logging"
)

type sunTimesRepo struct {
	db *sql.DB
}

// NewSunTimesRepository creates the sqlite-backed sun-times cache.
func NewSunTimesRepository(db *sql.DB) repository.SunTimesRepository {
	return &sunTimesRepo{db: db}
}

// round4 stabilizes coordinate keys at 4 decimals (about 11 m), so a
// re-resolved coordinate that wiggles in the far digits still hits the
// cache.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

const upsertSunTimesSQL = `
INSERT INTO sun_times (latitude, longitude, date, sunrise, sunset, source)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (latitude, longitude, date) DO UPDATE SET
	sunrise = excluded.sunrise,
	sunset  = excluded.sunset,
	source  = excluded.source`

// Save stores or replaces the entry for the entry's own key.
func (r *sunTimesRepo) Save(ctx context.Context, times entity.SunTimes) error {
	if times.Date == "" {
		return fmt.Errorf("%w: sun times entry has no date", entity.ErrPersistence)
	}
	if !times.Valid() {
		return fmt.Errorf("%w: refusing to cache invalid sun times for %s", entity.ErrPersistence, times.Date)
	}

	_, err := r.db.ExecContext(ctx, upsertSunTimesSQL,
		round4(times.Coordinate.Latitude),
		round4(times.Coordinate.Longitude),
		times.Date,
		times.Sunrise.UTC(),
		times.Sunset.UTC(),
		times.Source,
	)
	if err != nil {
		return fmt.Errorf("%w: save sun times: %w", entity.ErrPersistence, err)
	}
	return nil
}

// Find returns the cached entry for the coordinate and date, (nil, nil)
// on a miss.
func (r *sunTimesRepo) Find(ctx context.Context, coord entity.Coordinate, date string) (*entity.SunTimes, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sunrise, sunset, source FROM sun_times WHERE latitude = ? AND longitude = ? AND date = ?`,
		round4(coord.Latitude), round4(coord.Longitude), date,
	)

	var sunriseAt, sunsetAt time.Time
	var source string
	err := row.Scan(&sunriseAt, &sunsetAt, &source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find sun times: %w", entity.ErrPersistence, err)
	}

	return &entity.SunTimes{
		Coordinate: coord,
		Date:       date,
		Sunrise:    sunriseAt.UTC(),
		Sunset:     sunsetAt.UTC(),
		Source:     source,
	}, nil
}

// PurgeElapsed deletes entries whose date has fully passed in now's
// location.
func (r *sunTimesRepo) PurgeElapsed(ctx context.Context, now time.Time) (int64, error) {
	today := now.Format(entity.SunDateFormat)

	res, err := r.db.ExecContext(ctx, `DELETE FROM sun_times WHERE date < ?`, today)
	if err != nil {
		return 0, fmt.Errorf("%w: purge sun times: %w", entity.ErrPersistence, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: purge sun times: %w", entity.ErrPersistence, err)
	}
	if removed > 0 {
		logging.FromContext(ctx).Debug().Int64("rows", removed).Msg("purged elapsed sun times")
	}
	return removed, nil
}
