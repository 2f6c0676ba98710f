package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/logging"
)

// Location computes sunrise/sunset transitions for a coordinate. Sun
// times are looked up in the cache first; provider answers are cached
// for the remainder of their date so repeated evaluations on the same
// day stay off the network.
type Location struct {
	astronomy port.AstronomyProvider
	cache     repository.SunTimesRepository
}

// NewLocation builds a location policy. The cache may be nil, which
// disables caching (used by tests).
func NewLocation(astronomy port.AstronomyProvider, cache repository.SunTimesRepository) *Location {
	return &Location{astronomy: astronomy, cache: cache}
}

// NextTransition returns the earliest sun event strictly after now
// for the coordinate: sunrise flips to light, sunset flips to dark.
// When now is already past today's last event it evaluates tomorrow.
// The sun times the decision was based on are returned for state
// stamping. Failures wrap entity.ErrAstronomyService.
func (p *Location) NextTransition(ctx context.Context, now time.Time, coord entity.Coordinate) (entity.PendingTransition, entity.SunTimes, error) {
	today := now.Format(entity.SunDateFormat)

	times, err := p.sunTimes(ctx, coord, today)
	if err != nil {
		return entity.PendingTransition{}, entity.SunTimes{}, err
	}
	if t, ok := nextSunEvent(now, times); ok {
		return t, times, nil
	}

	// Both of today's events have passed; tomorrow's sunrise is next.
	tomorrow := now.AddDate(0, 0, 1).Format(entity.SunDateFormat)
	times, err = p.sunTimes(ctx, coord, tomorrow)
	if err != nil {
		return entity.PendingTransition{}, entity.SunTimes{}, err
	}
	if t, ok := nextSunEvent(now, times); ok {
		return t, times, nil
	}
	return entity.PendingTransition{}, entity.SunTimes{}, fmt.Errorf(
		"%w: no sun event after %s for %s", entity.ErrAstronomyService, now.Format(time.RFC3339), coord)
}

// sunTimes answers from cache when possible, otherwise queries the
// provider and caches the result.
func (p *Location) sunTimes(ctx context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error) {
	log := logging.FromContext(ctx)

	if p.cache != nil {
		cached, err := p.cache.Find(ctx, coord, date)
		if err != nil {
			log.Warn().Err(err).Str("date", date).Msg("sun times cache read failed")
		} else if cached != nil {
			return *cached, nil
		}
	}

	times, err := p.astronomy.SunTimes(ctx, coord, date)
	if err != nil {
		return entity.SunTimes{}, err
	}
	if !times.Valid() {
		return entity.SunTimes{}, fmt.Errorf("%w: provider %s returned unusable times for %s",
			entity.ErrAstronomyService, p.astronomy.Name(), date)
	}

	if p.cache != nil {
		if err := p.cache.Save(ctx, times); err != nil {
			log.Warn().Err(err).Str("date", date).Msg("sun times cache write failed")
		}
	}
	return times, nil
}

// nextSunEvent picks the earliest of sunrise/sunset strictly after
// now, comparing in now's location.
func nextSunEvent(now time.Time, times entity.SunTimes) (entity.PendingTransition, bool) {
	sunrise := times.Sunrise.In(now.Location())
	sunset := times.Sunset.In(now.Location())

	toLight := entity.PendingTransition{Target: entity.VariantLight, FiresAt: sunrise}
	toDark := entity.PendingTransition{Target: entity.VariantDark, FiresAt: sunset}

	switch {
	case sunrise.After(now) && sunset.After(now):
		if sunrise.Before(sunset) {
			return toLight, true
		}
		return toDark, true
	case sunrise.After(now):
		return toLight, true
	case sunset.After(now):
		return toDark, true
	default:
		return entity.PendingTransition{}, false
	}
}
