package suntimes

import (
	"context"
	"fmt"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// LocalProvider computes sun times astronomically without network
// access. Accuracy is within a couple of minutes of the API, which is
// plenty for theme switching.
type LocalProvider struct{}

// NewLocalProvider creates the offline provider.
func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

// Name identifies the provider in logs and cache rows.
func (*LocalProvider) Name() string { return "local" }

// SunTimes computes the sunrise and sunset instants for the date.
func (p *LocalProvider) SunTimes(_ context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error) {
	day, err := time.Parse(entity.SunDateFormat, date)
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: bad date %q", entity.ErrAstronomyService, date)
	}

	rise, set := sunrise.SunriseSunset(coord.Latitude, coord.Longitude, day.Year(), day.Month(), day.Day())
	st := entity.SunTimes{
		Coordinate: coord,
		Date:       date,
		Sunrise:    rise.UTC(),
		Sunset:     set.UTC(),
		Source:     p.Name(),
	}
	if !st.Valid() {
		// Zero instants mean the sun never rises or never sets there
		// on that date.
		return entity.SunTimes{}, fmt.Errorf("%w: no sunrise/sunset at %s on %s (polar day or night)", entity.ErrAstronomyService, coord, date)
	}
	return st, nil
}
