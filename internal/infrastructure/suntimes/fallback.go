package suntimes

import (
	"context"

	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/logging"
)

// Fallback tries a primary provider and falls back to a secondary when
// the primary fails for any reason other than context cancellation.
type Fallback struct {
	primary   port.AstronomyProvider
	secondary port.AstronomyProvider
}

// NewFallback combines two providers.
func NewFallback(primary, secondary port.AstronomyProvider) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Name reports the primary provider's name.
func (f *Fallback) Name() string { return f.primary.Name() }

// SunTimes delegates to the primary, then the secondary.
func (f *Fallback) SunTimes(ctx context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error) {
	st, err := f.primary.SunTimes(ctx, coord, date)
	if err == nil {
		return st, nil
	}
	if ctx.Err() != nil {
		return entity.SunTimes{}, err
	}

	logging.FromContext(ctx).Warn().
		Err(err).
		Str("provider", f.primary.Name()).
		Str("fallback", f.secondary.Name()).
		Msg("astronomy provider failed; using fallback")
	return f.secondary.SunTimes(ctx, coord, date)
}
