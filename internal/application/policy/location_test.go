package policy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pygillier/nightswitch/internal/application/policy"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522}

// fakeAstronomy implements port.AstronomyProvider for testing.
type fakeAstronomy struct {
	times map[string]entity.SunTimes
	err   error
	calls int
}

func (f *fakeAstronomy) Name() string { return "fake" }

func (f *fakeAstronomy) SunTimes(_ context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error) {
	f.calls++
	if f.err != nil {
		return entity.SunTimes{}, f.err
	}
	times, ok := f.times[date]
	if !ok {
		return entity.SunTimes{}, fmt.Errorf("%w: no fixture for %s", entity.ErrAstronomyService, date)
	}
	times.Coordinate = coord
	times.Date = date
	return times, nil
}

// memorySunCache implements repository.SunTimesRepository in memory.
type memorySunCache struct {
	entries map[string]entity.SunTimes
	saves   int
}

func newMemorySunCache() *memorySunCache {
	return &memorySunCache{entries: make(map[string]entity.SunTimes)}
}

func (m *memorySunCache) key(coord entity.Coordinate, date string) string {
	return fmt.Sprintf("%.4f|%.4f|%s", coord.Latitude, coord.Longitude, date)
}

func (m *memorySunCache) Save(_ context.Context, times entity.SunTimes) error {
	m.saves++
	m.entries[m.key(times.Coordinate, times.Date)] = times
	return nil
}

func (m *memorySunCache) Find(_ context.Context, coord entity.Coordinate, date string) (*entity.SunTimes, error) {
	times, ok := m.entries[m.key(coord, date)]
	if !ok {
		return nil, nil
	}
	return &times, nil
}

func (m *memorySunCache) PurgeElapsed(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, v := range m.entries {
		if v.ElapsedBy(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// June 10th 2025 in Paris: sunrise 03:49 UTC, sunset 19:52 UTC.
func parisFixtures() map[string]entity.SunTimes {
	return map[string]entity.SunTimes{
		"2025-06-10": {
			Sunrise: time.Date(2025, 6, 10, 3, 49, 0, 0, time.UTC),
			Sunset:  time.Date(2025, 6, 10, 19, 52, 0, 0, time.UTC),
		},
		"2025-06-11": {
			Sunrise: time.Date(2025, 6, 11, 3, 49, 0, 0, time.UTC),
			Sunset:  time.Date(2025, 6, 11, 19, 53, 0, 0, time.UTC),
		},
	}
}

func TestLocationNextTransition(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)

	tests := []struct {
		name       string
		now        time.Time
		wantTarget entity.Variant
		wantAt     time.Time
	}{
		{
			name:       "before sunrise flips to light at sunrise",
			now:        time.Date(2025, 6, 10, 4, 0, 0, 0, cest),
			wantTarget: entity.VariantLight,
			wantAt:     time.Date(2025, 6, 10, 3, 49, 0, 0, time.UTC),
		},
		{
			name:       "daytime flips to dark at sunset",
			now:        time.Date(2025, 6, 10, 14, 0, 0, 0, cest),
			wantTarget: entity.VariantDark,
			wantAt:     time.Date(2025, 6, 10, 19, 52, 0, 0, time.UTC),
		},
		{
			name:       "after sunset rolls to tomorrow sunrise",
			now:        time.Date(2025, 6, 10, 23, 0, 0, 0, cest),
			wantTarget: entity.VariantLight,
			wantAt:     time.Date(2025, 6, 11, 3, 49, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			astro := &fakeAstronomy{times: parisFixtures()}
			p := policy.NewLocation(astro, newMemorySunCache())

			got, times, err := p.NextTransition(context.Background(), tt.now, paris)

			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, got.Target)
			assert.True(t, got.FiresAt.Equal(tt.wantAt), "got %s want %s", got.FiresAt, tt.wantAt)
			assert.True(t, got.FiresAt.After(tt.now))
			assert.True(t, times.Valid())
		})
	}
}

func TestLocationCachesPerDate(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, cest)
	astro := &fakeAstronomy{times: parisFixtures()}
	cache := newMemorySunCache()
	p := policy.NewLocation(astro, cache)

	_, _, err := p.NextTransition(context.Background(), now, paris)
	require.NoError(t, err)
	require.Equal(t, 1, astro.calls)
	require.Equal(t, 1, cache.saves)

	// Same date again: answered from cache, no provider hit.
	_, _, err = p.NextTransition(context.Background(), now.Add(2*time.Hour), paris)
	require.NoError(t, err)
	assert.Equal(t, 1, astro.calls)

	// Past sunset: today's entry is reused, tomorrow's is fetched.
	_, _, err = p.NextTransition(context.Background(), time.Date(2025, 6, 10, 23, 30, 0, 0, cest), paris)
	require.NoError(t, err)
	assert.Equal(t, 2, astro.calls)
	assert.Equal(t, 2, cache.saves)
}

func TestLocationCachePurge(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	cache := newMemorySunCache()
	p := policy.NewLocation(&fakeAstronomy{times: parisFixtures()}, cache)

	now := time.Date(2025, 6, 10, 9, 0, 0, 0, cest)
	_, _, err := p.NextTransition(context.Background(), now, paris)
	require.NoError(t, err)

	purged, err := cache.PurgeElapsed(context.Background(), now.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestLocationProviderFailure(t *testing.T) {
	astro := &fakeAstronomy{err: fmt.Errorf("%w: upstream 503", entity.ErrAstronomyService)}
	p := policy.NewLocation(astro, newMemorySunCache())

	_, _, err := p.NextTransition(context.Background(), time.Now(), paris)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrAstronomyService)
}

func TestLocationRejectsUnusableTimes(t *testing.T) {
	// Zero-value instants (polar night answers) must not arm anything.
	astro := &fakeAstronomy{times: map[string]entity.SunTimes{
		time.Now().Format(entity.SunDateFormat): {},
	}}
	p := policy.NewLocation(astro, nil)

	_, _, err := p.NextTransition(context.Background(), time.Now(), paris)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrAstronomyService)
	assert.False(t, errors.Is(err, entity.ErrLocationUnavailable))
}
