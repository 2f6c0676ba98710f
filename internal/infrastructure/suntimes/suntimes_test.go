package suntimes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

var paris = entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522}

func TestAPIProviderSunTimes(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":{"sunrise":"2025-06-10T03:49:00+00:00","sunset":"2025-06-10T19:52:00+00:00"}}`))
	}))
	defer server.Close()

	p := NewAPIProvider(server.URL, time.Second)
	st, err := p.SunTimes(context.Background(), paris, "2025-06-10")
	require.NoError(t, err)

	assert.Equal(t, "48.8566", gotQuery.Get("lat"))
	assert.Equal(t, "2.3522", gotQuery.Get("lng"))
	assert.Equal(t, "2025-06-10", gotQuery.Get("date"))
	assert.Equal(t, "0", gotQuery.Get("formatted"))

	assert.Equal(t, "2025-06-10", st.Date)
	assert.Equal(t, "sunrisesunset.io", st.Source)
	assert.Equal(t, time.Date(2025, 6, 10, 3, 49, 0, 0, time.UTC), st.Sunrise)
	assert.Equal(t, time.Date(2025, 6, 10, 19, 52, 0, 0, time.UTC), st.Sunset)
	assert.True(t, st.Valid())
}

func TestAPIProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "http error",
			status: http.StatusBadGateway,
			body:   "",
		},
		{
			name:   "api status not ok",
			status: http.StatusOK,
			body:   `{"status":"INVALID_REQUEST"}`,
		},
		{
			name:   "malformed timestamp",
			status: http.StatusOK,
			body:   `{"status":"OK","results":{"sunrise":"7:02:31 AM","sunset":"9:39:49 PM"}}`,
		},
		{
			name:   "missing sunset",
			status: http.StatusOK,
			body:   `{"status":"OK","results":{"sunrise":"2025-06-10T03:49:00+00:00"}}`,
		},
		{
			name:   "sunset before sunrise",
			status: http.StatusOK,
			body:   `{"status":"OK","results":{"sunrise":"2025-06-10T19:52:00+00:00","sunset":"2025-06-10T03:49:00+00:00"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewAPIProvider(server.URL, time.Second)
			_, err := p.SunTimes(context.Background(), paris, "2025-06-10")
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrAstronomyService)
		})
	}
}

func TestLocalProviderParisJune(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider()
	st, err := p.SunTimes(context.Background(), paris, "2025-06-10")
	require.NoError(t, err)

	assert.Equal(t, "local", st.Source)
	assert.Equal(t, "2025-06-10", st.Date)
	assert.True(t, st.Valid())

	// Paris sunrise that day is about 03:47 UTC, sunset about 19:52 UTC.
	assert.WithinDuration(t, time.Date(2025, 6, 10, 3, 47, 0, 0, time.UTC), st.Sunrise, 20*time.Minute)
	assert.WithinDuration(t, time.Date(2025, 6, 10, 19, 52, 0, 0, time.UTC), st.Sunset, 20*time.Minute)
}

func TestLocalProviderPolarNight(t *testing.T) {
	t.Parallel()

	svalbard := entity.Coordinate{Latitude: 78.2232, Longitude: 15.6267}
	p := NewLocalProvider()
	_, err := p.SunTimes(context.Background(), svalbard, "2025-01-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrAstronomyService)
}

func TestLocalProviderBadDate(t *testing.T) {
	t.Parallel()

	p := NewLocalProvider()
	_, err := p.SunTimes(context.Background(), paris, "10/06/2025")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrAstronomyService)
}

type fakeProvider struct {
	name  string
	times entity.SunTimes
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) SunTimes(_ context.Context, _ entity.Coordinate, _ string) (entity.SunTimes, error) {
	f.calls++
	if f.err != nil {
		return entity.SunTimes{}, f.err
	}
	return f.times, nil
}

func TestFallbackPrefersPrimary(t *testing.T) {
	t.Parallel()

	want := entity.SunTimes{
		Coordinate: paris,
		Date:       "2025-06-10",
		Sunrise:    time.Date(2025, 6, 10, 3, 49, 0, 0, time.UTC),
		Sunset:     time.Date(2025, 6, 10, 19, 52, 0, 0, time.UTC),
		Source:     "api",
	}
	primary := &fakeProvider{name: "api", times: want}
	secondary := &fakeProvider{name: "local"}

	f := NewFallback(primary, secondary)
	st, err := f.SunTimes(context.Background(), paris, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, want, st)
	assert.Zero(t, secondary.calls)
}

func TestFallbackUsesSecondaryOnFailure(t *testing.T) {
	t.Parallel()

	want := entity.SunTimes{
		Coordinate: paris,
		Date:       "2025-06-10",
		Sunrise:    time.Date(2025, 6, 10, 3, 48, 0, 0, time.UTC),
		Sunset:     time.Date(2025, 6, 10, 19, 53, 0, 0, time.UTC),
		Source:     "local",
	}
	primary := &fakeProvider{name: "api", err: entity.ErrAstronomyService}
	secondary := &fakeProvider{name: "local", times: want}

	f := NewFallback(primary, secondary)
	st, err := f.SunTimes(context.Background(), paris, "2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, want, st)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackSkipsSecondaryWhenContextDone(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "api", err: errors.New("interrupted")}
	secondary := &fakeProvider{name: "local"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFallback(primary, secondary)
	_, err := f.SunTimes(ctx, paris, "2025-06-10")
	require.Error(t, err)
	assert.Zero(t, secondary.calls)
}
