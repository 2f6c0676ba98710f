package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func newTestResolver(endpoints ...endpoint) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: time.Second},
		endpoints: endpoints,
	}
}

func TestResolverFirstProviderWins(t *testing.T) {
	t.Parallel()

	first := httptest.NewServer(jsonHandler(`{"latitude":48.8566,"longitude":2.3522,"city":"Paris"}`))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("second provider should not be queried")
	}))
	defer second.Close()

	r := newTestResolver(
		endpoint{name: "ipapi.co", url: first.URL, decode: decodeIPAPICo},
		endpoint{name: "ip-api.com", url: second.URL, decode: decodeIPAPICom},
	)

	resolved, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ipapi.co", resolved.Source)
	assert.Equal(t, "Paris", resolved.City)
	assert.InDelta(t, 48.8566, resolved.Coordinate.Latitude, 1e-9)
	assert.InDelta(t, 2.3522, resolved.Coordinate.Longitude, 1e-9)
	assert.False(t, resolved.ResolvedAt.IsZero())
}

func TestResolverFallsThroughOnFailure(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	working := httptest.NewServer(jsonHandler(`{"status":"success","lat":59.9139,"lon":10.7522,"city":"Oslo"}`))
	defer working.Close()

	r := newTestResolver(
		endpoint{name: "ipapi.co", url: broken.URL, decode: decodeIPAPICo},
		endpoint{name: "ip-api.com", url: working.URL, decode: decodeIPAPICom},
	)

	resolved, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ip-api.com", resolved.Source)
	assert.Equal(t, "Oslo", resolved.City)
}

func TestResolverRejectsNullIsland(t *testing.T) {
	t.Parallel()

	nullIsland := httptest.NewServer(jsonHandler(`{"latitude":0,"longitude":0,"city":""}`))
	defer nullIsland.Close()
	working := httptest.NewServer(jsonHandler(`{"loc":"35.6762,139.6503","city":"Tokyo"}`))
	defer working.Close()

	r := newTestResolver(
		endpoint{name: "ipapi.co", url: nullIsland.URL, decode: decodeIPAPICo},
		endpoint{name: "ipinfo.io", url: working.URL, decode: decodeIPInfo},
	)

	resolved, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ipinfo.io", resolved.Source)
	assert.InDelta(t, 35.6762, resolved.Coordinate.Latitude, 1e-9)
}

func TestResolverAllProvidersFailed(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	r := newTestResolver(
		endpoint{name: "ipapi.co", url: broken.URL, decode: decodeIPAPICo},
		endpoint{name: "ip-api.com", url: broken.URL, decode: decodeIPAPICom},
	)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrLocationUnavailable)
	assert.Contains(t, err.Error(), "ipapi.co")
	assert.Contains(t, err.Error(), "ip-api.com")
}

func TestResolverContextCancellation(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()

	r := newTestResolver(endpoint{name: "ipapi.co", url: slow.URL, decode: decodeIPAPICo})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrLocationUnavailable)
}

func TestDecodeIPAPIComServiceError(t *testing.T) {
	t.Parallel()

	_, _, err := decodeIPAPICom(strings.NewReader(`{"status":"fail","message":"private range"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private range")
}

func TestDecodeIPInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
		lat     float64
		lon     float64
		city    string
	}{
		{
			name: "well formed",
			body: `{"loc":"48.8566,2.3522","city":"Paris"}`,
			lat:  48.8566,
			lon:  2.3522,
			city: "Paris",
		},
		{
			name: "spaces around parts",
			body: `{"loc":"48.8566, 2.3522"}`,
			lat:  48.8566,
			lon:  2.3522,
		},
		{
			name:    "missing comma",
			body:    `{"loc":"48.8566"}`,
			wantErr: true,
		},
		{
			name:    "non numeric",
			body:    `{"loc":"north,south"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, city, err := decodeIPInfo(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.lat, coord.Latitude, 1e-9)
			assert.InDelta(t, tt.lon, coord.Longitude, 1e-9)
			assert.Equal(t, tt.city, city)
		})
	}
}

func TestStaticResolver(t *testing.T) {
	t.Parallel()

	s := NewStatic(entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522})
	resolved, err := s.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "config", resolved.Source)
	assert.InDelta(t, 48.8566, resolved.Coordinate.Latitude, 1e-9)

	bad := NewStatic(entity.Coordinate{Latitude: 123, Longitude: 0})
	_, err = bad.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)
}
