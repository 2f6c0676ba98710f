// Package geoip resolves the machine's coordinate from its public IP
// address. Several free geolocation services are tried in order; the
// first valid fix wins.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/logging"
)

const (
	// Per-attempt timeout when the caller supplies none.
	defaultTimeout = 10 * time.Second

	// Geolocation responses are tiny; cap reads against misbehaving
	// endpoints.
	maxBodyBytes = 1 << 20

	userAgent = "nightswitch"
)

// decodeFunc parses one service's response body into a coordinate and
// an optional city name.
type decodeFunc func(io.Reader) (entity.Coordinate, string, error)

// endpoint is one geolocation service in the fallback chain.
type endpoint struct {
	name   string
	url    string
	decode decodeFunc
}

// Resolver implements port.LocationResolver over a chain of public
// geolocation services.
type Resolver struct {
	client    *http.Client
	endpoints []endpoint
}

// NewResolver creates a resolver with the default service chain. A
// non-positive timeout falls back to 10s per attempt.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		endpoints: []endpoint{
			{name: "ipapi.co", url: "https://ipapi.co/json/", decode: decodeIPAPICo},
			// ip-api.com serves the free tier over plain HTTP only.
			{name: "ip-api.com", url: "http://ip-api.com/json", decode: decodeIPAPICom},
			{name: "ipinfo.io", url: "https://ipinfo.io/json", decode: decodeIPInfo},
		},
	}
}

// Resolve tries each service in order and returns the first valid
// coordinate. All failures are wrapped in entity.ErrLocationUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (entity.ResolvedCoordinate, error) {
	log := logging.FromContext(ctx)

	var attempts []string
	for _, ep := range r.endpoints {
		coord, city, err := r.query(ctx, ep)
		if err != nil {
			if ctx.Err() != nil {
				return entity.ResolvedCoordinate{}, fmt.Errorf("%w: %v", entity.ErrLocationUnavailable, ctx.Err())
			}
			log.Debug().Str("provider", ep.name).Err(err).Msg("geolocation provider failed")
			attempts = append(attempts, fmt.Sprintf("%s: %v", ep.name, err))
			continue
		}
		log.Debug().
			Str("provider", ep.name).
			Str("coordinate", coord.String()).
			Str("city", city).
			Msg("coordinate resolved")
		return entity.ResolvedCoordinate{
			Coordinate: coord,
			Source:     ep.name,
			City:       city,
			ResolvedAt: time.Now(),
		}, nil
	}
	return entity.ResolvedCoordinate{}, fmt.Errorf("%w: all providers failed (%s)", entity.ErrLocationUnavailable, strings.Join(attempts, "; "))
}

func (r *Resolver) query(ctx context.Context, ep endpoint) (entity.Coordinate, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.url, http.NoBody)
	if err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return entity.Coordinate{}, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return entity.Coordinate{}, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	coord, city, err := ep.decode(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return entity.Coordinate{}, "", err
	}
	// (0,0) is the null-island placeholder services return without a
	// real fix; treat it as a failure so the chain moves on.
	if coord.IsZero() {
		return entity.Coordinate{}, "", errors.New("no fix (0,0 coordinate)")
	}
	if err := coord.Validate(); err != nil {
		return entity.Coordinate{}, "", err
	}
	return coord, city, nil
}

func decodeIPAPICo(r io.Reader) (entity.Coordinate, string, error) {
	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		City      string  `json:"city"`
		Error     bool    `json:"error"`
		Reason    string  `json:"reason"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error {
		return entity.Coordinate{}, "", fmt.Errorf("service error: %s", body.Reason)
	}
	return entity.Coordinate{Latitude: body.Latitude, Longitude: body.Longitude}, body.City, nil
}

func decodeIPAPICom(r io.Reader) (entity.Coordinate, string, error) {
	var body struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		City    string  `json:"city"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "success" {
		return entity.Coordinate{}, "", fmt.Errorf("service error: %s", body.Message)
	}
	return entity.Coordinate{Latitude: body.Lat, Longitude: body.Lon}, body.City, nil
}

func decodeIPInfo(r io.Reader) (entity.Coordinate, string, error) {
	var body struct {
		Loc  string `json:"loc"`
		City string `json:"city"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("failed to decode response: %w", err)
	}
	latStr, lonStr, ok := strings.Cut(body.Loc, ",")
	if !ok {
		return entity.Coordinate{}, "", fmt.Errorf("malformed loc field %q", body.Loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("malformed latitude in %q", body.Loc)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return entity.Coordinate{}, "", fmt.Errorf("malformed longitude in %q", body.Loc)
	}
	return entity.Coordinate{Latitude: lat, Longitude: lon}, body.City, nil
}

// Static is a resolver that always yields a pinned coordinate, used
// when the user configures an explicit latitude/longitude.
type Static struct {
	coord entity.Coordinate
}

// NewStatic creates a resolver for a pinned coordinate.
func NewStatic(coord entity.Coordinate) *Static {
	return &Static{coord: coord}
}

// Resolve returns the pinned coordinate.
func (s *Static) Resolve(_ context.Context) (entity.ResolvedCoordinate, error) {
	if err := s.coord.Validate(); err != nil {
		return entity.ResolvedCoordinate{}, err
	}
	return entity.ResolvedCoordinate{
		Coordinate: s.coord,
		Source:     "config",
		ResolvedAt: time.Now(),
	}, nil
}

// Disabled is a resolver for configurations that forbid network
// geolocation and pin no coordinate.
type Disabled struct{}

// Resolve always fails: there is nothing to resolve.
func (Disabled) Resolve(_ context.Context) (entity.ResolvedCoordinate, error) {
	return entity.ResolvedCoordinate{}, fmt.Errorf(
		"%w: automatic location detection is disabled", entity.ErrLocationUnavailable)
}
