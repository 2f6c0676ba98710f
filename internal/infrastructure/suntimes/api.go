// Package suntimes provides sunrise/sunset lookups for a coordinate on
// a calendar date: a sunrisesunset.io API client, a local astronomical
// computation, and a fallback combinator over the two.
package suntimes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

const (
	defaultBaseURL = "https://api.sunrisesunset.io"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
	userAgent      = "nightswitch"
)

// APIProvider implements port.AstronomyProvider against the
// sunrisesunset.io JSON API.
type APIProvider struct {
	client  *http.Client
	baseURL string
}

// NewAPIProvider creates an API-backed provider. Empty baseURL and
// non-positive timeout fall back to the service defaults.
func NewAPIProvider(baseURL string, timeout time.Duration) *APIProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &APIProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name identifies the provider in logs and cache rows.
func (p *APIProvider) Name() string { return "sunrisesunset.io" }

// SunTimes queries /json for the coordinate and date. Instants are
// requested unformatted (UTC) and returned in UTC.
func (p *APIProvider) SunTimes(ctx context.Context, coord entity.Coordinate, date string) (entity.SunTimes, error) {
	u, err := url.Parse(p.baseURL + "/json")
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: bad base URL: %w", entity.ErrAstronomyService, err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	q.Set("date", date)
	q.Set("formatted", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: failed to create request: %w", entity.ErrAstronomyService, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: %w", entity.ErrAstronomyService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return entity.SunTimes{}, fmt.Errorf("%w: status %d", entity.ErrAstronomyService, resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Results struct {
			Sunrise string `json:"sunrise"`
			Sunset  string `json:"sunset"`
		} `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: failed to decode response: %w", entity.ErrAstronomyService, err)
	}
	if body.Status != "OK" {
		return entity.SunTimes{}, fmt.Errorf("%w: API status %q", entity.ErrAstronomyService, body.Status)
	}

	sunriseAt, err := parseInstant(body.Results.Sunrise)
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: sunrise: %w", entity.ErrAstronomyService, err)
	}
	sunsetAt, err := parseInstant(body.Results.Sunset)
	if err != nil {
		return entity.SunTimes{}, fmt.Errorf("%w: sunset: %w", entity.ErrAstronomyService, err)
	}

	st := entity.SunTimes{
		Coordinate: coord,
		Date:       date,
		Sunrise:    sunriseAt.UTC(),
		Sunset:     sunsetAt.UTC(),
		Source:     p.Name(),
	}
	if !st.Valid() {
		return entity.SunTimes{}, fmt.Errorf("%w: implausible sun times (sunrise %v, sunset %v)", entity.ErrAstronomyService, st.Sunrise, st.Sunset)
	}
	return st, nil
}

// parseInstant accepts the API's ISO 8601 timestamps, with either a Z
// suffix or a numeric offset.
func parseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
	}
	return t, nil
}
