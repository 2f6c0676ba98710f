package entity

import (
	"fmt"
	"time"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.4f out of range [-90,90]", ErrInvalidConfig, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.4f out of range [-180,180]", ErrInvalidConfig, c.Longitude)
	}
	return nil
}

// IsZero reports whether the coordinate is the (0,0) null island
// placeholder. Geolocation backends return it when they have no fix.
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// String formats the coordinate for logs.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// LocationConfig holds location-mode settings: an optional explicit
// coordinate and whether auto-detection via geolocation is allowed
// when no explicit coordinate is set.
type LocationConfig struct {
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	AutoDetect bool        `json:"auto_detect"`
}

// DefaultLocationConfig returns location settings with auto-detection
// enabled and no explicit coordinate.
func DefaultLocationConfig() LocationConfig {
	return LocationConfig{AutoDetect: true}
}

// Validate checks the explicit coordinate, when present.
func (c LocationConfig) Validate() error {
	if c.Coordinate != nil {
		return c.Coordinate.Validate()
	}
	return nil
}

// ResolvedCoordinate is a coordinate together with where and when it
// was obtained. Auto-detected fixes are cached in app state so a
// later activation can proceed without a network round trip.
type ResolvedCoordinate struct {
	Coordinate Coordinate `json:"coordinate"`
	Source     string     `json:"source"`
	City       string     `json:"city,omitempty"`
	ResolvedAt time.Time  `json:"resolved_at"`
}
