// Package config provides validation utilities for configuration values.
package config

import (
	"fmt"
	"strings"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	// Validate schedule times
	darkAt, darkErr := entity.ParseTimeOfDay(config.Schedule.DarkTime)
	if darkErr != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("schedule.dark_time must be HH:MM on a 24h clock (got: %s)", config.Schedule.DarkTime))
	}
	lightAt, lightErr := entity.ParseTimeOfDay(config.Schedule.LightTime)
	if lightErr != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("schedule.light_time must be HH:MM on a 24h clock (got: %s)", config.Schedule.LightTime))
	}
	if darkErr == nil && lightErr == nil && darkAt.Equal(lightAt) {
		validationErrors = append(validationErrors, "schedule.dark_time and schedule.light_time must differ")
	}

	// Validate pinned coordinate
	if (config.Location.Latitude == nil) != (config.Location.Longitude == nil) {
		validationErrors = append(validationErrors, "location.latitude and location.longitude must be set together")
	}
	if config.Location.Latitude != nil && (*config.Location.Latitude < -90 || *config.Location.Latitude > 90) {
		validationErrors = append(validationErrors, fmt.Sprintf("location.latitude must be between -90 and 90 (got: %v)", *config.Location.Latitude))
	}
	if config.Location.Longitude != nil && (*config.Location.Longitude < -180 || *config.Location.Longitude > 180) {
		validationErrors = append(validationErrors, fmt.Sprintf("location.longitude must be between -180 and 180 (got: %v)", *config.Location.Longitude))
	}
	if !config.Location.AutoDetect && config.Location.Latitude == nil {
		validationErrors = append(validationErrors, "location.auto_detect is false but no latitude/longitude is pinned; location mode would never resolve")
	}

	// Validate provider settings
	if config.Providers.Timeout <= 0 {
		validationErrors = append(validationErrors, "providers.timeout must be positive")
	}
	if config.Providers.SunAPIURL == "" {
		validationErrors = append(validationErrors, "providers.sun_api_url cannot be empty")
	} else if !strings.HasPrefix(config.Providers.SunAPIURL, "http://") && !strings.HasPrefix(config.Providers.SunAPIURL, "https://") {
		validationErrors = append(validationErrors, fmt.Sprintf("providers.sun_api_url must be an http(s) URL (got: %s)", config.Providers.SunAPIURL))
	}

	// Validate applier backend
	switch config.Applier.Backend {
	case ApplierAuto, ApplierGSettings, ApplierPortal, ApplierCommand:
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("applier.backend must be one of: auto, gsettings, portal, command (got: %s)", config.Applier.Backend))
	}

	// The command backend needs both commands to be able to flip either way
	if config.Applier.Backend == ApplierCommand {
		if config.Applier.DarkCommand == "" {
			validationErrors = append(validationErrors, "applier.dark_command is required for the command backend")
		}
		if config.Applier.LightCommand == "" {
			validationErrors = append(validationErrors, "applier.light_command is required for the command backend")
		}
	}

	// Validate logging values
	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level must be one of: trace, debug, info, warn, error, fatal (got: %s)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "console", "json":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format must be 'console' or 'json' (got: %s)", config.Logging.Format))
	}
	if config.Logging.MaxSize < 0 {
		validationErrors = append(validationErrors, "logging.max_size must be non-negative")
	}
	if config.Logging.MaxBackups < 0 {
		validationErrors = append(validationErrors, "logging.max_backups must be non-negative")
	}
	if config.Logging.MaxAge < 0 {
		validationErrors = append(validationErrors, "logging.max_age must be non-negative")
	}

	// If there are validation errors, return them
	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}

	return nil
}
