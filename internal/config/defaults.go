// Package config provides default configuration values for nightswitch.
package config

import "time"

// Default configuration constants
const (
	// Provider defaults
	defaultProviderTimeoutSec = 10 // seconds
	defaultSunAPIURL          = "https://api.sunrisesunset.io"

	// Schedule defaults
	defaultDarkTime  = "19:00"
	defaultLightTime = "07:00"

	// Logging defaults
	defaultMaxLogSizeMB  = 10 // MB
	defaultMaxBackups    = 3  // backup files
	defaultMaxLogAgeDays = 7  // days
)

// getDefaultLogDir returns the default log directory, falls back to empty string on error
func getDefaultLogDir() string {
	logDir, err := GetLogDir()
	if err != nil {
		return ""
	}
	return logDir
}

// DefaultConfig returns the default configuration values for nightswitch.
func DefaultConfig() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			DarkTime:  defaultDarkTime,
			LightTime: defaultLightTime,
		},
		Location: LocationConfig{
			AutoDetect: true,
		},
		Providers: ProvidersConfig{
			Timeout:       time.Second * defaultProviderTimeoutSec,
			SunAPIURL:     defaultSunAPIURL,
			LocalFallback: true,
		},
		Applier: ApplierConfig{
			Backend: ApplierAuto,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "console", // console or json
			EnableFileLog: true,
			LogDir:        getDefaultLogDir(),
			MaxSize:       defaultMaxLogSizeMB,
			MaxBackups:    defaultMaxBackups,
			MaxAge:        defaultMaxLogAgeDays,
			Compress:      true,
		},
	}
}

// defaultConfigTOML is written on first run. Values mirror
// DefaultConfig; commented entries document the optional knobs.
const defaultConfigTOML = `# nightswitch configuration
# Schema: config.schema.json (same directory)

[schedule]
# First-run boundaries for schedule mode (HH:MM, 24h clock).
# Once the daemon has run, change them with: nightswitch schedule <dark> <light>
dark_time = "19:00"
light_time = "07:00"

[location]
# Resolve the coordinate by IP geolocation when none is pinned below.
auto_detect = true
# Pin a fixed coordinate (disables geolocation lookups):
#latitude = 48.8566
#longitude = 2.3522

[providers]
# Bound on every remote lookup.
timeout = "10s"
sun_api_url = "https://api.sunrisesunset.io"
# Compute sun times locally when the remote API is unreachable.
local_fallback = true

[applier]
# Theme applier backend: auto, gsettings, portal, command.
backend = "auto"
# Commands for the command backend:
#dark_command = "plasma-apply-colorscheme BreezeDark"
#light_command = "plasma-apply-colorscheme BreezeLight"
# GTK theme base name for the gsettings backend (dark variant gets "-dark"):
#gtk_theme = "Adwaita"

[logging]
level = "info"     # trace, debug, info, warn, error
format = "console" # console or json
enable_file_log = true
max_size = 10    # MB per log file
max_backups = 3
max_age = 7      # days
compress = true

[server]
# Control socket path; defaults to $XDG_RUNTIME_DIR/nightswitch/nightswitch.sock
#socket_path = ""
`
