// Package config provides configuration management for nightswitch with Viper integration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// File permission constants
const (
	dirPerm  = 0755 // Standard directory permissions (rwxr-xr-x)
	filePerm = 0644 // Standard file permissions (rw-r--r--)
)

// Applier backend identifiers.
const (
	ApplierAuto      = "auto"
	ApplierGSettings = "gsettings"
	ApplierPortal    = "portal"
	ApplierCommand   = "command"
)

// Config represents the complete configuration for nightswitch.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database" json:"database"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" yaml:"schedule" json:"schedule"`
	Location  LocationConfig  `mapstructure:"location" yaml:"location" json:"location"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers" json:"providers"`
	Applier   ApplierConfig   `mapstructure:"applier" yaml:"applier" json:"applier"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging" json:"logging"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
}

// DatabaseConfig holds state database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// ScheduleConfig holds the first-run defaults for schedule mode.
// Once the daemon has run, the authoritative times live in the
// persisted state and are changed through the CLI or control API.
type ScheduleConfig struct {
	DarkTime  string `mapstructure:"dark_time" yaml:"dark_time" json:"dark_time"`
	LightTime string `mapstructure:"light_time" yaml:"light_time" json:"light_time"`
}

// LocationConfig holds the first-run defaults for location mode.
type LocationConfig struct {
	AutoDetect bool     `mapstructure:"auto_detect" yaml:"auto_detect" json:"auto_detect"`
	Latitude   *float64 `mapstructure:"latitude" yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude  *float64 `mapstructure:"longitude" yaml:"longitude,omitempty" json:"longitude,omitempty"`
}

// ProvidersConfig holds settings for the remote lookups.
type ProvidersConfig struct {
	// Timeout bounds every provider HTTP call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	// SunAPIURL is the sunrise/sunset API base URL.
	SunAPIURL string `mapstructure:"sun_api_url" yaml:"sun_api_url" json:"sun_api_url"`
	// LocalFallback computes sun times locally when the remote API
	// fails. Disable to surface astronomy errors instead.
	LocalFallback bool `mapstructure:"local_fallback" yaml:"local_fallback" json:"local_fallback"`
}

// ApplierConfig selects and parameterizes the theme applier backend.
type ApplierConfig struct {
	// Backend is one of auto, gsettings, portal, command.
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`
	// DarkCommand and LightCommand are shell commands for the
	// command backend.
	DarkCommand  string `mapstructure:"dark_command" yaml:"dark_command,omitempty" json:"dark_command,omitempty"`
	LightCommand string `mapstructure:"light_command" yaml:"light_command,omitempty" json:"light_command,omitempty"`
	// GTKTheme overrides the gtk-theme pair applied by the
	// gsettings backend; empty keeps the stock Adwaita pair.
	GTKTheme string `mapstructure:"gtk_theme" yaml:"gtk_theme,omitempty" json:"gtk_theme,omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level" json:"level"`
	Format        string `mapstructure:"format" yaml:"format" json:"format"`
	EnableFileLog bool   `mapstructure:"enable_file_log" yaml:"enable_file_log" json:"enable_file_log"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	MaxSize       int    `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups    int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge        int    `mapstructure:"max_age" yaml:"max_age" json:"max_age"`
	Compress      bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

// ServerConfig holds control socket configuration.
type ServerConfig struct {
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path,omitempty" json:"socket_path,omitempty"`
}

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	// Configure Viper - supports yaml, json, toml automatically
	v.SetConfigName("config")

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Current directory for development

	// Set up environment variable support
	v.SetEnvPrefix("NIGHTSWITCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"database.path":            "DATABASE_PATH",
		"schedule.dark_time":       "SCHEDULE_DARK_TIME",
		"schedule.light_time":      "SCHEDULE_LIGHT_TIME",
		"location.auto_detect":     "LOCATION_AUTO_DETECT",
		"location.latitude":        "LOCATION_LATITUDE",
		"location.longitude":       "LOCATION_LONGITUDE",
		"providers.timeout":        "PROVIDERS_TIMEOUT",
		"providers.sun_api_url":    "PROVIDERS_SUN_API_URL",
		"providers.local_fallback": "PROVIDERS_LOCAL_FALLBACK",
		"applier.backend":          "APPLIER_BACKEND",
		"applier.dark_command":     "APPLIER_DARK_COMMAND",
		"applier.light_command":    "APPLIER_LIGHT_COMMAND",
		"logging.level":            "LOG_LEVEL",
		"logging.format":           "LOG_FORMAT",
		"logging.enable_file_log":  "LOG_TO_FILE",
		"server.socket_path":       "SOCKET_PATH",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, "NIGHTSWITCH_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	return &Manager{
		viper:     v,
		callbacks: make([]func(*Config), 0),
	}, nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Ensure directories exist
	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Set defaults
	m.setDefaults()

	// Read config file if it exists
	if err := m.viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create default one
			if err := m.createDefaultConfig(); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := m.unmarshal()
	if err != nil {
		return err
	}

	if err := validateConfig(config); err != nil {
		return err
	}

	m.config = config
	return nil
}

// unmarshal decodes viper state into a Config and fills derived paths.
func (m *Manager) unmarshal() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return nil, fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}
	if config.Server.SocketPath == "" {
		socketPath, err := GetSocketFile()
		if err != nil {
			return nil, fmt.Errorf("failed to get socket path: %w", err)
		}
		config.Server.SocketPath = socketPath
	}
	if config.Logging.LogDir == "" {
		logDir, err := GetLogDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get log directory: %w", err)
		}
		config.Logging.LogDir = logDir
	}

	// Normalize the applier backend; unknown values are left for
	// validateConfig to report.
	config.Applier.Backend = strings.ToLower(config.Applier.Backend)
	if config.Applier.Backend == "" {
		config.Applier.Backend = ApplierAuto
	}

	return config, nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// Watch starts watching the config file for changes and reloads automatically.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return nil // Already watching
	}

	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(_ fsnotify.Event) {
		// Reload config
		if err := m.reload(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to reload config: %v\n", err)
			return
		}

		// Notify callbacks
		m.mu.RLock()
		config := m.config
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.RUnlock()

		for _, callback := range callbacks {
			callback(config)
		}
	})

	m.watching = true
	return nil
}

// OnConfigChange registers a callback function to be called when config changes.
func (m *Manager) OnConfigChange(callback func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks = append(m.callbacks, callback)
}

// reload re-reads and swaps the configuration. Called from the watch
// goroutine, so it takes the lock only for the final swap.
func (m *Manager) reload() error {
	if err := m.viper.ReadInConfig(); err != nil {
		return err
	}

	config, err := m.unmarshal()
	if err != nil {
		return err
	}
	if err := validateConfig(config); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
	return nil
}

// createDefaultConfig writes a commented TOML config with defaults.
func (m *Manager) createDefaultConfig() error {
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigTOML), filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep the schema next to the config for editor completion.
	if err := GenerateSchemaFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to generate config schema: %v\n", err)
	}

	fmt.Printf("Created default configuration file: %s\n", configFile)
	return nil
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// setDefaults seeds viper with the values from DefaultConfig so that
// partial config files and bare environments still unmarshal fully.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	// Schedule defaults
	m.viper.SetDefault("schedule.dark_time", defaults.Schedule.DarkTime)
	m.viper.SetDefault("schedule.light_time", defaults.Schedule.LightTime)

	// Location defaults
	m.viper.SetDefault("location.auto_detect", defaults.Location.AutoDetect)

	// Provider defaults
	m.viper.SetDefault("providers.timeout", defaults.Providers.Timeout)
	m.viper.SetDefault("providers.sun_api_url", defaults.Providers.SunAPIURL)
	m.viper.SetDefault("providers.local_fallback", defaults.Providers.LocalFallback)

	// Applier defaults
	m.viper.SetDefault("applier.backend", defaults.Applier.Backend)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.enable_file_log", defaults.Logging.EnableFileLog)
	m.viper.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Global configuration manager instance
var globalManager *Manager
var globalManagerOnce sync.Once

// Init initializes the global configuration manager.
func Init() error {
	var err error
	globalManagerOnce.Do(func() {
		globalManager, err = NewManager()
		if err != nil {
			return
		}
		err = globalManager.Load()
	})
	return err
}

// Get returns the global configuration.
func Get() *Config {
	if globalManager == nil {
		// Return defaults if not initialized
		return DefaultConfig()
	}
	return globalManager.Get()
}

// Watch starts watching the global configuration for changes.
func Watch() error {
	if globalManager == nil {
		return fmt.Errorf("configuration not initialized")
	}
	return globalManager.Watch()
}

// OnConfigChange registers a callback for global configuration changes.
func OnConfigChange(callback func(*Config)) {
	if globalManager == nil {
		return
	}
	globalManager.OnConfigChange(callback)
}
