package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// FileConfig controls the optional on-disk log sink.
type FileConfig struct {
	Enabled    bool
	LogDir     string
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewWithFile builds a logger that writes to stderr in the configured
// format and, when enabled, tees raw JSON lines into a rotated file
// under LogDir. The returned cleanup flushes and closes the file sink;
// it is safe to call when the sink is disabled.
func NewWithFile(cfg Config, fileCfg FileConfig) (zerolog.Logger, func(), error) {
	if !fileCfg.Enabled {
		return New(cfg), func() {}, nil
	}
	if fileCfg.LogDir == "" {
		return New(cfg), func() {}, fmt.Errorf("file logging enabled but no log directory configured")
	}
	if fileCfg.FileName == "" {
		fileCfg.FileName = "nightswitch.log"
	}

	if err := os.MkdirAll(fileCfg.LogDir, 0o700); err != nil {
		return New(cfg), func() {}, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotator, err := NewRotator(fileCfg.LogDir, fileCfg.FileName,
		fileCfg.MaxSizeMB, fileCfg.MaxBackups, fileCfg.MaxAgeDays, fileCfg.Compress)
	if err != nil {
		return New(cfg), func() {}, err
	}

	// MultiLevelWriter hands the same JSON event to both sinks; the
	// console writer formats its copy, the rotator stores raw JSON.
	var stderrSink zerolog.LevelWriter
	if cfg.Format == "console" {
		stderrSink = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: cfg.TimeFormat,
		})
	} else {
		stderrSink = zerolog.MultiLevelWriter(os.Stderr)
	}
	sink := zerolog.MultiLevelWriter(stderrSink, rotator)

	logger := zerolog.New(sink).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
	cleanup := func() { _ = rotator.Close() }
	return logger, cleanup, nil
}
