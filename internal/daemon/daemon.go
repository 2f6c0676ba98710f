// Package daemon assembles and runs the nightswitch service: config,
// logging, persistence, providers, the mode controller, and the
// control API, with graceful shutdown on SIGINT/SIGTERM.
package daemon

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pygillier/nightswitch/internal/application/policy"
	"github.com/pygillier/nightswitch/internal/application/port"
	"github.com/pygillier/nightswitch/internal/config"
	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/events"
	"github.com/pygillier/nightswitch/internal/infrastructure/applier"
	"github.com/pygillier/nightswitch/internal/infrastructure/geoip"
	"github.com/pygillier/nightswitch/internal/infrastructure/persistence/sqlite"
	"github.com/pygillier/nightswitch/internal/infrastructure/suntimes"
	"github.com/pygillier/nightswitch/internal/logging"
	"github.com/pygillier/nightswitch/internal/server"
	"github.com/pygillier/nightswitch/internal/services"
	"github.com/pygillier/nightswitch/internal/timer"
)

// cachePurgeInterval paces the sun-times cache sweep. Entries are
// keyed by date and never served stale, so this is hygiene, not
// correctness.
const cachePurgeInterval = 24 * time.Hour

// Options carries build metadata into the daemon's startup log line.
type Options struct {
	Version   string
	Commit    string
	BuildDate string
}

// Run builds the full service from configuration and blocks until the
// context is canceled or SIGINT/SIGTERM arrives.
func Run(ctx context.Context, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if err := manager.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := manager.Get()

	// Instance loggers stay wide open; the effective level is the
	// global one so a config reload can move it in both directions.
	logger, logCleanup, err := logging.NewWithFile(
		logging.Config{
			Level:      zerolog.TraceLevel,
			Format:     cfg.Logging.Format,
			TimeFormat: "15:04:05",
		},
		logging.FileConfig{
			Enabled:    cfg.Logging.EnableFileLog,
			LogDir:     cfg.Logging.LogDir,
			MaxSizeMB:  cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		},
	)
	defer logCleanup()
	if err != nil {
		logger.Warn().Err(err).Msg("file logging unavailable, continuing on stderr only")
	}
	zerolog.SetGlobalLevel(logging.ParseLevel(cfg.Logging.Level))
	ctx = logging.WithContext(ctx, logger)

	logger.Info().
		Str("version", opts.Version).
		Str("commit", opts.Commit).
		Str("build_date", opts.BuildDate).
		Str("config", manager.GetConfigFile()).
		Msg("starting nightswitch")

	db, err := sqlite.NewConnection(logging.WithComponent(ctx, "sqlite"), cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer func() {
		if err := sqlite.Close(db); err != nil {
			logger.Warn().Err(err).Msg("failed to close state database")
		}
	}()

	stateRepo := sqlite.NewStateRepository(db)
	sunRepo := sqlite.NewSunTimesRepository(db)

	themeApplier, err := applier.New(applier.Options{
		Backend:      cfg.Applier.Backend,
		DarkCommand:  cfg.Applier.DarkCommand,
		LightCommand: cfg.Applier.LightCommand,
		GTKTheme:     cfg.Applier.GTKTheme,
	})
	if err != nil {
		return err
	}

	astronomy := buildAstronomy(cfg)
	resolver := buildResolver(cfg)
	locationPolicy := policy.NewLocation(astronomy, sunRepo)

	bus := events.NewBus()
	defer bus.Close()

	alarm := timer.New()
	defer func() {
		if err := alarm.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close timer")
		}
	}()

	controller := services.NewModeController(stateRepo, alarm, themeApplier, resolver, locationPolicy, bus)
	controller.ConfigureDefaults(firstRunDefaults(cfg))

	go logEvents(logging.WithComponent(ctx, "events"), bus)
	go purgeCacheLoop(logging.WithComponent(ctx, "cache"), sunRepo)

	if err := controller.Start(serviceContext(ctx, controller)); err != nil {
		// The mutation stood; only the write failed. Not fatal.
		logger.Warn().Err(err).Msg("initial state write failed")
	}

	srv := server.New(controller, cfg.Server.SocketPath)
	if err := srv.Start(logging.WithComponent(ctx, "server")); err != nil {
		return err
	}

	watchConfig(ctx, manager)

	controller.Run(serviceContext(ctx, controller))

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(logging.WithContext(shutdownCtx, logger)); err != nil {
		logger.Warn().Err(err).Msg("control api shutdown failed")
	}
	return nil
}

// buildAstronomy assembles the sun-times provider chain: the remote
// API, wrapped with the local computation when the fallback is on.
func buildAstronomy(cfg *config.Config) port.AstronomyProvider {
	api := suntimes.NewAPIProvider(cfg.Providers.SunAPIURL, cfg.Providers.Timeout)
	if !cfg.Providers.LocalFallback {
		return api
	}
	return suntimes.NewFallback(api, suntimes.NewLocalProvider())
}

// buildResolver picks the coordinate source the configuration allows:
// a pinned coordinate bypasses the network, auto-detection uses the
// geolocation chain, and neither means location mode cannot resolve.
func buildResolver(cfg *config.Config) port.LocationResolver {
	if cfg.Location.Latitude != nil && cfg.Location.Longitude != nil {
		return geoip.NewStatic(entity.Coordinate{
			Latitude:  *cfg.Location.Latitude,
			Longitude: *cfg.Location.Longitude,
		})
	}
	if cfg.Location.AutoDetect {
		return geoip.NewResolver(cfg.Providers.Timeout)
	}
	return geoip.Disabled{}
}

// firstRunDefaults maps the config file's schedule/location sections
// onto the state record seeded when no persisted state exists yet.
// Validation already ran on load, so parse failures cannot happen
// here; the entity defaults cover them anyway.
func firstRunDefaults(cfg *config.Config) (entity.ScheduleConfig, entity.LocationConfig) {
	schedule := entity.DefaultScheduleConfig()
	if darkAt, err := entity.ParseTimeOfDay(cfg.Schedule.DarkTime); err == nil {
		schedule.DarkAt = darkAt
	}
	if lightAt, err := entity.ParseTimeOfDay(cfg.Schedule.LightTime); err == nil {
		schedule.LightAt = lightAt
	}

	location := entity.LocationConfig{AutoDetect: cfg.Location.AutoDetect}
	if cfg.Location.Latitude != nil && cfg.Location.Longitude != nil {
		location.Coordinate = &entity.Coordinate{
			Latitude:  *cfg.Location.Latitude,
			Longitude: *cfg.Location.Longitude,
		}
	}
	return schedule, location
}

// logEvents mirrors the notification stream into the daemon log, so
// every asynchronous failure is visible without a connected watcher.
func logEvents(ctx context.Context, bus *events.Bus) {
	log := logging.FromContext(ctx)
	stream, cancel := bus.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				return
			}
			var entry *zerolog.Event
			switch ev.Level {
			case entity.EventError:
				entry = log.Error()
			case entity.EventWarn:
				entry = log.Warn()
			default:
				entry = log.Info()
			}
			entry.Str("event", string(ev.Code)).Str("id", ev.ID).Msg(ev.Message)
		}
	}
}

// purgeCacheLoop sweeps fully-elapsed sun-times cache rows at startup
// and then daily.
func purgeCacheLoop(ctx context.Context, repo repository.SunTimesRepository) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		purged, err := repo.PurgeElapsed(ctx, time.Now())
		if err != nil {
			log.Warn().Err(err).Msg("sun times cache purge failed")
		} else if purged > 0 {
			log.Debug().Int64("rows", purged).Msg("sun times cache purged")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// watchConfig reloads the config file on change. Only the log level
// is applied live; other changes need a restart and say so.
func watchConfig(ctx context.Context, manager *config.Manager) {
	log := logging.FromContext(ctx)
	manager.OnConfigChange(func(updated *config.Config) {
		newLevel := logging.ParseLevel(updated.Logging.Level)
		if zerolog.GlobalLevel() != newLevel {
			zerolog.SetGlobalLevel(newLevel)
			log.Info().Str("level", newLevel.String()).Msg("log level changed")
		}
		log.Info().Msg("configuration reloaded; provider and applier changes apply on restart")
	})
	if err := manager.Watch(); err != nil {
		log.Warn().Err(err).Msg("config watch unavailable")
	}
}

// serviceContext scopes the context logger to a service's name so its
// log lines carry a stable component field.
func serviceContext(ctx context.Context, svc services.Service) context.Context {
	return logging.WithComponent(ctx, svc.ServiceName())
}
