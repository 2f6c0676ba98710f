package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/infrastructure/persistence/sqlite"
	"github.com/pygillier/nightswitch/internal/logging"
)

func testCtx() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

func TestStateRepository_SaveAndLoad(t *testing.T) {
	ctx := testCtx()
	dbPath := filepath.Join(t.TempDir(), "nightswitch.db")

	db, err := sqlite.NewConnection(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewStateRepository(db)

	// Fresh database has no state yet.
	loaded, err := repo.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	state := entity.DefaultAppState()
	state.CurrentTheme = entity.VariantDark
	state.SetMode(entity.ModeSchedule)
	state.Schedule = entity.ScheduleConfig{
		DarkAt:  entity.MustTimeOfDay("20:00"),
		LightAt: entity.MustTimeOfDay("06:30"),
	}
	state.LastCoordinate = &entity.ResolvedCoordinate{
		Coordinate: entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522},
		Source:     "ipapi.co",
		City:       "Paris",
		ResolvedAt: time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
	state.UpdatedAt = time.Date(2025, 6, 10, 8, 0, 1, 0, time.UTC)
	require.NoError(t, repo.SaveState(ctx, state))

	loaded, err = repo.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entity.ModeSchedule, loaded.Mode)
	assert.Equal(t, entity.VariantDark, loaded.CurrentTheme)
	assert.True(t, loaded.ScheduleEnabled)
	assert.False(t, loaded.LocationEnabled)
	assert.Equal(t, "20:00", loaded.Schedule.DarkAt.String())
	assert.Equal(t, "06:30", loaded.Schedule.LightAt.String())
	require.NotNil(t, loaded.LastCoordinate)
	assert.Equal(t, "Paris", loaded.LastCoordinate.City)

	// A second save replaces the single record.
	state.SetMode(entity.ModeManual)
	state.CurrentTheme = entity.VariantLight
	require.NoError(t, repo.SaveState(ctx, state))

	loaded, err = repo.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entity.ModeManual, loaded.Mode)
	assert.Equal(t, entity.VariantLight, loaded.CurrentTheme)
}

func TestStateRepository_SaveNil(t *testing.T) {
	ctx := testCtx()
	db, err := sqlite.NewConnection(ctx, filepath.Join(t.TempDir(), "nightswitch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewStateRepository(db)
	err = repo.SaveState(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrPersistence)
}

func TestStateRepository_CorruptedRecord(t *testing.T) {
	ctx := testCtx()
	db, err := sqlite.NewConnection(ctx, filepath.Join(t.TempDir(), "nightswitch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx,
		`INSERT INTO app_state (id, state_json, version, updated_at) VALUES (1, 'not json', 1, ?)`,
		time.Now().UTC())
	require.NoError(t, err)

	repo := sqlite.NewStateRepository(db)
	_, err = repo.LoadState(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrPersistence)
}
