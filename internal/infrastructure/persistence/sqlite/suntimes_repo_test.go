package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/infrastructure/persistence/sqlite"
)

func newSunTimesRepo(t *testing.T) repository.SunTimesRepository {
	t.Helper()
	ctx := testCtx()
	db, err := sqlite.NewConnection(ctx, filepath.Join(t.TempDir(), "nightswitch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewSunTimesRepository(db)
}

func parisTimes(date string, sunriseHour, sunsetHour int) entity.SunTimes {
	day, _ := time.Parse(entity.SunDateFormat, date)
	return entity.SunTimes{
		Coordinate: entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522},
		Date:       date,
		Sunrise:    time.Date(day.Year(), day.Month(), day.Day(), sunriseHour, 49, 0, 0, time.UTC),
		Sunset:     time.Date(day.Year(), day.Month(), day.Day(), sunsetHour, 52, 0, 0, time.UTC),
		Source:     "sunrisesunset.io",
	}
}

func TestSunTimesRepository_SaveAndFind(t *testing.T) {
	ctx := testCtx()
	repo := newSunTimesRepo(t)

	entry := parisTimes("2025-06-10", 3, 19)
	require.NoError(t, repo.Save(ctx, entry))

	found, err := repo.Find(ctx, entry.Coordinate, "2025-06-10")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Sunrise.Equal(entry.Sunrise), "sunrise %v != %v", found.Sunrise, entry.Sunrise)
	assert.True(t, found.Sunset.Equal(entry.Sunset))
	assert.Equal(t, "sunrisesunset.io", found.Source)
	assert.Equal(t, "2025-06-10", found.Date)

	// Different date misses.
	miss, err := repo.Find(ctx, entry.Coordinate, "2025-06-11")
	require.NoError(t, err)
	assert.Nil(t, miss)

	// Different coordinate misses.
	miss, err = repo.Find(ctx, entity.Coordinate{Latitude: 59.91, Longitude: 10.75}, "2025-06-10")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestSunTimesRepository_RoundsCoordinateKey(t *testing.T) {
	ctx := testCtx()
	repo := newSunTimesRepo(t)

	entry := parisTimes("2025-06-10", 3, 19)
	entry.Coordinate = entity.Coordinate{Latitude: 48.85661234, Longitude: 2.35219876}
	require.NoError(t, repo.Save(ctx, entry))

	// A re-resolved coordinate differing past the 4th decimal hits the
	// same cache row.
	found, err := repo.Find(ctx, entity.Coordinate{Latitude: 48.85664, Longitude: 2.35224}, "2025-06-10")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Sunrise.Equal(entry.Sunrise))
}

func TestSunTimesRepository_UpsertReplaces(t *testing.T) {
	ctx := testCtx()
	repo := newSunTimesRepo(t)

	entry := parisTimes("2025-06-10", 3, 19)
	require.NoError(t, repo.Save(ctx, entry))

	refreshed := entry
	refreshed.Sunrise = entry.Sunrise.Add(2 * time.Minute)
	refreshed.Source = "local"
	require.NoError(t, repo.Save(ctx, refreshed))

	found, err := repo.Find(ctx, entry.Coordinate, "2025-06-10")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Sunrise.Equal(refreshed.Sunrise))
	assert.Equal(t, "local", found.Source)
}

func TestSunTimesRepository_RejectsInvalidEntry(t *testing.T) {
	ctx := testCtx()
	repo := newSunTimesRepo(t)

	entry := parisTimes("2025-06-10", 19, 3) // sunset before sunrise
	err := repo.Save(ctx, entry)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrPersistence)

	err = repo.Save(ctx, entity.SunTimes{})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrPersistence)
}

func TestSunTimesRepository_PurgeElapsed(t *testing.T) {
	ctx := testCtx()
	repo := newSunTimesRepo(t)

	require.NoError(t, repo.Save(ctx, parisTimes("2025-06-08", 3, 19)))
	require.NoError(t, repo.Save(ctx, parisTimes("2025-06-09", 3, 19)))
	require.NoError(t, repo.Save(ctx, parisTimes("2025-06-10", 3, 19)))

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	removed, err := repo.PurgeElapsed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	// Today's entry survives.
	found, err := repo.Find(ctx, entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522}, "2025-06-10")
	require.NoError(t, err)
	assert.NotNil(t, found)

	gone, err := repo.Find(ctx, entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522}, "2025-06-09")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Purging again removes nothing.
	removed, err = repo.PurgeElapsed(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
