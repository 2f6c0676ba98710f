package entity_test

import (
	"testing"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppState(t *testing.T) {
	s := entity.DefaultAppState()

	assert.Equal(t, entity.ModeManual, s.Mode)
	assert.Equal(t, entity.VariantLight, s.CurrentTheme)
	assert.Equal(t, "19:00", s.Schedule.DarkAt.String())
	assert.Equal(t, "07:00", s.Schedule.LightAt.String())
	assert.True(t, s.Location.AutoDetect)
	assert.Empty(t, s.Normalize(), "defaults must already be consistent")
}

func TestAppStateNormalizeDegradesToManual(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entity.AppState)
	}{
		{"unknown mode", func(s *entity.AppState) { s.Mode = "solar" }},
		{"schedule with equal times", func(s *entity.AppState) {
			s.SetMode(entity.ModeSchedule)
			s.Schedule.LightAt = s.Schedule.DarkAt
		}},
		{"location with bad coordinate", func(s *entity.AppState) {
			s.SetMode(entity.ModeLocation)
			s.Location.Coordinate = &entity.Coordinate{Latitude: 120}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := entity.DefaultAppState()
			s.CurrentTheme = entity.VariantDark
			tt.mutate(s)

			fixes := s.Normalize()

			require.NotEmpty(t, fixes)
			assert.Equal(t, entity.ModeManual, s.Mode)
			assert.Equal(t, entity.VariantDark, s.CurrentTheme, "last known theme kept")
			assert.False(t, s.ScheduleEnabled)
			assert.False(t, s.LocationEnabled)
			assert.NoError(t, s.Schedule.Validate())
			assert.NoError(t, s.Location.Validate())
		})
	}
}

func TestAppStateNormalizeResetsUnknownTheme(t *testing.T) {
	s := entity.DefaultAppState()
	s.CurrentTheme = "sepia"

	fixes := s.Normalize()

	require.NotEmpty(t, fixes)
	assert.Equal(t, entity.VariantLight, s.CurrentTheme)
}

func TestAppStateSetModeAlignsFlags(t *testing.T) {
	s := entity.DefaultAppState()

	s.SetMode(entity.ModeLocation)
	assert.True(t, s.LocationEnabled)
	assert.False(t, s.ScheduleEnabled)

	s.SetMode(entity.ModeSchedule)
	assert.True(t, s.ScheduleEnabled)
	assert.False(t, s.LocationEnabled)

	s.SetMode(entity.ModeManual)
	assert.False(t, s.ScheduleEnabled)
	assert.False(t, s.LocationEnabled)
}

func TestSunTimesElapsedBy(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	st := entity.SunTimes{
		Date:    "2025-06-10",
		Sunrise: time.Date(2025, 6, 10, 3, 50, 0, 0, time.UTC),
		Sunset:  time.Date(2025, 6, 10, 19, 55, 0, 0, time.UTC),
	}

	require.True(t, st.Valid())
	assert.False(t, st.ElapsedBy(time.Date(2025, 6, 10, 23, 59, 0, 0, loc)))
	assert.True(t, st.ElapsedBy(time.Date(2025, 6, 11, 0, 0, 0, 0, loc)))
	assert.True(t, st.ElapsedBy(time.Date(2025, 6, 12, 8, 0, 0, 0, loc)))

	assert.False(t, entity.SunTimes{Date: "2025-06-10"}.Valid())
}
