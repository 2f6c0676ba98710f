package entity_test

import (
	"testing"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   entity.Coordinate
		wantErr bool
	}{
		{"paris", entity.Coordinate{Latitude: 48.8566, Longitude: 2.3522}, false},
		{"poles", entity.Coordinate{Latitude: 90, Longitude: -180}, false},
		{"null island allowed by range", entity.Coordinate{}, false},
		{"latitude too high", entity.Coordinate{Latitude: 90.1}, true},
		{"latitude too low", entity.Coordinate{Latitude: -91}, true},
		{"longitude too high", entity.Coordinate{Longitude: 180.5}, true},
		{"longitude too low", entity.Coordinate{Longitude: -181}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, entity.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCoordinateIsZero(t *testing.T) {
	assert.True(t, entity.Coordinate{}.IsZero())
	assert.False(t, entity.Coordinate{Latitude: 0.0001}.IsZero())
}

func TestScheduleConfigValidate(t *testing.T) {
	cfg := entity.DefaultScheduleConfig()
	require.NoError(t, cfg.Validate())

	cfg.LightAt = cfg.DarkAt
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)
}

func TestVariantOpposite(t *testing.T) {
	assert.Equal(t, entity.VariantLight, entity.VariantDark.Opposite())
	assert.Equal(t, entity.VariantDark, entity.VariantLight.Opposite())
}

func TestParseModeAndVariant(t *testing.T) {
	m, err := entity.ParseMode("schedule")
	require.NoError(t, err)
	assert.Equal(t, entity.ModeSchedule, m)
	assert.True(t, m.IsAutomatic())

	_, err = entity.ParseMode("auto")
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)

	v, err := entity.ParseVariant("dark")
	require.NoError(t, err)
	assert.Equal(t, entity.VariantDark, v)

	_, err = entity.ParseVariant("dim")
	assert.ErrorIs(t, err, entity.ErrInvalidConfig)

	assert.False(t, entity.ModeManual.IsAutomatic())
}
