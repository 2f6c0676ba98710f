package entity_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    entity.TimeOfDay
		wantErr bool
	}{
		{"evening", "19:00", entity.TimeOfDay{Hour: 19}, false},
		{"morning", "07:30", entity.TimeOfDay{Hour: 7, Minute: 30}, false},
		{"single digit hour", "7:05", entity.TimeOfDay{Hour: 7, Minute: 5}, false},
		{"midnight", "00:00", entity.TimeOfDay{}, false},
		{"last minute", "23:59", entity.TimeOfDay{Hour: 23, Minute: 59}, false},
		{"hour too large", "24:00", entity.TimeOfDay{}, true},
		{"minute too large", "12:60", entity.TimeOfDay{}, true},
		{"single digit minute", "12:5", entity.TimeOfDay{}, true},
		{"negative hour", "-1:00", entity.TimeOfDay{}, true},
		{"missing colon", "1900", entity.TimeOfDay{}, true},
		{"empty", "", entity.TimeOfDay{}, true},
		{"garbage", "dusk", entity.TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entity.ParseTimeOfDay(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, entity.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayNextAfter(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, loc)

	tod := entity.MustTimeOfDay("20:00")
	next := tod.NextAfter(now)
	assert.Equal(t, time.Date(2025, 3, 10, 20, 0, 0, 0, loc), next)

	// Already past today: rolls to tomorrow.
	tod = entity.MustTimeOfDay("07:00")
	next = tod.NextAfter(now)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, loc), next)

	// Exactly now: strictly after means tomorrow.
	tod = entity.MustTimeOfDay("18:00")
	next = tod.NextAfter(now)
	assert.Equal(t, time.Date(2025, 3, 11, 18, 0, 0, 0, loc), next)
	assert.True(t, next.After(now))
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(entity.TimeOfDay{Hour: 19, Minute: 5})
	require.NoError(t, err)
	assert.Equal(t, `"19:05"`, string(data))

	var tod entity.TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"07:00"`), &tod))
	assert.Equal(t, entity.TimeOfDay{Hour: 7}, tod)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &tod))
}
