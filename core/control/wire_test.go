package control

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/strategy"
)

func TestScheduleMessageNumericCodes(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		RunID:     "run",
		CreatedAt: start,
		Decisions: []strategy.Decision{{
			Slot: 0, Start: start, Duration: 15 * time.Minute,
			Strategy: strategy.StrategyProGrid, Restrictions: strategy.RestrictBatteryToGrid,
			FeedIn: strategy.FeedInBlocked, SoCTargetWh: 2500,
		}},
	}
	data, err := json.Marshal(s.Message("m1"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "m1", raw["message_id"])
	assert.Equal(t, float64(start.UnixMilli()), raw["timestamp"])
	slots := raw["slots"].([]any)
	require.Len(t, slots, 1)
	slot := slots[0].(map[string]any)
	assert.Equal(t, 3.0, slot["strategy"])
	assert.Equal(t, 1.0, slot["restrictions"])
	assert.Equal(t, 0.0, slot["feed_in"])
	assert.Equal(t, 900.0, slot["duration"])
	assert.Equal(t, float64(start.Unix()), slot["start"])
	assert.Equal(t, 2500.0, slot["soc_target_wh"])
}
