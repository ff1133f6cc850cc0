package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/strategy"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func sample() ([]model.SolvedFlow, []strategy.Decision) {
	flows := []model.SolvedFlow{
		{Slot: 0, Time: t0, GridImport: 1000, GridToBattery: 1000},
		{Slot: 1, Time: t0.Add(15 * time.Minute), GridExport: 250.5},
	}
	decisions := []strategy.Decision{
		{Slot: 0, Start: t0, Duration: 15 * time.Minute, Strategy: strategy.StrategyProBattery, Restrictions: strategy.RestrictBatteryToGrid, FeedIn: strategy.FeedInAllowed, SoCTargetWh: 1250},
		{Slot: 1, Start: t0.Add(15 * time.Minute), Duration: 15 * time.Minute, Strategy: strategy.StrategyProGrid, Restrictions: strategy.RestrictGridToBattery, FeedIn: strategy.FeedInBlocked, SoCTargetWh: 1000},
	}
	return flows, decisions
}

func TestWriteCSV(t *testing.T) {
	rows, err := Rows(sample())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	want := "start,duration_s,strategy,restrictions,feed_in,soc_target_wh,grid_import_w,grid_export_w\n" +
		"2024-05-01T00:00:00Z,900,2,1,1,1250,1000,0\n" +
		"2024-05-01T00:15:00Z,900,3,2,0,1000,0,250.5\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteJSONUsesNames(t *testing.T) {
	rows, err := Rows(sample())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rows))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "pro_battery", out[0]["strategy"])
	assert.Equal(t, "blocked", out[1]["feed_in"])
}

func TestRowsLengthMismatch(t *testing.T) {
	flows, decisions := sample()
	_, err := Rows(flows[:1], decisions)
	assert.Error(t, err)
}
