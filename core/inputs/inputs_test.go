package inputs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/model"
)

const yamlDoc = `start: "2024-05-01T00:00:00Z"
slot_minutes: 15
load_w: [500, 600, 700]
pv_w: [0, 100]
import_price: [10, 20, 30, 40]
export_price: [5, 5, 5]
`

func TestDecodeYAMLTruncates(t *testing.T) {
	in, err := DecodeInputs(strings.NewReader(yamlDoc), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, in.Series.Len())
	assert.Equal(t, []float64{10, 20}, in.Series.ImportPrice)
	assert.Equal(t, 15*time.Minute, in.Timing.SlotDuration)

	times, err := in.Timing.SlotTimes(in.Series.Len())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 15, 0, 0, time.UTC), times[1])
}

func TestDecodeJSONTimestamps(t *testing.T) {
	doc := `{"timestamps":["2024-05-01T00:00:00Z","2024-05-01T01:00:00Z"],
	"load_w":[1,2],"pv_w":[0,0],"import_price":[1,1],"export_price":[0,0]}`
	in, err := DecodeInputs(strings.NewReader(doc), "json")
	require.NoError(t, err)
	require.Len(t, in.Timing.Timestamps, 2)
	times, err := in.Timing.SlotTimes(2)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, times[1].Sub(times[0]))
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeInputs(strings.NewReader("load_w: [1]\n"), "yaml")
	assert.True(t, errors.Is(err, model.ErrMissingSeries))

	_, err = DecodeInputs(strings.NewReader(`{"load_w":[],"pv_w":[],"import_price":[],"export_price":[]}`), "json")
	assert.True(t, errors.Is(err, model.ErrEmptyHorizon))

	_, err = DecodeInputs(strings.NewReader(yamlDoc), "toml")
	assert.Error(t, err)

	_, err = DecodeInputs(strings.NewReader(strings.Replace(yamlDoc, "2024-05-01T00:00:00Z", "tomorrow", 1)), "yaml")
	assert.Error(t, err)
}

func TestLoadInputsAndConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	in, err := LoadInputs(path)
	require.NoError(t, err)

	cfg, err := in.Config(model.StaticParameters{BatteryCapacityWh: 1000})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Params.SlotDuration)
	require.NoError(t, cfg.Validate())

	in.Timing.SlotDuration = 0
	cfg, err = in.Config(model.StaticParameters{BatteryCapacityWh: 1000, SlotDuration: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Timing.SlotDuration)

	_, err = LoadInputs(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigTakesSlotLengthFromInputs(t *testing.T) {
	hourly := strings.Replace(yamlDoc, "slot_minutes: 15", "slot_minutes: 60", 1)
	in, err := DecodeInputs(strings.NewReader(hourly), "yaml")
	require.NoError(t, err)
	cfg, err := in.Config(model.StaticParameters{BatteryCapacityWh: 1000})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Params.SlotDuration)
	assert.Equal(t, time.Hour, cfg.Timing.SlotDuration)
	assert.Equal(t, 1.0, cfg.Params.SlotHours())

	// matching explicit configuration is accepted
	_, err = in.Config(model.StaticParameters{BatteryCapacityWh: 1000, SlotDuration: time.Hour})
	require.NoError(t, err)

	_, err = in.Config(model.StaticParameters{BatteryCapacityWh: 1000, SlotDuration: 15 * time.Minute})
	assert.True(t, errors.Is(err, model.ErrSlotMismatch))
}

func TestConfigTakesSlotLengthFromTimestamps(t *testing.T) {
	doc := `{"timestamps":["2024-05-01T00:00:00Z","2024-05-01T01:00:00Z","2024-05-01T02:00:00Z"],
	"load_w":[1,2,3],"pv_w":[0,0,0],"import_price":[1,1,1],"export_price":[0,0,0]}`
	in, err := DecodeInputs(strings.NewReader(doc), "json")
	require.NoError(t, err)
	cfg, err := in.Config(model.StaticParameters{BatteryCapacityWh: 1000})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Params.SlotDuration)

	_, err = in.Config(model.StaticParameters{BatteryCapacityWh: 1000, SlotDuration: 30 * time.Minute})
	assert.True(t, errors.Is(err, model.ErrSlotMismatch))

	uneven := strings.Replace(doc, "02:00:00Z", "03:00:00Z", 1)
	in, err = DecodeInputs(strings.NewReader(uneven), "json")
	require.NoError(t, err)
	_, err = in.Config(model.StaticParameters{BatteryCapacityWh: 1000})
	assert.True(t, errors.Is(err, model.ErrSlotMismatch))

	backwards := strings.Replace(doc, "01:00:00Z", "00:00:00Z", 1)
	_, err = DecodeInputs(strings.NewReader(backwards), "json")
	assert.Error(t, err)
}
