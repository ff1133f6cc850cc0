// Package decoder rebuilds per-slot physical flows from a solver's named
// primal solution.
package decoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/solver"
)

// SnapEpsilon is the magnitude below which a value decodes to exactly zero.
const SnapEpsilon = 1e-9

type bucket int

const (
	bucketSoC bucket = bucket(model.BatteryToGrid) + 1 + iota
	bucketShortfall
	bucketCount
)

type prefix struct {
	name   string
	bucket bucket
}

// prefixes is ordered so that a longer prefix is always tried before any
// prefix it starts with.
var prefixes = []prefix{
	{model.ShortfallVar + "_", bucketShortfall},
	{model.GridToBattery.String() + "_", bucket(model.GridToBattery)},
	{model.BatteryToLoad.String() + "_", bucket(model.BatteryToLoad)},
	{model.BatteryToGrid.String() + "_", bucket(model.BatteryToGrid)},
	{model.PVToBattery.String() + "_", bucket(model.PVToBattery)},
	{model.GridToLoad.String() + "_", bucket(model.GridToLoad)},
	{model.PVToLoad.String() + "_", bucket(model.PVToLoad)},
	{model.PVToGrid.String() + "_", bucket(model.PVToGrid)},
	{model.SoCVar + "_", bucketSoC},
	// older four-variable naming
	{"bat_discharge_", bucket(model.BatteryToLoad)},
	{"grid_import_", bucket(model.GridToLoad)},
	{"grid_export_", bucket(model.PVToGrid)},
	{"bat_charge_", bucket(model.GridToBattery)},
}

// Stats counts the columns that did not map onto a slot.
type Stats struct {
	Columns    int
	Unmatched  int
	OutOfRange int
}

// Decode maps the solver columns onto the horizon described by cfg. Columns
// with an unknown name or a slot outside the horizon are ignored.
func Decode(res solver.Result, cfg model.Config) ([]model.SolvedFlow, error) {
	flows, _, err := DecodeWithStats(res, cfg)
	return flows, err
}

// DecodeWithStats is Decode that also reports how many columns were dropped.
func DecodeWithStats(res solver.Result, cfg model.Config) ([]model.SolvedFlow, Stats, error) {
	var st Stats
	if err := cfg.Series.Validate(); err != nil {
		return nil, st, fmt.Errorf("decode: %w", err)
	}
	n := cfg.Series.Len()
	timing := cfg.Timing
	if timing.SlotDuration <= 0 {
		timing.SlotDuration = cfg.Params.Normalize().SlotDuration
	}
	times, err := timing.SlotTimes(n)
	if err != nil {
		return nil, st, fmt.Errorf("decode: %w", err)
	}

	acc := make([][bucketCount]float64, n)
	if res.Columns != nil {
		res.Columns.Each(func(name string, value float64) {
			st.Columns++
			b, slot, ok := classify(name)
			if !ok {
				st.Unmatched++
				return
			}
			if slot < 0 || slot >= n {
				st.OutOfRange++
				return
			}
			acc[slot][b] += value
		})
	}

	capacity := cfg.Params.BatteryCapacityWh
	out := make([]model.SolvedFlow, n)
	for t := range out {
		v := func(b bucket) float64 { return clean(acc[t][b]) }
		f := model.SolvedFlow{
			Slot:          t,
			Time:          times[t],
			GridToLoad:    v(bucket(model.GridToLoad)),
			GridToBattery: v(bucket(model.GridToBattery)),
			PVToLoad:      v(bucket(model.PVToLoad)),
			PVToBattery:   v(bucket(model.PVToBattery)),
			PVToGrid:      v(bucket(model.PVToGrid)),
			BatteryToLoad: v(bucket(model.BatteryToLoad)),
			BatteryToGrid: v(bucket(model.BatteryToGrid)),
			SoCWh:         v(bucketSoC),
			LoadW:         cfg.Series.LoadW[t],
			PVW:           cfg.Series.PVW[t],
			ImportPrice:   cfg.Series.ImportPrice[t],
			ExportPrice:   cfg.Series.ExportPrice[t],
		}
		f.GridImport = round3(f.GridToLoad + f.GridToBattery)
		f.GridExport = round3(f.PVToGrid + f.BatteryToGrid)
		if capacity > 0 {
			f.SoCPercent = round3(f.SoCWh / capacity * 100)
		}
		out[t] = f
	}
	return out, st, nil
}

// classify returns the bucket and slot of a column name. The slot is the
// unsigned decimal after the final underscore.
func classify(name string) (bucket, int, bool) {
	i := strings.LastIndexByte(name, '_')
	if i < 0 || !digits(name[i+1:]) {
		return 0, 0, false
	}
	slot, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, 0, false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p.name) {
			return p.bucket, slot, true
		}
	}
	return 0, 0, false
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func clean(v float64) float64 {
	if math.Abs(v) < SnapEpsilon {
		return 0
	}
	return round3(v)
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}
