package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/model"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// 10 kWh battery, limits at 1000 Wh and 9000 Wh.
func testParams() model.StaticParameters {
	return model.StaticParameters{
		SlotDuration:      15 * time.Minute,
		BatteryCapacityWh: 10000,
		MinSoCPercent:     10,
		MaxSoCPercent:     90,
		MaxChargeW:        3000,
		MaxDischargeW:     3000,
	}
}

func slot(i int, soc float64) model.SolvedFlow {
	return model.SolvedFlow{Slot: i, Time: t0.Add(time.Duration(i) * 15 * time.Minute), SoCWh: soc, ExportPrice: 5}
}

func TestMapGridChargeIsProBattery(t *testing.T) {
	f := slot(0, 5000)
	f.GridToBattery = 1000
	f.ImportPrice = 12

	plan := Map([]model.SolvedFlow{f}, testParams())
	require.Len(t, plan.Decisions, 1)
	d := plan.Decisions[0]
	assert.Equal(t, StrategyProBattery, d.Strategy)
	assert.Equal(t, RestrictBatteryToGrid, d.Restrictions)
	assert.Equal(t, FeedInAllowed, d.FeedIn)
	assert.Equal(t, 5000.0, d.SoCTargetWh)
	assert.Equal(t, 15*time.Minute, d.Duration)
	assert.Equal(t, t0, d.Start)
	require.NotNil(t, plan.Diagnostics.GridToBatteryTippingPoint)
	assert.Equal(t, 12.0, *plan.Diagnostics.GridToBatteryTippingPoint)
	assert.Nil(t, plan.Diagnostics.BatteryToGridTippingPoint)
}

func TestMapNegativeExportBlocksFeedIn(t *testing.T) {
	cases := []model.SolvedFlow{slot(0, 5000), slot(1, 5000), slot(2, 5000)}
	cases[1].PVToGrid = 800
	cases[1].PVW = 800
	cases[2].BatteryToGrid = 500
	for i := range cases {
		cases[i].ExportPrice = -2
	}
	plan := Map(cases, testParams())
	for _, d := range plan.Decisions {
		assert.Equal(t, FeedInBlocked, d.FeedIn, "slot %d", d.Slot)
	}
}

func TestMapPriceAgainstSegmentTippingPoint(t *testing.T) {
	run := func(price float64) Strategy {
		a := slot(0, 5000)
		a.GridToLoad = 500
		a.LoadW = 500
		a.ImportPrice = 50
		b := slot(1, 5000)
		b.ImportPrice = price
		plan := Map([]model.SolvedFlow{a, b}, testParams())
		require.Len(t, plan.Diagnostics.Segments, 1)
		return plan.Decisions[1].Strategy
	}
	assert.Equal(t, StrategyProBattery, run(10))
	assert.Equal(t, StrategySelfConsumption, run(90))
	assert.Equal(t, StrategyProBattery, run(50))
}

func TestMapTippingPointScopedToSegment(t *testing.T) {
	// slot 0 ends a segment at min SoC; slot 2 uses the grid at a high price
	// in the next segment and must not influence slot 1's own segment.
	a := slot(0, 1000)
	b := slot(1, 5000)
	b.ImportPrice = 40
	c := slot(2, 5000)
	c.GridToLoad = 300
	c.LoadW = 300
	c.ImportPrice = 60

	plan := Map([]model.SolvedFlow{a, b, c}, testParams())
	require.Len(t, plan.Diagnostics.Segments, 2)
	assert.Equal(t, StrategyProBattery, plan.Decisions[1].Strategy)
	assert.Nil(t, plan.Diagnostics.Segments[0].GridUsageTippingPoint)
	require.NotNil(t, plan.Diagnostics.Segments[1].GridUsageTippingPoint)
	assert.Equal(t, 60.0, *plan.Diagnostics.Segments[1].GridUsageTippingPoint)

	// the same slot moved into a segment without grid usage falls back
	plan = Map([]model.SolvedFlow{b, a, c}, testParams())
	assert.Equal(t, StrategySelfConsumption, plan.Decisions[0].Strategy)
}

func TestMapDeficitBranches(t *testing.T) {
	p := testParams()
	tests := []struct {
		name string
		edit func(*model.SolvedFlow)
		want Strategy
	}{
		{"battery only", func(f *model.SolvedFlow) { f.BatteryToLoad = 400 }, StrategySelfConsumption},
		{"grid only", func(f *model.SolvedFlow) { f.GridToLoad = 400 }, StrategyProBattery},
		{"grid only at min soc", func(f *model.SolvedFlow) { f.GridToLoad = 400; f.SoCWh = 1010 }, StrategySelfConsumption},
		{"grid and battery", func(f *model.SolvedFlow) { f.GridToLoad = 400; f.BatteryToLoad = 3000 }, StrategyProBattery},
		{"battery export", func(f *model.SolvedFlow) { f.BatteryToGrid = 400 }, StrategyProGrid},
		{"pv export surplus", func(f *model.SolvedFlow) { f.PVW = 900; f.PVToLoad = 400; f.PVToGrid = 500 }, StrategyProGrid},
		{"idle surplus", func(f *model.SolvedFlow) { f.PVW = 500; f.PVToLoad = 400 }, StrategyTargetSoC},
		{"sub-watt flows ignored", func(f *model.SolvedFlow) { f.PVW = 0.5; f.PVToLoad = 0.5; f.GridToBattery = 0.9 }, StrategySelfConsumption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := slot(0, 5000)
			f.LoadW = 400
			tt.edit(&f)
			plan := Map([]model.SolvedFlow{f}, p)
			assert.Equal(t, tt.want, plan.Decisions[0].Strategy)
		})
	}
}

func TestMapPVToBatteryUsesPriceTest(t *testing.T) {
	a := slot(0, 5000)
	a.GridToLoad = 200
	a.LoadW = 200
	a.ImportPrice = 30
	b := slot(1, 5000)
	b.PVW = 2000
	b.LoadW = 300
	b.PVToLoad = 300
	b.PVToBattery = 1700
	b.ImportPrice = 25

	plan := Map([]model.SolvedFlow{a, b}, testParams())
	assert.Equal(t, StrategyProBattery, plan.Decisions[1].Strategy)

	b.ImportPrice = 35
	plan = Map([]model.SolvedFlow{a, b}, testParams())
	assert.Equal(t, StrategySelfConsumption, plan.Decisions[1].Strategy)
}

func TestMapDischargeCeilingExcludedFromTippingPoint(t *testing.T) {
	a := slot(0, 5000)
	a.LoadW = 3500
	a.GridToLoad = 500
	a.BatteryToLoad = 3000
	a.ImportPrice = 70

	plan := Map([]model.SolvedFlow{a}, testParams())
	assert.Nil(t, plan.Diagnostics.Segments[0].GridUsageTippingPoint)
}

func TestMapRestrictionConsistency(t *testing.T) {
	var flows []model.SolvedFlow
	for i := 0; i < 16; i++ {
		f := slot(i, 2000+float64(i)*300)
		if i&1 != 0 {
			f.GridToBattery = 800
		}
		if i&2 != 0 {
			f.BatteryToGrid = 600
		}
		if i&4 != 0 {
			f.GridToLoad = 100
			f.LoadW = 100
		}
		if i&8 != 0 {
			f.ExportPrice = -1
		}
		flows = append(flows, f)
	}
	plan := Map(flows, testParams())
	require.Len(t, plan.Decisions, len(flows))
	for i, d := range plan.Decisions {
		f := flows[i]
		require.NoError(t, d.Validate())
		if d.Restrictions == RestrictNone {
			assert.True(t, active(f.GridToBattery) && active(f.BatteryToGrid))
		}
		if active(f.GridToBattery) {
			assert.Equal(t, StrategyProBattery, d.Strategy)
			assert.NotEqual(t, RestrictGridToBattery, d.Restrictions)
			assert.NotEqual(t, RestrictBoth, d.Restrictions)
		}
		assert.Equal(t, f.ExportPrice < 0, d.FeedIn == FeedInBlocked)
	}
}

func TestMapEmpty(t *testing.T) {
	plan := Map(nil, testParams())
	assert.Empty(t, plan.Decisions)
	assert.Empty(t, plan.Diagnostics.Segments)
	assert.Nil(t, plan.Diagnostics.GridToBatteryTippingPoint)
}

func TestDecisionValidate(t *testing.T) {
	d := Decision{Strategy: Strategy(9), Restrictions: RestrictBoth, FeedIn: FeedIn(-1)}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy")
	assert.Contains(t, err.Error(), "feed-in")
}
