package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dessplan/core/model"
)

func TestSegmentsPartition(t *testing.T) {
	p := testParams()
	l := newLimits(p)
	rng := rand.New(rand.NewSource(7))
	levels := []float64{1000, 1015, 3000, 5000, 8990, 9000, 7000}

	for n := 0; n < 40; n++ {
		flows := make([]model.SolvedFlow, n)
		for i := range flows {
			flows[i] = slot(i, levels[rng.Intn(len(levels))])
		}
		segs := Segments(flows, p)

		next := 0
		for i, s := range segs {
			require.Equal(t, next, s.Start, "gap or overlap before segment %d", i)
			require.GreaterOrEqual(t, s.End, s.Start)
			if i < len(segs)-1 {
				assert.True(t, l.onBoundary(flows[s.End]), "segment %d must end on a boundary", i)
			}
			for j := s.Start; j < s.End; j++ {
				assert.False(t, l.onBoundary(flows[j]), "boundary inside segment %d at %d", i, j)
			}
			next = s.End + 1
		}
		assert.Equal(t, n, next)
	}
}

func TestSegmentsTrailingOpen(t *testing.T) {
	flows := []model.SolvedFlow{slot(0, 5000), slot(1, 9000), slot(2, 5000), slot(3, 4000)}
	segs := Segments(flows, testParams())
	assert.Equal(t, []Segment{{Start: 0, End: 1}, {Start: 2, End: 3}}, segs)
	assert.Equal(t, 2, segs[1].Len())
}

func TestDiagnoseExtremes(t *testing.T) {
	flows := []model.SolvedFlow{slot(0, 5000), slot(1, 5000), slot(2, 5000)}
	flows[0].GridToBattery, flows[0].ImportPrice = 500, 8
	flows[1].GridToBattery, flows[1].ImportPrice = 500, 11
	flows[1].BatteryToGrid, flows[1].ExportPrice = 500, 40
	flows[2].BatteryToGrid, flows[2].ExportPrice = 500, 35

	d := diagnose(Segment{Start: 0, End: 2}, flows, newLimits(testParams()))
	require.NotNil(t, d.GridToBatteryTippingPoint)
	require.NotNil(t, d.BatteryToGridTippingPoint)
	assert.Equal(t, 11.0, *d.GridToBatteryTippingPoint)
	assert.Equal(t, 35.0, *d.BatteryToGridTippingPoint)
	assert.Nil(t, d.GridUsageTippingPoint)
}

func TestCodesText(t *testing.T) {
	b, err := StrategyProGrid.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "pro_grid", string(b))

	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte(" Self_Consumption ")))
	assert.Equal(t, StrategySelfConsumption, s)

	_, err = ParseRestrictions("sometimes")
	assert.Error(t, err)
	_, err = Restrictions(7).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "FeedIn(4)", FeedIn(4).String())

	r, err := ParseRestrictions("grid_to_battery_blocked")
	require.NoError(t, err)
	assert.Equal(t, 2, int(r))
	f, err := ParseFeedIn("allowed")
	require.NoError(t, err)
	assert.Equal(t, FeedInAllowed, f)
}
