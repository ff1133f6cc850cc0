// Package strategy turns solved per-slot flows into the coarse decisions a
// dynamic energy storage system executes.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/dessplan/core/model"
)

// Decision is the per-slot instruction for the inverter.
type Decision struct {
	Slot         int           `json:"slot"`
	Start        time.Time     `json:"start"`
	Duration     time.Duration `json:"duration"`
	Strategy     Strategy      `json:"strategy"`
	Restrictions Restrictions  `json:"restrictions"`
	FeedIn       FeedIn        `json:"feed_in"`
	Flags        uint32        `json:"flags"`
	SoCTargetWh  float64       `json:"soc_target_wh"`
}

// Validate rejects decisions carrying undeclared codes.
func (d Decision) Validate() error {
	var errs []error
	if !d.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("slot %d: invalid strategy %d", d.Slot, int(d.Strategy)))
	}
	if !d.Restrictions.IsValid() {
		errs = append(errs, fmt.Errorf("slot %d: invalid restrictions %d", d.Slot, int(d.Restrictions)))
	}
	if !d.FeedIn.IsValid() {
		errs = append(errs, fmt.Errorf("slot %d: invalid feed-in %d", d.Slot, int(d.FeedIn)))
	}
	return errors.Join(errs...)
}

// Diagnostics holds per-segment tipping points and the summary values of
// the first segment.
type Diagnostics struct {
	Segments                  []SegmentDiagnostics `json:"segments"`
	GridToBatteryTippingPoint *float64             `json:"grid_to_battery_tipping_point"`
	BatteryToGridTippingPoint *float64             `json:"battery_to_grid_tipping_point"`
}

// Plan is the mapper output.
type Plan struct {
	Decisions   []Decision  `json:"decisions"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Map classifies every slot. It is deterministic and never fails: malformed
// flows produce target-SoC decisions rather than errors.
func Map(flows []model.SolvedFlow, params model.StaticParameters) Plan {
	l := newLimits(params)
	dur := params.Normalize().SlotDuration

	plan := Plan{Decisions: make([]Decision, 0, len(flows))}
	for _, seg := range segments(flows, l) {
		d := diagnose(seg, flows, l)
		plan.Diagnostics.Segments = append(plan.Diagnostics.Segments, d)
		for i := seg.Start; i <= seg.End; i++ {
			plan.Decisions = append(plan.Decisions, decide(flows[i], d, l, dur))
		}
	}
	if len(plan.Diagnostics.Segments) > 0 {
		first := plan.Diagnostics.Segments[0]
		plan.Diagnostics.GridToBatteryTippingPoint = first.GridToBatteryTippingPoint
		plan.Diagnostics.BatteryToGridTippingPoint = first.BatteryToGridTippingPoint
	}
	return plan
}

func decide(f model.SolvedFlow, d SegmentDiagnostics, l limits, dur time.Duration) Decision {
	g2b := active(f.GridToBattery)
	b2g := active(f.BatteryToGrid)

	out := Decision{
		Slot:         f.Slot,
		Start:        f.Time,
		Duration:     dur,
		Strategy:     classify(f, d, l),
		Restrictions: restrictionsFor(g2b, b2g),
		FeedIn:       FeedInAllowed,
		SoCTargetWh:  f.SoCWh,
	}
	if f.ExportPrice < 0 {
		out.FeedIn = FeedInBlocked
	}
	return out
}

func classify(f model.SolvedFlow, d SegmentDiagnostics, l limits) Strategy {
	switch {
	case active(f.GridToBattery):
		return StrategyProBattery
	case active(f.BatteryToGrid):
		return StrategyProGrid
	}

	pvUsed := active(f.PVToLoad) || active(f.PVToBattery) || active(f.PVToGrid)
	if !pvUsed || f.LoadW > f.PVW {
		bat := active(f.BatteryToLoad)
		grid := active(f.GridToLoad)
		switch {
		case bat && !grid:
			return StrategySelfConsumption
		case grid && !bat:
			// an empty battery has nothing to hold back
			if l.atMin(f) {
				return StrategySelfConsumption
			}
			return StrategyProBattery
		case grid && bat:
			return StrategyProBattery
		default:
			return priceTest(f, d)
		}
	}

	switch {
	case active(f.PVToBattery):
		return priceTest(f, d)
	case active(f.PVToGrid):
		return StrategyProGrid
	}
	return StrategyTargetSoC
}

// priceTest compares the slot import price with the segment's grid usage
// tipping point. Slots at or below it are cheap enough to keep the battery.
func priceTest(f model.SolvedFlow, d SegmentDiagnostics) Strategy {
	if d.GridUsageTippingPoint != nil && f.ImportPrice <= *d.GridUsageTippingPoint {
		return StrategyProBattery
	}
	return StrategySelfConsumption
}

func restrictionsFor(g2b, b2g bool) Restrictions {
	switch {
	case g2b && b2g:
		return RestrictNone
	case g2b:
		return RestrictBatteryToGrid
	case b2g:
		return RestrictGridToBattery
	}
	return RestrictBoth
}
