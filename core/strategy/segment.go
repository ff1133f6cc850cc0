package strategy

import (
	"math"

	"github.com/kilianp07/dessplan/core/model"
)

const (
	// SegmentEpsilonWh is how close SoC must be to a limit to count as touching it.
	SegmentEpsilonWh = 20.0
	// FlowEpsilonW is the magnitude below which a flow is treated as absent.
	FlowEpsilonW = 1.0
)

// Segment is an inclusive range of slot indices. Every segment but possibly
// the last ends on a slot whose SoC touches the min or max limit.
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of slots in the segment.
func (s Segment) Len() int { return s.End - s.Start + 1 }

type limits struct {
	minWh, maxWh  float64
	maxDischargeW float64
}

func newLimits(p model.StaticParameters) limits {
	p = p.Normalize()
	return limits{minWh: p.MinSoCWh(), maxWh: p.MaxSoCWh(), maxDischargeW: p.MaxDischargeW}
}

func (l limits) atMin(f model.SolvedFlow) bool {
	return math.Abs(f.SoCWh-l.minWh) <= SegmentEpsilonWh
}

func (l limits) onBoundary(f model.SolvedFlow) bool {
	return l.atMin(f) || math.Abs(f.SoCWh-l.maxWh) <= SegmentEpsilonWh
}

// atDischargeCeiling reports whether the battery already delivers all it can.
func (l limits) atDischargeCeiling(f model.SolvedFlow) bool {
	return f.BatteryToLoad+f.BatteryToGrid >= l.maxDischargeW-FlowEpsilonW
}

// Segments partitions the flows into runs delimited by SoC boundary touches.
func Segments(flows []model.SolvedFlow, p model.StaticParameters) []Segment {
	return segments(flows, newLimits(p))
}

func segments(flows []model.SolvedFlow, l limits) []Segment {
	var out []Segment
	start := 0
	for i, f := range flows {
		if l.onBoundary(f) {
			out = append(out, Segment{Start: start, End: i})
			start = i + 1
		}
	}
	if start < len(flows) {
		out = append(out, Segment{Start: start, End: len(flows) - 1})
	}
	return out
}

// SegmentDiagnostics summarises the prices at which flows were chosen
// inside one segment. A nil field means no such flow occurred.
type SegmentDiagnostics struct {
	Segment
	// GridUsageTippingPoint is the highest import price at which the load
	// drew from the grid while the battery still had discharge headroom.
	GridUsageTippingPoint *float64 `json:"grid_usage_tipping_point"`
	// GridToBatteryTippingPoint is the highest import price with grid charging.
	GridToBatteryTippingPoint *float64 `json:"grid_to_battery_tipping_point"`
	// BatteryToGridTippingPoint is the lowest export price with battery export.
	BatteryToGridTippingPoint *float64 `json:"battery_to_grid_tipping_point"`
}

// diagnose folds over the slots of one segment.
func diagnose(seg Segment, flows []model.SolvedFlow, l limits) SegmentDiagnostics {
	d := SegmentDiagnostics{Segment: seg}
	for _, f := range flows[seg.Start : seg.End+1] {
		if active(f.GridToLoad) && !l.atDischargeCeiling(f) {
			d.GridUsageTippingPoint = maxPtr(d.GridUsageTippingPoint, f.ImportPrice)
		}
		if active(f.GridToBattery) {
			d.GridToBatteryTippingPoint = maxPtr(d.GridToBatteryTippingPoint, f.ImportPrice)
		}
		if active(f.BatteryToGrid) {
			d.BatteryToGridTippingPoint = minPtr(d.BatteryToGridTippingPoint, f.ExportPrice)
		}
	}
	return d
}

func active(w float64) bool { return w >= FlowEpsilonW }

func maxPtr(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}

func minPtr(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}
