package model

import "time"

// FlowKind identifies one of the seven directed power flows of a slot.
type FlowKind int

const (
	GridToLoad FlowKind = iota
	GridToBattery
	PVToLoad
	PVToBattery
	PVToGrid
	BatteryToLoad
	BatteryToGrid
)

// FlowKinds lists every flow kind in model order.
var FlowKinds = []FlowKind{GridToLoad, GridToBattery, PVToLoad, PVToBattery, PVToGrid, BatteryToLoad, BatteryToGrid}

// Variable name prefixes shared by the model builder and the decoder.
const (
	SoCVar       = "soc"
	ShortfallVar = "soc_shortfall"
)

// String returns the variable prefix of the flow.
func (k FlowKind) String() string {
	switch k {
	case GridToLoad:
		return "grid_to_load"
	case GridToBattery:
		return "grid_to_battery"
	case PVToLoad:
		return "pv_to_load"
	case PVToBattery:
		return "pv_to_battery"
	case PVToGrid:
		return "pv_to_grid"
	case BatteryToLoad:
		return "battery_to_load"
	case BatteryToGrid:
		return "battery_to_grid"
	default:
		return "unknown"
	}
}

// SolvedFlow is the decoded physical dispatch of one slot.
type SolvedFlow struct {
	Slot          int       `json:"slot"`
	Time          time.Time `json:"time"`
	GridToLoad    float64   `json:"grid_to_load"`
	GridToBattery float64   `json:"grid_to_battery"`
	PVToLoad      float64   `json:"pv_to_load"`
	PVToBattery   float64   `json:"pv_to_battery"`
	PVToGrid      float64   `json:"pv_to_grid"`
	BatteryToLoad float64   `json:"battery_to_load"`
	BatteryToGrid float64   `json:"battery_to_grid"`
	GridImport    float64   `json:"grid_import"`
	GridExport    float64   `json:"grid_export"`
	SoCWh         float64   `json:"soc_wh"`
	SoCPercent    float64   `json:"soc_percent"`
	LoadW         float64   `json:"load_w"`
	PVW           float64   `json:"pv_w"`
	ImportPrice   float64   `json:"import_price"`
	ExportPrice   float64   `json:"export_price"`
}

// Flow returns the magnitude of the given flow kind.
func (f SolvedFlow) Flow(k FlowKind) float64 {
	switch k {
	case GridToLoad:
		return f.GridToLoad
	case GridToBattery:
		return f.GridToBattery
	case PVToLoad:
		return f.PVToLoad
	case PVToBattery:
		return f.PVToBattery
	case PVToGrid:
		return f.PVToGrid
	case BatteryToLoad:
		return f.BatteryToLoad
	case BatteryToGrid:
		return f.BatteryToGrid
	default:
		return 0
	}
}
