package model

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSlotDuration is used when no slot duration is configured.
const DefaultSlotDuration = 15 * time.Minute

// TerminalValuation selects how energy left in the battery at the end of the
// horizon is valued.
type TerminalValuation int

const (
	TerminalZero TerminalValuation = iota
	TerminalMinPrice
	TerminalAvgPrice
	TerminalMaxPrice
	TerminalCustomPrice
	terminalValuationCount
)

// String returns the configuration name of the valuation mode.
func (v TerminalValuation) String() string {
	switch v {
	case TerminalZero:
		return "zero"
	case TerminalMinPrice:
		return "min"
	case TerminalAvgPrice:
		return "avg"
	case TerminalMaxPrice:
		return "max"
	case TerminalCustomPrice:
		return "custom"
	default:
		return "unknown"
	}
}

// IsValid reports whether v is one of the declared modes.
func (v TerminalValuation) IsValid() bool {
	return v >= TerminalZero && v < terminalValuationCount
}

// ParseTerminalValuation maps a configuration string to a valuation mode.
// An empty string selects TerminalZero.
func ParseTerminalValuation(s string) (TerminalValuation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return TerminalZero, nil
	case "min", "min_price", "min-price":
		return TerminalMinPrice, nil
	case "avg", "avg_price", "avg-price":
		return TerminalAvgPrice, nil
	case "max", "max_price", "max-price":
		return TerminalMaxPrice, nil
	case "custom", "custom_price", "custom-price":
		return TerminalCustomPrice, nil
	default:
		return TerminalZero, fmt.Errorf("unknown terminal valuation %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v TerminalValuation) MarshalText() ([]byte, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("invalid terminal valuation %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *TerminalValuation) UnmarshalText(b []byte) error {
	parsed, err := ParseTerminalValuation(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// StaticParameters describes the battery, the grid connection and the
// valuation settings of one optimisation run.
type StaticParameters struct {
	SlotDuration               time.Duration
	BatteryCapacityWh          float64
	MinSoCPercent              float64
	MaxSoCPercent              float64
	InitialSoCPercent          float64
	MaxChargeW                 float64
	MaxDischargeW              float64
	MaxGridImportW             float64
	MaxGridExportW             float64
	ChargeEfficiencyPercent    float64
	DischargeEfficiencyPercent float64
	WearCostCentsPerKWh        float64
	TerminalValuation          TerminalValuation
	TerminalCustomPrice        float64
}

// Normalize clamps percentages into [0,100], orders min/max SoC and applies
// defaults for zero slot duration and efficiencies.
func (p StaticParameters) Normalize() StaticParameters {
	if p.SlotDuration <= 0 {
		p.SlotDuration = DefaultSlotDuration
	}
	p.MinSoCPercent = clampPercent(p.MinSoCPercent)
	p.MaxSoCPercent = clampPercent(p.MaxSoCPercent)
	if p.MinSoCPercent > p.MaxSoCPercent {
		p.MinSoCPercent, p.MaxSoCPercent = p.MaxSoCPercent, p.MinSoCPercent
	}
	p.InitialSoCPercent = clampPercent(p.InitialSoCPercent)
	if p.ChargeEfficiencyPercent <= 0 {
		p.ChargeEfficiencyPercent = 100
	}
	if p.DischargeEfficiencyPercent <= 0 {
		p.DischargeEfficiencyPercent = 100
	}
	p.ChargeEfficiencyPercent = clampPercent(p.ChargeEfficiencyPercent)
	p.DischargeEfficiencyPercent = clampPercent(p.DischargeEfficiencyPercent)
	return p
}

// Validate rejects parameters that cannot describe a battery.
func (p StaticParameters) Validate() error {
	if p.BatteryCapacityWh <= 0 {
		return fmt.Errorf("battery capacity must be positive, got %v", p.BatteryCapacityWh)
	}
	for name, v := range map[string]float64{
		"max_charge_w":      p.MaxChargeW,
		"max_discharge_w":   p.MaxDischargeW,
		"max_grid_import_w": p.MaxGridImportW,
		"max_grid_export_w": p.MaxGridExportW,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, v)
		}
	}
	if !p.TerminalValuation.IsValid() {
		return fmt.Errorf("invalid terminal valuation %d", int(p.TerminalValuation))
	}
	return nil
}

// SlotHours returns the slot duration in hours.
func (p StaticParameters) SlotHours() float64 { return p.SlotDuration.Hours() }

// MinSoCWh returns the soft minimum state of charge in Wh.
func (p StaticParameters) MinSoCWh() float64 { return p.BatteryCapacityWh * p.MinSoCPercent / 100 }

// MaxSoCWh returns the maximum state of charge in Wh.
func (p StaticParameters) MaxSoCWh() float64 { return p.BatteryCapacityWh * p.MaxSoCPercent / 100 }

// InitialSoCWh returns the starting state of charge in Wh.
func (p StaticParameters) InitialSoCWh() float64 {
	return p.BatteryCapacityWh * p.InitialSoCPercent / 100
}

// ReferencePrice resolves the terminal valuation mode into the import price
// used to value the final state of charge. ok is false for TerminalZero.
func (p StaticParameters) ReferencePrice(importPrice []float64) (price float64, ok bool) {
	switch p.TerminalValuation {
	case TerminalMinPrice:
		if len(importPrice) == 0 {
			return 0, false
		}
		return floats.Min(importPrice), true
	case TerminalAvgPrice:
		if len(importPrice) == 0 {
			return 0, false
		}
		return stat.Mean(importPrice, nil), true
	case TerminalMaxPrice:
		if len(importPrice) == 0 {
			return 0, false
		}
		return floats.Max(importPrice), true
	case TerminalCustomPrice:
		return p.TerminalCustomPrice, true
	default:
		return 0, false
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
