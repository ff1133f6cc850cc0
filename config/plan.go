package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/dessplan/core/model"
)

// PlanConfig holds the static battery and grid parameters plus run options.
type PlanConfig struct {
	SlotMinutes                int     `json:"slot_minutes"`
	BatteryCapacityWh          float64 `json:"battery_capacity_wh"`
	MinSoCPercent              float64 `json:"min_soc_percent"`
	MaxSoCPercent              float64 `json:"max_soc_percent"`
	InitialSoCPercent          float64 `json:"initial_soc_percent"`
	MaxChargeW                 float64 `json:"max_charge_w"`
	MaxDischargeW              float64 `json:"max_discharge_w"`
	MaxGridImportW             float64 `json:"max_grid_import_w"`
	MaxGridExportW             float64 `json:"max_grid_export_w"`
	ChargeEfficiencyPercent    float64 `json:"charge_efficiency_percent"`
	DischargeEfficiencyPercent float64 `json:"discharge_efficiency_percent"`
	WearCostCentsPerKWh        float64 `json:"wear_cost_cents_per_kwh"`
	// TerminalValuation is one of zero, min, avg, max or custom.
	TerminalValuation   string  `json:"terminal_valuation"`
	TerminalCustomPrice float64 `json:"terminal_custom_price"`

	SolveTimeoutSeconds int  `json:"solve_timeout_seconds"`
	Publish             bool `json:"publish"`
	WaitAck             bool `json:"wait_ack"`
	AckTimeoutSeconds   int  `json:"ack_timeout_seconds"`
	// ReplanIntervalSeconds makes the service re-plan periodically when positive.
	ReplanIntervalSeconds int `json:"replan_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *PlanConfig) SetDefaults() {
	if c.MaxSoCPercent == 0 {
		c.MaxSoCPercent = 100
	}
	if c.AckTimeoutSeconds <= 0 {
		c.AckTimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c PlanConfig) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	if c.SlotMinutes < 0 {
		return fmt.Errorf("slot_minutes must not be negative")
	}
	if c.SolveTimeoutSeconds < 0 {
		return fmt.Errorf("solve_timeout_seconds must not be negative")
	}
	if c.ReplanIntervalSeconds < 0 {
		return fmt.Errorf("replan_interval_seconds must not be negative")
	}
	return nil
}

// Params converts the section into static parameters.
func (c PlanConfig) Params() (model.StaticParameters, error) {
	tv, err := model.ParseTerminalValuation(c.TerminalValuation)
	if err != nil {
		return model.StaticParameters{}, err
	}
	p := model.StaticParameters{
		SlotDuration:               time.Duration(c.SlotMinutes) * time.Minute,
		BatteryCapacityWh:          c.BatteryCapacityWh,
		MinSoCPercent:              c.MinSoCPercent,
		MaxSoCPercent:              c.MaxSoCPercent,
		InitialSoCPercent:          c.InitialSoCPercent,
		MaxChargeW:                 c.MaxChargeW,
		MaxDischargeW:              c.MaxDischargeW,
		MaxGridImportW:             c.MaxGridImportW,
		MaxGridExportW:             c.MaxGridExportW,
		ChargeEfficiencyPercent:    c.ChargeEfficiencyPercent,
		DischargeEfficiencyPercent: c.DischargeEfficiencyPercent,
		WearCostCentsPerKWh:        c.WearCostCentsPerKWh,
		TerminalValuation:          tv,
		TerminalCustomPrice:        c.TerminalCustomPrice,
	}
	if err := p.Validate(); err != nil {
		return model.StaticParameters{}, err
	}
	return p, nil
}

// SolveTimeout returns the solver time budget, zero meaning unbounded.
func (c PlanConfig) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutSeconds) * time.Second
}

// AckTimeout returns the schedule acknowledgment timeout.
func (c PlanConfig) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}

// ReplanInterval returns the service re-planning period, zero meaning once.
func (c PlanConfig) ReplanInterval() time.Duration {
	return time.Duration(c.ReplanIntervalSeconds) * time.Second
}
