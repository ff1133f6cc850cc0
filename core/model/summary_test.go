package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	params := StaticParameters{SlotDuration: 15 * time.Minute, BatteryCapacityWh: 10000, WearCostCentsPerKWh: 2}
	flows := []SolvedFlow{
		{GridToLoad: 400, GridToBattery: 600, GridImport: 1000, ImportPrice: 30},
		{PVToGrid: 200, BatteryToGrid: 200, GridExport: 400, ExportPrice: -2},
	}
	s := Summarize(flows, params)

	assert.True(t, decimal.NewFromInt(250).Equal(s.ImportWh), s.ImportWh.String())
	assert.True(t, decimal.NewFromInt(100).Equal(s.ExportWh), s.ExportWh.String())
	assert.True(t, decimal.RequireFromString("7.5").Equal(s.ImportCostCents), s.ImportCostCents.String())
	assert.True(t, decimal.RequireFromString("-0.2").Equal(s.ExportRevenueCents), s.ExportRevenueCents.String())
	// 800 W of battery throughput for a quarter hour at 1 c/kWh per side
	assert.True(t, decimal.RequireFromString("0.2").Equal(s.WearCostCents), s.WearCostCents.String())
	assert.True(t, decimal.RequireFromString("7.9").Equal(s.NetCostCents), s.NetCostCents.String())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, StaticParameters{})
	assert.True(t, s.NetCostCents.IsZero())
	assert.True(t, s.ImportWh.IsZero())
}
