package model

import "github.com/shopspring/decimal"

// summaryPlaces is the number of decimal places kept in money totals.
const summaryPlaces = 4

// Summary totals the energy and money moved by a solved horizon. Money is
// in cents.
type Summary struct {
	ImportWh           decimal.Decimal `json:"import_wh"`
	ExportWh           decimal.Decimal `json:"export_wh"`
	ImportCostCents    decimal.Decimal `json:"import_cost_cents"`
	ExportRevenueCents decimal.Decimal `json:"export_revenue_cents"`
	WearCostCents      decimal.Decimal `json:"wear_cost_cents"`
	NetCostCents       decimal.Decimal `json:"net_cost_cents"`
}

// Summarize adds up the flows slot by slot using the slot length and wear
// cost of params. Battery wear is charged half on the way in and half on
// the way out.
func Summarize(flows []SolvedFlow, params StaticParameters) Summary {
	p := params.Normalize()
	h := decimal.NewFromFloat(p.SlotHours())
	kilo := decimal.NewFromInt(1000)
	halfWear := decimal.NewFromFloat(p.WearCostCentsPerKWh).Div(decimal.NewFromInt(2))

	var s Summary
	for _, f := range flows {
		imp := decimal.NewFromFloat(f.GridImport).Mul(h)
		exp := decimal.NewFromFloat(f.GridExport).Mul(h)
		through := decimal.NewFromFloat(f.GridToBattery + f.PVToBattery + f.BatteryToLoad + f.BatteryToGrid).Mul(h)

		s.ImportWh = s.ImportWh.Add(imp)
		s.ExportWh = s.ExportWh.Add(exp)
		s.ImportCostCents = s.ImportCostCents.Add(imp.Div(kilo).Mul(decimal.NewFromFloat(f.ImportPrice)))
		s.ExportRevenueCents = s.ExportRevenueCents.Add(exp.Div(kilo).Mul(decimal.NewFromFloat(f.ExportPrice)))
		s.WearCostCents = s.WearCostCents.Add(through.Div(kilo).Mul(halfWear))
	}
	s.NetCostCents = s.ImportCostCents.Sub(s.ExportRevenueCents).Add(s.WearCostCents)

	s.ImportWh = s.ImportWh.Round(summaryPlaces)
	s.ExportWh = s.ExportWh.Round(summaryPlaces)
	s.ImportCostCents = s.ImportCostCents.Round(summaryPlaces)
	s.ExportRevenueCents = s.ExportRevenueCents.Round(summaryPlaces)
	s.WearCostCents = s.WearCostCents.Round(summaryPlaces)
	s.NetCostCents = s.NetCostCents.Round(summaryPlaces)
	return s
}
