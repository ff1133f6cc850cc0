// Package lpmodel turns a resolved horizon into a linear program written in
// the plain-text LP exchange format (Minimize / Subject To / Bounds / End).
//
// Every slot t contributes the seven flow variables named after
// model.FlowKind (for example grid_to_battery_7), the state of charge soc_t in
// Wh and the slack soc_shortfall_t measuring how far soc_t sits below the soft
// minimum.
package lpmodel

import (
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/dessplan/core/model"
)

const (
	// exportTieBreak penalises PV export against on-site use, in cents per kWh.
	exportTieBreak = 1e-4
	// pvChargeTieBreak favours charging from PV over charging from the grid, in cents per kWh.
	pvChargeTieBreak = 5e-5
	// ShortfallPenalty is the cost in cents of each Wh below the minimum SoC per slot.
	ShortfallPenalty = 1.0
)

// coefficients holds the per-run unit conversions.
type coefficients struct {
	priceFactor  float64 // cents per (c/kWh * W) over one slot
	chargeWh     float64 // Wh stored per W charged during one slot
	dischargeWh  float64 // Wh drained per W delivered during one slot
	wearPerSide  float64 // cents per W on each side of throughput
	terminalCoef float64 // cents per Wh left at the end, negated in the objective
}

func newCoefficients(series model.TimeSeries, p model.StaticParameters) coefficients {
	h := p.SlotHours()
	c := coefficients{
		priceFactor: h / 1000,
		chargeWh:    h * p.ChargeEfficiencyPercent / 100,
		dischargeWh: h / (p.DischargeEfficiencyPercent / 100),
	}
	c.wearPerSide = p.WearCostCentsPerKWh / 2 * c.priceFactor
	if ref, ok := p.ReferencePrice(series.ImportPrice); ok {
		c.terminalCoef = ref / 1000 * p.DischargeEfficiencyPercent / 100
	}
	return c
}

// Build renders the dispatch LP for the given series and parameters. The
// parameters are normalised first; the output is deterministic.
func Build(series model.TimeSeries, params model.StaticParameters) (string, error) {
	if err := series.Validate(); err != nil {
		return "", fmt.Errorf("build model: %w", err)
	}
	p := params.Normalize()
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("build model: %w", err)
	}
	c := newCoefficients(series, p)
	n := series.Len()

	var b strings.Builder
	b.WriteString("Minimize\n obj: ")
	writeTerms(&b, objective(series, p, c))
	b.WriteString("\nSubject To\n")
	for t := 0; t < n; t++ {
		writeConstraints(&b, t, series, p, c)
	}
	b.WriteString("Bounds\n")
	for t := 0; t < n; t++ {
		writeBounds(&b, t, series, p)
	}
	b.WriteString("End\n")
	return b.String(), nil
}

// VarName returns the LP variable name of a flow at slot t.
func VarName(k model.FlowKind, t int) string { return fmt.Sprintf("%s_%d", k, t) }

func socName(t int) string       { return fmt.Sprintf("%s_%d", model.SoCVar, t) }
func shortfallName(t int) string { return fmt.Sprintf("%s_%d", model.ShortfallVar, t) }

type term struct {
	coef float64
	name string
}

func objective(series model.TimeSeries, p model.StaticParameters, c coefficients) []term {
	n := series.Len()
	terms := make([]term, 0, n*9)
	for t := 0; t < n; t++ {
		imp := series.ImportPrice[t] * c.priceFactor
		exp := series.ExportPrice[t] * c.priceFactor
		terms = append(terms,
			term{imp, VarName(model.GridToLoad, t)},
			term{imp + c.wearPerSide, VarName(model.GridToBattery, t)},
			term{c.wearPerSide - pvChargeTieBreak*c.priceFactor, VarName(model.PVToBattery, t)},
			term{-exp + exportTieBreak*c.priceFactor, VarName(model.PVToGrid, t)},
			term{c.wearPerSide, VarName(model.BatteryToLoad, t)},
			term{-exp + c.wearPerSide, VarName(model.BatteryToGrid, t)},
			term{ShortfallPenalty, shortfallName(t)},
		)
	}
	if c.terminalCoef != 0 {
		terms = append(terms, term{-c.terminalCoef, socName(n - 1)})
	}
	return terms
}

func writeConstraints(b *strings.Builder, t int, series model.TimeSeries, p model.StaticParameters, c coefficients) {
	g2l, g2b := VarName(model.GridToLoad, t), VarName(model.GridToBattery, t)
	pv2l, pv2b, pv2g := VarName(model.PVToLoad, t), VarName(model.PVToBattery, t), VarName(model.PVToGrid, t)
	b2l, b2g := VarName(model.BatteryToLoad, t), VarName(model.BatteryToGrid, t)

	writeRow(b, "load", t, []term{{1, g2l}, {1, pv2l}, {1, b2l}}, "=", series.LoadW[t])
	writeRow(b, "pv", t, []term{{1, pv2l}, {1, pv2b}, {1, pv2g}}, "=", series.PVW[t])

	soc := []term{{1, socName(t)}}
	rhs := 0.0
	if t == 0 {
		rhs = p.InitialSoCWh()
	} else {
		soc = append(soc, term{-1, socName(t - 1)})
	}
	soc = append(soc,
		term{-c.chargeWh, g2b},
		term{-c.chargeWh, pv2b},
		term{c.dischargeWh, b2l},
		term{c.dischargeWh, b2g},
	)
	writeRow(b, "soc", t, soc, "=", rhs)

	writeRow(b, "charge", t, []term{{1, g2b}, {1, pv2b}}, "<=", p.MaxChargeW)
	writeRow(b, "discharge", t, []term{{1, b2l}, {1, b2g}}, "<=", p.MaxDischargeW)
	writeRow(b, "import", t, []term{{1, g2l}, {1, g2b}}, "<=", p.MaxGridImportW)
	writeRow(b, "export", t, []term{{1, pv2g}, {1, b2g}}, "<=", p.MaxGridExportW)
	writeRow(b, "minsoc", t, []term{{1, shortfallName(t)}, {1, socName(t)}}, ">=", p.MinSoCWh())
}

func writeBounds(b *strings.Builder, t int, series model.TimeSeries, p model.StaticParameters) {
	load, pv := series.LoadW[t], series.PVW[t]
	caps := [...]float64{
		model.GridToLoad:    math.Min(p.MaxGridImportW, load),
		model.GridToBattery: math.Min(p.MaxGridImportW, p.MaxChargeW),
		model.PVToLoad:      math.Min(pv, load),
		model.PVToBattery:   math.Min(pv, p.MaxChargeW),
		model.PVToGrid:      math.Min(pv, p.MaxGridExportW),
		model.BatteryToLoad: math.Min(p.MaxDischargeW, load),
		model.BatteryToGrid: math.Min(p.MaxDischargeW, p.MaxGridExportW),
	}
	for _, k := range model.FlowKinds {
		fmt.Fprintf(b, " 0 <= %s <= %s\n", VarName(k, t), formatNum(math.Max(caps[k], 0)))
	}
	fmt.Fprintf(b, " 0 <= %s <= %s\n", socName(t), formatNum(p.MaxSoCWh()))
	fmt.Fprintf(b, " %s >= 0\n", shortfallName(t))
}

func writeRow(b *strings.Builder, purpose string, t int, terms []term, op string, rhs float64) {
	fmt.Fprintf(b, " c_%s_%d: ", purpose, t)
	writeTerms(b, terms)
	fmt.Fprintf(b, " %s %s\n", op, formatNum(rhs))
}

// writeTerms writes a linear expression. Zero coefficients are skipped and a
// unit coefficient is implicit.
func writeTerms(b *strings.Builder, terms []term) {
	first := true
	for _, tm := range terms {
		coef := round12(tm.coef)
		if coef == 0 {
			continue
		}
		switch {
		case coef < 0 && first:
			b.WriteString("- ")
		case coef < 0:
			b.WriteString(" - ")
		case !first:
			b.WriteString(" + ")
		}
		if abs := math.Abs(coef); abs != 1 {
			b.WriteString(formatNum(abs))
			b.WriteByte(' ')
		}
		b.WriteString(tm.name)
		first = false
	}
	if first {
		// an empty expression still needs a variable to be valid LP
		b.WriteString("0 ")
		b.WriteString(terms[0].name)
	}
}
