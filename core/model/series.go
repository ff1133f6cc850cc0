package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSeries is returned when one of the four input series is absent.
	ErrMissingSeries = errors.New("missing time series")
	// ErrSeriesLength is returned when the input series do not share a length.
	ErrSeriesLength = errors.New("time series length mismatch")
	// ErrEmptyHorizon is returned when the horizon holds no slot.
	ErrEmptyHorizon = errors.New("empty horizon")
)

// TimeSeries holds one value per slot for the forecast and price inputs.
// Loads and PV are in watts, prices in currency cents per kWh.
type TimeSeries struct {
	LoadW       []float64 `json:"load_w" yaml:"load_w"`
	PVW         []float64 `json:"pv_w" yaml:"pv_w"`
	ImportPrice []float64 `json:"import_price" yaml:"import_price"`
	ExportPrice []float64 `json:"export_price" yaml:"export_price"`
}

// Len returns the number of slots. It assumes Validate succeeded.
func (s TimeSeries) Len() int { return len(s.LoadW) }

// Validate checks that all series are present, of equal length and non-empty.
func (s TimeSeries) Validate() error {
	named := []struct {
		name string
		vals []float64
	}{
		{"load_w", s.LoadW},
		{"pv_w", s.PVW},
		{"import_price", s.ImportPrice},
		{"export_price", s.ExportPrice},
	}
	for _, n := range named {
		if n.vals == nil {
			return fmt.Errorf("%w: %s", ErrMissingSeries, n.name)
		}
	}
	t := len(s.LoadW)
	for _, n := range named[1:] {
		if len(n.vals) != t {
			return fmt.Errorf("%w: %s has %d slots, load_w has %d", ErrSeriesLength, n.name, len(n.vals), t)
		}
	}
	if t == 0 {
		return ErrEmptyHorizon
	}
	return nil
}

// AssembleSeries builds a TimeSeries from sources of heterogeneous length.
// Every series is truncated to the minimum common length.
func AssembleSeries(load, pv, importPrice, exportPrice []float64) TimeSeries {
	n := len(load)
	for _, s := range [][]float64{pv, importPrice, exportPrice} {
		if len(s) < n {
			n = len(s)
		}
	}
	cut := func(s []float64) []float64 {
		out := make([]float64, n)
		copy(out, s[:n])
		return out
	}
	return TimeSeries{
		LoadW:       cut(load),
		PVW:         cut(pv),
		ImportPrice: cut(importPrice),
		ExportPrice: cut(exportPrice),
	}
}
