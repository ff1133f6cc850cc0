// Package inputs loads the per-horizon forecast and price series from a YAML
// or JSON file.
package inputs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dessplan/core/model"
)

// File is the on-disk layout of an inputs document.
type File struct {
	// Start is the RFC3339 timestamp of the first slot.
	Start string `json:"start" yaml:"start"`
	// SlotMinutes is the slot length used with Start.
	SlotMinutes float64 `json:"slot_minutes" yaml:"slot_minutes"`
	// Timestamps optionally lists one RFC3339 timestamp per slot.
	Timestamps []string `json:"timestamps,omitempty" yaml:"timestamps,omitempty"`

	LoadW       []float64 `json:"load_w" yaml:"load_w"`
	PVW         []float64 `json:"pv_w" yaml:"pv_w"`
	ImportPrice []float64 `json:"import_price" yaml:"import_price"`
	ExportPrice []float64 `json:"export_price" yaml:"export_price"`
}

// Inputs is a decoded horizon ready to be combined with static parameters.
type Inputs struct {
	Series model.TimeSeries
	Timing model.Timing
}

// Config combines the inputs with params into a run configuration. The slot
// length carried by the inputs (slot_minutes or the timestamp spacing) wins
// when params leaves it unset; an explicit disagreement is an error. When the
// inputs carry no slot length the parameters' slot duration is used.
func (in Inputs) Config(params model.StaticParameters) (model.Config, error) {
	timing := in.Timing
	step := timing.Step()
	switch {
	case step <= 0:
		params.SlotDuration = params.Normalize().SlotDuration
	case params.SlotDuration <= 0:
		params.SlotDuration = step
	case params.SlotDuration != step:
		return model.Config{}, fmt.Errorf("%w: inputs use %v, configuration %v", model.ErrSlotMismatch, step, params.SlotDuration)
	}
	if timing.SlotDuration <= 0 {
		timing.SlotDuration = params.SlotDuration
	}
	cfg := model.Config{Series: in.Series, Params: params, Timing: timing}
	if err := cfg.Validate(); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// LoadInputs reads inputs from a .yaml, .yml or .json file.
func LoadInputs(path string) (Inputs, error) {
	f, err := os.Open(path)
	if err != nil {
		return Inputs{}, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	in, err := DecodeInputs(f, ext)
	if err != nil {
		return Inputs{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// DecodeInputs reads from r in the given format ("yaml", "yml" or "json").
func DecodeInputs(r io.Reader, format string) (Inputs, error) {
	var doc File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Inputs{}, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Inputs{}, err
		}
	default:
		return Inputs{}, fmt.Errorf("unsupported format: %s", format)
	}
	return doc.Inputs()
}

// Inputs converts the document, truncating the series to their minimum
// common length.
func (f File) Inputs() (Inputs, error) {
	series := model.TimeSeries{LoadW: f.LoadW, PVW: f.PVW, ImportPrice: f.ImportPrice, ExportPrice: f.ExportPrice}
	if f.LoadW != nil && f.PVW != nil && f.ImportPrice != nil && f.ExportPrice != nil {
		series = model.AssembleSeries(f.LoadW, f.PVW, f.ImportPrice, f.ExportPrice)
	}
	if err := series.Validate(); err != nil {
		return Inputs{}, err
	}

	var timing model.Timing
	if f.Start != "" {
		start, err := time.Parse(time.RFC3339, f.Start)
		if err != nil {
			return Inputs{}, fmt.Errorf("start: %w", err)
		}
		timing.Start = start
	}
	if f.SlotMinutes < 0 {
		return Inputs{}, fmt.Errorf("slot_minutes must not be negative, got %v", f.SlotMinutes)
	}
	timing.SlotDuration = time.Duration(f.SlotMinutes * float64(time.Minute))
	for i, s := range f.Timestamps {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Inputs{}, fmt.Errorf("timestamps[%d]: %w", i, err)
		}
		if n := len(timing.Timestamps); n > 0 && !ts.After(timing.Timestamps[n-1]) {
			return Inputs{}, fmt.Errorf("timestamps[%d]: not after the previous timestamp", i)
		}
		timing.Timestamps = append(timing.Timestamps, ts)
	}
	return Inputs{Series: series, Timing: timing}, nil
}
