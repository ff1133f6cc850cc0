package metrics

import "github.com/kilianp07/dessplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr" yaml:"prometheus_addr"`
}
