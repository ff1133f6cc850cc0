// Package config loads the planner settings from a YAML or JSON file with
// K_ prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dessplan/core/factory"
	"github.com/kilianp07/dessplan/core/metrics"
	"github.com/kilianp07/dessplan/core/planlog"
	"github.com/kilianp07/dessplan/infra/mqtt"
	"github.com/kilianp07/dessplan/infra/solver"
)

type Config struct {
	Plan    PlanConfig           `json:"plan"`
	Solver  factory.ModuleConfig `json:"solver"`
	MQTT    mqtt.Config          `json:"mqtt"`
	Metrics metrics.Config       `json:"metrics"`
	Logging planlog.Config       `json:"logging"`
	API     APIConfig            `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Plan.SetDefaults()
	if c.Solver.Type == "" {
		c.Solver.Type = solver.DefaultType()
	}
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
	c.Logging.SetDefaults()
}

// Validate checks every section. The MQTT section is only checked when a
// broker is configured.
func (c Config) Validate() error {
	if err := c.Plan.Validate(); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if !contains(solver.Types(), c.Solver.Type) {
		return fmt.Errorf("solver: unknown type %q", c.Solver.Type)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	} else if c.Plan.Publish {
		return fmt.Errorf("plan: publish requires mqtt.broker")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
