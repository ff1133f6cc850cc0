// Package scenarios replays planning scenarios described in YAML files
// through the planner and checks the resulting decisions.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dessplan/config"
	"github.com/kilianp07/dessplan/core/factory"
	"github.com/kilianp07/dessplan/core/inputs"
	"github.com/kilianp07/dessplan/core/model"
	"github.com/kilianp07/dessplan/core/strategy"
)

// ExpectedDecision is the classification expected for one slot. Omitted
// fields are not checked.
type ExpectedDecision struct {
	Slot         int                    `yaml:"slot"`
	Strategy     *strategy.Strategy     `yaml:"strategy,omitempty"`
	Restrictions *strategy.Restrictions `yaml:"restrictions,omitempty"`
	FeedIn       *strategy.FeedIn       `yaml:"feed_in,omitempty"`
}

// Check returns a description of every field of d that differs from exp.
func (exp ExpectedDecision) Check(d strategy.Decision) []string {
	var diffs []string
	if exp.Strategy != nil && *exp.Strategy != d.Strategy {
		diffs = append(diffs, fmt.Sprintf("strategy %s, want %s", d.Strategy, *exp.Strategy))
	}
	if exp.Restrictions != nil && *exp.Restrictions != d.Restrictions {
		diffs = append(diffs, fmt.Sprintf("restrictions %s, want %s", d.Restrictions, *exp.Restrictions))
	}
	if exp.FeedIn != nil && *exp.FeedIn != d.FeedIn {
		diffs = append(diffs, fmt.Sprintf("feed-in %s, want %s", d.FeedIn, *exp.FeedIn))
	}
	return diffs
}

type Expected struct {
	Status    string             `yaml:"status"`
	Decisions []ExpectedDecision `yaml:"decisions"`
	Published bool               `yaml:"published"`
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Plan uses the same keys as the plan section of the configuration.
	Plan     map[string]any `yaml:"plan"`
	Inputs   inputs.File    `yaml:"inputs"`
	Publish  bool           `yaml:"publish,omitempty"`
	Expected Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	return &sc, nil
}

// Config builds the run configuration described by the scenario.
func (sc *Scenario) Config() (model.Config, error) {
	var pc config.PlanConfig
	if err := factory.Decode(sc.Plan, &pc); err != nil {
		return model.Config{}, fmt.Errorf("plan: %w", err)
	}
	pc.SetDefaults()
	params, err := pc.Params()
	if err != nil {
		return model.Config{}, fmt.Errorf("plan: %w", err)
	}
	in, err := sc.Inputs.Inputs()
	if err != nil {
		return model.Config{}, fmt.Errorf("inputs: %w", err)
	}
	run, err := in.Config(params)
	if err != nil {
		return model.Config{}, fmt.Errorf("inputs: %w", err)
	}
	return run, nil
}
