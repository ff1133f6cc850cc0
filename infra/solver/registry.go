// Package solver provides the LP engines behind core/solver.Solver: an
// in-process gonum simplex, the HiGHS command line solver and an HTTP
// solve service.
package solver

import (
	"os/exec"
	"time"

	"github.com/kilianp07/dessplan/core/factory"
	coresolver "github.com/kilianp07/dessplan/core/solver"
)

// GonumConfig configures the in-process simplex.
type GonumConfig struct {
	Tolerance    float64 `json:"tolerance"`
	MaxVariables int     `json:"max_variables"`
}

// HighsConfig configures the HiGHS runner.
type HighsConfig struct {
	Binary    string        `json:"binary"`
	TimeLimit time.Duration `json:"time_limit"`
	Threads   int           `json:"threads"`
}

var registry = factory.NewRegistry[coresolver.Solver]()

func init() {
	_ = registry.Register("gonum", func(conf map[string]any) (coresolver.Solver, error) {
		var c GonumConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return GonumSolver{Tolerance: c.Tolerance, MaxVariables: c.MaxVariables}, nil
	})
	_ = registry.Register("highs", func(conf map[string]any) (coresolver.Solver, error) {
		var c HighsConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return HighsSolver{Binary: c.Binary, TimeLimit: c.TimeLimit, Threads: c.Threads}, nil
	})
	_ = registry.Register("remote", func(conf map[string]any) (coresolver.Solver, error) {
		var c RemoteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRemoteSolver(c)
	})
}

// lookPath finds executables; tests replace it.
var lookPath = exec.LookPath

// DefaultType returns the solver used when none is configured: highs when
// its binary is on PATH, gonum otherwise.
func DefaultType() string {
	if _, err := lookPath("highs"); err == nil {
		return "highs"
	}
	return "gonum"
}

// New instantiates the solver named by cfg.Type. An empty type selects
// DefaultType.
func New(cfg factory.ModuleConfig) (coresolver.Solver, error) {
	if cfg.Type == "" {
		cfg.Type = DefaultType()
	}
	return registry.Create(cfg)
}

// Types lists the available solver types.
func Types() []string { return registry.Types() }
